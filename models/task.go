package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the status of an async tracking task
type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Pipeline steps a tracking task moves through. A failed task records the
// step it failed at.
type PipelineStep string

const (
	StepPending        PipelineStep = "pending"
	StepScraped        PipelineStep = "scraped"
	StepRecorded       PipelineStep = "recorded"
	StepMatchTriggered PipelineStep = "match_triggered"
	StepDone           PipelineStep = "done"
)

// ScrapeTask represents an async URL-tracking task
type ScrapeTask struct {
	ID          string         `json:"id"`
	URL         string         `json:"url"`
	UserID      string         `json:"user_id"`
	Status      TaskStatus     `json:"status"`
	Step        PipelineStep   `json:"step"`
	Message     string         `json:"message"`
	Result      *TrackResponse `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// NewScrapeTask creates a new queued tracking task
func NewScrapeTask(url, userID string) *ScrapeTask {
	return &ScrapeTask{
		ID:        "task_" + uuid.NewString(),
		URL:       url,
		UserID:    userID,
		Status:    TaskStatusQueued,
		Step:      StepPending,
		Message:   "Task queued for processing",
		CreatedAt: time.Now(),
	}
}

// Start marks the task as processing
func (t *ScrapeTask) Start() {
	t.Status = TaskStatusProcessing
	t.Message = "Scraping product page..."
	now := time.Now()
	t.StartedAt = &now
}

// Complete marks the task as completed with result
func (t *ScrapeTask) Complete(result *TrackResponse) {
	t.Status = TaskStatusCompleted
	t.Step = StepDone
	t.Message = "Product tracked successfully"
	t.Result = result
	now := time.Now()
	t.CompletedAt = &now
}

// Fail marks the task as failed at the given step
func (t *ScrapeTask) Fail(step PipelineStep, cause string) {
	t.Status = TaskStatusFailed
	t.Step = step
	t.Message = "Tracking failed"
	t.Error = cause
	now := time.Now()
	t.CompletedAt = &now
}

// IsCompleted returns true if the task is in a final state
func (t *ScrapeTask) IsCompleted() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// IsActive returns true if the task is still running
func (t *ScrapeTask) IsActive() bool {
	return t.Status == TaskStatusQueued || t.Status == TaskStatusProcessing
}

// Duration returns the duration of the task
func (t *ScrapeTask) Duration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}

	endTime := time.Now()
	if t.CompletedAt != nil {
		endTime = *t.CompletedAt
	}

	return endTime.Sub(*t.StartedAt)
}
