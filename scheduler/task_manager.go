package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"pricepilot/models"
	"pricepilot/pipeline"
)

// TrackFunc runs one URL-tracking pipeline pass.
type TrackFunc func(ctx context.Context, url, userID string) (*models.TrackResponse, error)

// TaskManager runs async URL-tracking tasks with a bounded number of
// workers, keeps finished tasks around for status lookups and cleans up
// stale ones.
type TaskManager struct {
	tasks      map[string]*models.ScrapeTask
	taskQueue  chan *models.ScrapeTask
	maxWorkers int
	trackFunc  TrackFunc
	mutex      sync.RWMutex
	stopChan   chan struct{}
	stopOnce   sync.Once
}

// NewTaskManager creates a new task manager
func NewTaskManager(trackFunc TrackFunc, maxWorkers int) *TaskManager {
	tm := &TaskManager{
		tasks:      make(map[string]*models.ScrapeTask),
		taskQueue:  make(chan *models.ScrapeTask, 100),
		maxWorkers: maxWorkers,
		trackFunc:  trackFunc,
		stopChan:   make(chan struct{}),
	}

	for i := 0; i < maxWorkers; i++ {
		go tm.worker()
	}
	go tm.janitor()

	log.Printf("🚀 Task manager started with %d workers", maxWorkers)
	return tm
}

// Submit queues a new tracking task. The returned task is a snapshot; the
// live task keeps changing as workers process it.
func (tm *TaskManager) Submit(url, userID string) *models.ScrapeTask {
	task := models.NewScrapeTask(url, userID)

	tm.mutex.Lock()
	tm.tasks[task.ID] = task
	tm.mutex.Unlock()

	select {
	case tm.taskQueue <- task:
		log.Printf("📝 Task %s submitted for %s", task.ID, url)
	default:
		tm.mutex.Lock()
		task.Fail(models.StepPending, "Task queue is full")
		tm.mutex.Unlock()
		log.Printf("❌ Failed to submit task %s - queue full", task.ID)
	}

	tm.mutex.RLock()
	defer tm.mutex.RUnlock()
	return snapshot(task)
}

// GetTask returns a snapshot of a task by ID. A copy is returned so callers
// can read and encode it while workers keep mutating the live task.
func (tm *TaskManager) GetTask(taskID string) (*models.ScrapeTask, bool) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	task, exists := tm.tasks[taskID]
	if !exists {
		return nil, false
	}
	return snapshot(task), true
}

// snapshot copies a task. Callers must hold tm.mutex. The pointer fields
// (Result, timestamps) are written once under the mutex and never mutated
// afterwards, so sharing them in the copy is safe.
func snapshot(task *models.ScrapeTask) *models.ScrapeTask {
	copied := *task
	return &copied
}

// Stats returns task manager statistics
func (tm *TaskManager) Stats() map[string]interface{} {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	statusCounts := make(map[string]int)
	for _, task := range tm.tasks {
		statusCounts[string(task.Status)]++
	}

	return map[string]interface{}{
		"total_tasks":     len(tm.tasks),
		"max_workers":     tm.maxWorkers,
		"queue_size":      len(tm.taskQueue),
		"tasks_by_status": statusCounts,
	}
}

// Stop stops the task manager
func (tm *TaskManager) Stop() {
	tm.stopOnce.Do(func() {
		close(tm.stopChan)
		log.Println("🛑 Task manager stopped")
	})
}

func (tm *TaskManager) worker() {
	for {
		select {
		case task := <-tm.taskQueue:
			tm.process(task)
		case <-tm.stopChan:
			return
		}
	}
}

// process runs one task. Task state is only ever mutated under tm.mutex so
// that status lookups can snapshot a consistent view.
func (tm *TaskManager) process(task *models.ScrapeTask) {
	tm.mutex.Lock()
	task.Start()
	tm.mutex.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	result, err := tm.trackFunc(ctx, task.URL, task.UserID)

	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if err != nil {
		step := models.StepPending
		var stepErr *pipeline.StepError
		if errors.As(err, &stepErr) {
			step = stepErr.Step
		}
		task.Fail(step, err.Error())
		return
	}

	task.Complete(result)
	log.Printf("✅ Task %s completed in %v", task.ID, task.Duration())
}

// janitor removes completed tasks older than an hour.
func (tm *TaskManager) janitor() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tm.cleanup(time.Hour)
		case <-tm.stopChan:
			return
		}
	}
}

func (tm *TaskManager) cleanup(maxAge time.Duration) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for taskID, task := range tm.tasks {
		if task.IsCompleted() && task.CreatedAt.Before(cutoff) {
			delete(tm.tasks, taskID)
		}
	}
}
