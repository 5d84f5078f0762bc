package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"pricepilot/models"
	"pricepilot/pipeline"
)

func waitForTask(t *testing.T, tm *TaskManager, taskID string) *models.ScrapeTask {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		task, ok := tm.GetTask(taskID)
		if !ok {
			t.Fatalf("task %s disappeared", taskID)
		}
		if task.IsCompleted() {
			return task
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %s did not finish in time", taskID)
	return nil
}

func TestTaskManagerCompletesTask(t *testing.T) {
	trackFunc := func(_ context.Context, url, userID string) (*models.TrackResponse, error) {
		return &models.TrackResponse{Success: true, CurrentPrice: 1299}, nil
	}

	tm := NewTaskManager(trackFunc, 1)
	defer tm.Stop()

	task := tm.Submit("https://www.amazon.in/dp/B01MTO2419", "user-1")
	done := waitForTask(t, tm, task.ID)

	if done.Status != models.TaskStatusCompleted {
		t.Errorf("status = %q, want %q (error: %s)", done.Status, models.TaskStatusCompleted, done.Error)
	}
	if done.Result == nil || done.Result.CurrentPrice != 1299 {
		t.Errorf("result = %+v", done.Result)
	}
	if done.Step != models.StepDone {
		t.Errorf("step = %q, want %q", done.Step, models.StepDone)
	}
}

func TestTaskManagerRecordsFailureStep(t *testing.T) {
	trackFunc := func(_ context.Context, url, userID string) (*models.TrackResponse, error) {
		return nil, &pipeline.StepError{Step: models.StepScraped, Cause: errors.New("page blocked")}
	}

	tm := NewTaskManager(trackFunc, 1)
	defer tm.Stop()

	task := tm.Submit("https://www.amazon.in/dp/B01MTO2419", "user-1")
	done := waitForTask(t, tm, task.ID)

	if done.Status != models.TaskStatusFailed {
		t.Errorf("status = %q, want %q", done.Status, models.TaskStatusFailed)
	}
	if done.Step != models.StepScraped {
		t.Errorf("failed step = %q, want %q", done.Step, models.StepScraped)
	}
}

func TestTaskManagerUnknownTask(t *testing.T) {
	tm := NewTaskManager(func(context.Context, string, string) (*models.TrackResponse, error) {
		return nil, nil
	}, 1)
	defer tm.Stop()

	if _, ok := tm.GetTask("task_missing"); ok {
		t.Error("GetTask returned a task for an unknown id")
	}
}

func TestTaskManagerStats(t *testing.T) {
	trackFunc := func(_ context.Context, url, userID string) (*models.TrackResponse, error) {
		return &models.TrackResponse{Success: true}, nil
	}

	tm := NewTaskManager(trackFunc, 2)
	defer tm.Stop()

	a := tm.Submit("https://www.amazon.in/dp/B1", "user-1")
	b := tm.Submit("https://www.amazon.in/dp/B2", "user-1")
	waitForTask(t, tm, a.ID)
	waitForTask(t, tm, b.ID)

	stats := tm.Stats()
	if stats["total_tasks"] != 2 {
		t.Errorf("total_tasks = %v, want 2", stats["total_tasks"])
	}
	if stats["max_workers"] != 2 {
		t.Errorf("max_workers = %v, want 2", stats["max_workers"])
	}
}

func TestGetTaskReturnsSnapshot(t *testing.T) {
	tm := NewTaskManager(func(context.Context, string, string) (*models.TrackResponse, error) {
		return &models.TrackResponse{Success: true}, nil
	}, 1)
	defer tm.Stop()

	submitted := tm.Submit("https://www.amazon.in/dp/B1", "user-1")
	waitForTask(t, tm, submitted.ID)

	got, ok := tm.GetTask(submitted.ID)
	if !ok {
		t.Fatal("task not found")
	}

	tm.mutex.RLock()
	live := tm.tasks[submitted.ID]
	tm.mutex.RUnlock()

	if got == live {
		t.Error("GetTask handed out the live task instead of a copy")
	}
	if submitted == live {
		t.Error("Submit handed out the live task instead of a copy")
	}
}

func TestConcurrentStatusReadsWhileProcessing(t *testing.T) {
	// Status lookups serialize a task while a worker is still moving it
	// through its lifecycle; both sides must see consistent state.
	release := make(chan struct{})
	trackFunc := func(context.Context, string, string) (*models.TrackResponse, error) {
		<-release
		return &models.TrackResponse{Success: true, CurrentPrice: 999}, nil
	}

	tm := NewTaskManager(trackFunc, 2)
	defer tm.Stop()

	var ids []string
	for i := 0; i < 4; i++ {
		ids = append(ids, tm.Submit(fmt.Sprintf("https://www.amazon.in/dp/B%d", i), "user-1").ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				task, ok := tm.GetTask(id)
				if !ok {
					t.Errorf("task %s disappeared mid-run", id)
					return
				}
				if _, err := json.Marshal(task); err != nil {
					t.Errorf("failed to encode task %s: %v", id, err)
					return
				}
			}
		}(id)
	}

	close(release)
	wg.Wait()

	for _, id := range ids {
		done := waitForTask(t, tm, id)
		if done.Status != models.TaskStatusCompleted {
			t.Errorf("task %s status = %q, want completed", id, done.Status)
		}
	}
}

func TestTaskManagerCleanup(t *testing.T) {
	tm := NewTaskManager(func(context.Context, string, string) (*models.TrackResponse, error) {
		return &models.TrackResponse{Success: true}, nil
	}, 1)
	defer tm.Stop()

	task := tm.Submit("https://www.amazon.in/dp/B1", "user-1")
	waitForTask(t, tm, task.ID)

	// Fresh tasks survive cleanup; stale ones are removed.
	tm.cleanup(time.Hour)
	if _, ok := tm.GetTask(task.ID); !ok {
		t.Error("fresh task removed by cleanup")
	}

	tm.cleanup(0)
	if _, ok := tm.GetTask(task.ID); ok {
		t.Error("stale completed task survived cleanup")
	}
}
