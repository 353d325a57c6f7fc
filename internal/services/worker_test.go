package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"alfredoptarigan/resume-screener/internal/models"
)

type countingEvaluator struct {
	repo  *memoryRunRepo
	mu    sync.Mutex
	calls map[uuid.UUID]int
}

func (c *countingEvaluator) EvaluateRun(_ context.Context, runID uuid.UUID) error {
	c.mu.Lock()
	c.calls[runID]++
	c.mu.Unlock()
	return c.repo.UpdateStatus(runID, models.StatusCompleted)
}

func (c *countingEvaluator) count(runID uuid.UUID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[runID]
}

func TestWorkerProcessesEnqueuedRun(t *testing.T) {
	run := &models.ScreeningRun{ID: uuid.New(), Status: models.StatusQueued}
	repo := newMemoryRunRepo(run)
	eval := &countingEvaluator{repo: repo, calls: map[uuid.UUID]int{}}

	w := newWorker(repo, eval, 2, time.Hour, nil)
	w.Start(context.Background())
	defer w.Stop()

	w.EnqueueJob(run.ID)

	assert.Eventually(t, func() bool {
		return repo.status(run.ID) == models.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, eval.count(run.ID))
}

func TestWorkerPicksUpPendingRuns(t *testing.T) {
	run := &models.ScreeningRun{ID: uuid.New(), Status: models.StatusQueued}
	repo := newMemoryRunRepo(run)
	eval := &countingEvaluator{repo: repo, calls: map[uuid.UUID]int{}}

	w := newWorker(repo, eval, 1, 20*time.Millisecond, nil)
	w.Start(context.Background())
	defer w.Stop()

	assert.Eventually(t, func() bool {
		return repo.status(run.ID) == models.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorkerStopIsIdempotent(t *testing.T) {
	repo := newMemoryRunRepo()
	w := newWorker(repo, &countingEvaluator{repo: repo, calls: map[uuid.UUID]int{}}, 1, time.Hour, nil)
	w.Start(context.Background())

	w.Stop()
	w.Stop()

	w.EnqueueJob(uuid.New())
}
