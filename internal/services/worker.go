package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/logger"
	"alfredoptarigan/resume-screener/internal/repositories"
)

const (
	defaultPollInterval = 10 * time.Second
	pendingBatchSize    = 10
)

type Worker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueJob(runID uuid.UUID)
}

type worker struct {
	runRepo          repositories.RunRepository
	evaluatorService EvaluatorService
	jobQueue         chan uuid.UUID
	concurrency      int
	pollInterval     time.Duration
	wg               sync.WaitGroup
	stopChan         chan struct{}
	stopOnce         sync.Once
	inFlight         sync.Map
	log              *zap.Logger
}

func NewWorker(
	runRepo repositories.RunRepository,
	evaluatorService EvaluatorService,
	concurrency int,
	log *zap.Logger,
) Worker {
	return newWorker(runRepo, evaluatorService, concurrency, defaultPollInterval, log)
}

func newWorker(
	runRepo repositories.RunRepository,
	evaluatorService EvaluatorService,
	concurrency int,
	pollInterval time.Duration,
	log *zap.Logger,
) *worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &worker{
		runRepo:          runRepo,
		evaluatorService: evaluatorService,
		jobQueue:         make(chan uuid.UUID, 100),
		concurrency:      concurrency,
		pollInterval:     pollInterval,
		stopChan:         make(chan struct{}),
		log:              logger.OrNop(log),
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	w.log.Info("starting worker", zap.Int("concurrency", w.concurrency))

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	w.wg.Add(1)
	go w.pollPendingJobs()
}

// Stop implements Worker.
func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		w.log.Info("stopping worker")
		close(w.stopChan)
	})
	w.wg.Wait()
	w.log.Info("worker stopped")
}

// EnqueueJob implements Worker. A run already queued or in progress is not queued twice.
func (w *worker) EnqueueJob(runID uuid.UUID) {
	if _, loaded := w.inFlight.LoadOrStore(runID, struct{}{}); loaded {
		return
	}

	select {
	case w.jobQueue <- runID:
		w.log.Debug("run enqueued", zap.String("run_id", runID.String()))
	case <-w.stopChan:
		w.inFlight.Delete(runID)
		w.log.Warn("worker stopped, run not enqueued", zap.String("run_id", runID.String()))
	}
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case runID := <-w.jobQueue:
			log := w.log.With(zap.Int("worker", workerID), zap.String("run_id", runID.String()))
			log.Info("processing run")
			if err := w.evaluatorService.EvaluateRun(ctx, runID); err != nil {
				log.Error("run failed", zap.Error(err))
			} else {
				log.Info("run completed")
			}
			w.inFlight.Delete(runID)
		}
	}
}

func (w *worker) pollPendingJobs() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			pending, err := w.runRepo.FindPendingRuns(pendingBatchSize)
			if err != nil {
				w.log.Warn("failed to fetch pending runs", zap.Error(err))
				continue
			}

			if len(pending) > 0 {
				w.log.Info("found pending runs", zap.Int("count", len(pending)))
			}
			for _, run := range pending {
				w.EnqueueJob(run.ID)
			}
		}
	}
}
