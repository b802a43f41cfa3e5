package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venari/internal/models"
)

// Processor handles one task kind. The returned status must be terminal;
// a non-nil error routes through the retry mechanism instead.
type Processor interface {
	Kind() models.TaskKind
	Process(ctx context.Context, task *models.Task) (models.TaskStatus, error)
}

// Health is a point-in-time snapshot of the pool for the health endpoint.
type Health struct {
	Running        bool      `json:"running"`
	ItemsProcessed int64     `json:"items_processed"`
	LastPoll       time.Time `json:"last_poll"`
	Iteration      int64     `json:"iteration"`
	LastError      string    `json:"last_error,omitempty"`
}

// WorkerPool runs N workers over the shared queue, dispatching leased
// tasks to the processor registered for their kind.
type WorkerPool struct {
	mgr               *Manager
	processors        map[models.TaskKind]Processor
	concurrency       int
	pollInterval      time.Duration
	processingTimeout time.Duration
	logger            arbor.ILogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	running        atomic.Bool
	itemsProcessed atomic.Int64
	iteration      atomic.Int64
	lastPollNanos  atomic.Int64
	lastError      atomic.Value // string
}

// NewWorkerPool creates a worker pool from worker settings.
func NewWorkerPool(mgr *Manager, settings *models.WorkerSettings, logger arbor.ILogger) *WorkerPool {
	pollInterval, err := time.ParseDuration(settings.PollInterval)
	if err != nil || pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &WorkerPool{
		mgr:               mgr,
		processors:        make(map[models.TaskKind]Processor),
		concurrency:       settings.Concurrency,
		pollInterval:      pollInterval,
		processingTimeout: time.Duration(settings.ProcessingTimeoutSeconds) * time.Second,
		logger:            logger,
	}
}

// Register adds a processor for its task kind.
func (wp *WorkerPool) Register(p Processor) {
	wp.processors[p.Kind()] = p
	wp.logger.Debug().Str("kind", string(p.Kind())).Msg("Processor registered")
}

// Start launches the workers and the lease-reclaim sweep.
func (wp *WorkerPool) Start(parent context.Context) {
	wp.ctx, wp.cancel = context.WithCancel(parent)
	wp.running.Store(true)

	wp.logger.Info().Int("concurrency", wp.concurrency).Msg("Starting worker pool")

	for i := 0; i < wp.concurrency; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}

	wp.wg.Add(1)
	go wp.reclaimLoop()
}

// Stop signals the workers and waits for inflight tasks to finish.
func (wp *WorkerPool) Stop() {
	wp.logger.Info().Msg("Stopping worker pool")
	if wp.cancel != nil {
		wp.cancel()
	}
	wp.wg.Wait()
	wp.running.Store(false)
}

// Health returns the current pool snapshot.
func (wp *WorkerPool) Health() Health {
	h := Health{
		Running:        wp.running.Load(),
		ItemsProcessed: wp.itemsProcessed.Load(),
		Iteration:      wp.iteration.Load(),
	}
	if nanos := wp.lastPollNanos.Load(); nanos > 0 {
		h.LastPoll = time.Unix(0, nanos).UTC()
	}
	if v, ok := wp.lastError.Load().(string); ok {
		h.LastError = v
	}
	return h
}

// worker polls for leasable tasks. Starts are staggered to spread poll
// load across the interval.
func (wp *WorkerPool) worker(workerID int) {
	defer wp.wg.Done()

	stagger := (wp.pollInterval / time.Duration(wp.concurrency)) * time.Duration(workerID)
	if stagger > 0 {
		select {
		case <-time.After(stagger):
		case <-wp.ctx.Done():
			return
		}
	}

	wp.logger.Debug().Int("worker_id", workerID).Msg("Worker started")

	ticker := time.NewTicker(wp.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-wp.ctx.Done():
			wp.logger.Debug().Int("worker_id", workerID).Msg("Worker stopped")
			return
		case <-ticker.C:
			wp.iteration.Add(1)
			wp.lastPollNanos.Store(time.Now().UnixNano())
			if err := wp.processOne(workerID); err != nil && !errors.Is(err, ErrNoTask) {
				wp.lastError.Store(err.Error())
				wp.logger.Warn().Err(err).Int("worker_id", workerID).Msg("Error processing task")
			}
		}
	}
}

// processOne leases and runs a single task to completion or requeue.
func (wp *WorkerPool) processOne(workerID int) error {
	task, err := wp.mgr.Lease(wp.ctx)
	if err != nil {
		return err
	}

	processor, ok := wp.processors[task.Kind]
	if !ok {
		wp.logger.Error().
			Str("task_id", task.ID).
			Str("kind", string(task.Kind)).
			Msg("No processor registered for task kind")
		return wp.mgr.Fail(wp.ctx, task, models.Errorf(models.ErrInvalidState, "no processor for kind %s", task.Kind))
	}

	taskCtx := wp.ctx
	var cancel context.CancelFunc
	if wp.processingTimeout > 0 {
		taskCtx, cancel = context.WithTimeout(wp.ctx, wp.processingTimeout)
		defer cancel()
	}

	wp.logger.Debug().
		Str("task_id", task.ID).
		Str("tracking_id", task.TrackingID).
		Str("kind", string(task.Kind)).
		Int("worker_id", workerID).
		Msg("Processing task")

	start := time.Now()
	status, procErr := processor.Process(taskCtx, task)
	duration := time.Since(start)

	wp.itemsProcessed.Add(1)

	if procErr != nil {
		wp.logger.Error().
			Err(procErr).
			Str("task_id", task.ID).
			Str("tracking_id", task.TrackingID).
			Str("kind", string(task.Kind)).
			Dur("duration", duration).
			Msg("Task processing failed")
		return wp.mgr.Fail(wp.ctx, task, procErr)
	}

	// Status already terminal means the processor completed or requeued the
	// task itself (company-wait path).
	if task.Status.IsTerminal() {
		return nil
	}

	wp.logger.Info().
		Str("task_id", task.ID).
		Str("tracking_id", task.TrackingID).
		Str("kind", string(task.Kind)).
		Str("status", string(status)).
		Dur("duration", duration).
		Msg("Task completed")
	return wp.mgr.Complete(wp.ctx, task, status)
}

// reclaimLoop periodically returns expired leases to the queue.
func (wp *WorkerPool) reclaimLoop() {
	defer wp.wg.Done()

	interval := wp.pollInterval * 10
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-wp.ctx.Done():
			return
		case <-ticker.C:
			if n, err := wp.mgr.ReclaimExpired(wp.ctx); err != nil {
				wp.logger.Warn().Err(err).Msg("Lease reclaim sweep failed")
			} else if n > 0 {
				wp.logger.Info().Int("reclaimed", n).Msg("Expired leases reclaimed")
			}
		}
	}
}
