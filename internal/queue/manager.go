package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/venari/internal/models"
	storage "github.com/ternarybob/venari/internal/storage/badger"
)

// ErrNoTask is returned when no leasable task is ready.
var ErrNoTask = errors.New("no leasable task")

// Manager is the durable task queue over Badger. Leasing is a single
// transaction that moves exactly one pending task to processing, so at
// most one worker holds a task id at a time. Crashed leases are reclaimed
// by visibility expiry.
type Manager struct {
	db                *storage.BadgerDB
	visibilityTimeout time.Duration
	backoff           *Policy
	logger            arbor.ILogger
}

// NewManager creates a queue manager.
func NewManager(db *storage.BadgerDB, visibilityTimeout time.Duration, backoff *Policy, logger arbor.ILogger) *Manager {
	if visibilityTimeout <= 0 {
		visibilityTimeout = 5 * time.Minute
	}
	return &Manager{
		db:                db,
		visibilityTimeout: visibilityTimeout,
		backoff:           backoff,
		logger:            logger,
	}
}

// Enqueue persists a new pending task.
func (m *Manager) Enqueue(ctx context.Context, task *models.Task) error {
	if task.Status != models.TaskStatusPending {
		return models.Errorf(models.ErrInvalidState, "cannot enqueue task in status %s", task.Status)
	}
	if err := m.db.Store().Upsert(task.ID, task); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	m.logger.Debug().
		Str("task_id", task.ID).
		Str("tracking_id", task.TrackingID).
		Str("kind", string(task.Kind)).
		Msg("Task enqueued")
	return nil
}

// Lease claims the oldest ready pending task, moving it to processing
// inside one transaction. Returns ErrNoTask when nothing is ready.
func (m *Manager) Lease(ctx context.Context) (*models.Task, error) {
	var leased *models.Task

	err := m.db.Store().Badger().Update(func(txn *badgerdb.Txn) error {
		var candidates []models.Task
		query := badgerhold.Where("Status").Eq(models.TaskStatusPending).SortBy("CreatedAt")
		if err := m.db.Store().TxFind(txn, &candidates, query); err != nil {
			return err
		}

		now := time.Now().UTC()
		for i := range candidates {
			task := candidates[i]
			if task.VisibleAt.After(now) {
				continue
			}

			task.Status = models.TaskStatusProcessing
			task.VisibleAt = now.Add(m.visibilityTimeout)
			task.UpdatedAt = now
			task.Attempts = append(task.Attempts, models.TaskAttempt{LeasedAt: now})

			if err := m.db.Store().TxUpdate(txn, task.ID, &task); err != nil {
				return err
			}
			leased = &task
			return nil
		}
		return ErrNoTask
	})
	if err != nil {
		if errors.Is(err, ErrNoTask) {
			return nil, ErrNoTask
		}
		return nil, fmt.Errorf("failed to lease task: %w", err)
	}
	return leased, nil
}

// Complete finishes the current attempt with a terminal status.
func (m *Manager) Complete(ctx context.Context, task *models.Task, status models.TaskStatus) error {
	if !status.IsTerminal() {
		return models.Errorf(models.ErrInvalidState, "complete requires a terminal status, got %s", status)
	}
	if !task.Status.CanTransition(status) {
		return models.Errorf(models.ErrInvalidState, "illegal task transition %s -> %s", task.Status, status)
	}
	now := time.Now().UTC()
	task.Status = status
	task.UpdatedAt = now
	task.CompletedAt = now
	if n := len(task.Attempts); n > 0 {
		task.Attempts[n-1].CompletedAt = now
	}
	if err := m.db.Store().Upsert(task.ID, task); err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}
	return nil
}

// Fail records a processing error. Retryable errors under the retry budget
// re-enqueue the task with exponential backoff; everything else terminates
// it as failed. Budget-exhausted retries wait until the next UTC day, when
// the daily cost and search counters roll over.
func (m *Manager) Fail(ctx context.Context, task *models.Task, procErr error) error {
	now := time.Now().UTC()
	task.ErrorDetails = procErr.Error()
	if n := len(task.Attempts); n > 0 {
		task.Attempts[n-1].CompletedAt = now
		task.Attempts[n-1].Error = procErr.Error()
	}

	if models.IsRetryable(procErr) && task.RetryCount < task.MaxRetries {
		task.RetryCount++
		task.Status = models.TaskStatusPending
		delay := m.backoff.DelayFor(task.RetryCount)
		if models.KindOf(procErr) == models.ErrBudgetExhausted {
			if untilReset := nextUTCDay(now).Sub(now); untilReset > delay {
				delay = untilReset
			}
		}
		task.VisibleAt = now.Add(delay)
		task.UpdatedAt = now
		if err := m.db.Store().Upsert(task.ID, task); err != nil {
			return fmt.Errorf("failed to re-enqueue task for retry: %w", err)
		}
		m.logger.Warn().
			Str("task_id", task.ID).
			Str("tracking_id", task.TrackingID).
			Int("retry_count", task.RetryCount).
			Err(procErr).
			Msg("Task re-enqueued for retry")
		return nil
	}

	return m.Complete(ctx, task, models.TaskStatusFailed)
}

// nextUTCDay returns midnight UTC of the following day.
func nextUTCDay(now time.Time) time.Time {
	return now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
}

// Requeue completes the current attempt as success and enqueues a clone
// with the given pipeline state after a delay. The job-listing pipeline
// uses this for company-wait: same tracking id, same ancestry, new task id.
func (m *Manager) Requeue(ctx context.Context, task *models.Task, state models.PipelineState, delay time.Duration) (*models.Task, error) {
	now := time.Now().UTC()
	clone := *task
	clone.ID = newTaskID()
	clone.Status = models.TaskStatusPending
	clone.PipelineState = state
	clone.RetryCount = 0
	clone.Attempts = nil
	clone.ErrorDetails = ""
	clone.VisibleAt = now.Add(delay)
	clone.CreatedAt = now
	clone.UpdatedAt = now
	clone.CompletedAt = time.Time{}

	if err := m.db.Store().Upsert(clone.ID, &clone); err != nil {
		return nil, fmt.Errorf("failed to enqueue requeued task: %w", err)
	}
	if err := m.Complete(ctx, task, models.TaskStatusSuccess); err != nil {
		return nil, err
	}
	return &clone, nil
}

// ReclaimExpired returns processing tasks whose lease expired to the
// pending state, counting the lost lease as a retry. Called periodically
// by the worker pool.
func (m *Manager) ReclaimExpired(ctx context.Context) (int, error) {
	reclaimed := 0
	err := m.db.Store().Badger().Update(func(txn *badgerdb.Txn) error {
		var stuck []models.Task
		query := badgerhold.Where("Status").Eq(models.TaskStatusProcessing)
		if err := m.db.Store().TxFind(txn, &stuck, query); err != nil {
			return err
		}
		now := time.Now().UTC()
		for i := range stuck {
			task := stuck[i]
			if task.VisibleAt.After(now) {
				continue
			}
			if task.RetryCount < task.MaxRetries {
				task.RetryCount++
				task.Status = models.TaskStatusPending
				task.VisibleAt = now.Add(m.backoff.DelayFor(task.RetryCount))
			} else {
				task.Status = models.TaskStatusFailed
				task.CompletedAt = now
				task.ErrorDetails = "lease expired"
			}
			task.UpdatedAt = now
			if err := m.db.Store().TxUpdate(txn, task.ID, &task); err != nil {
				return err
			}
			reclaimed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim expired leases: %w", err)
	}
	return reclaimed, nil
}
