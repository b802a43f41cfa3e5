package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
)

// TaskStorage implements the TaskStorage interface for Badger.
type TaskStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewTaskStorage creates a new TaskStorage instance.
func NewTaskStorage(db *BadgerDB, logger arbor.ILogger) interfaces.TaskStorage {
	return &TaskStorage{db: db, logger: logger}
}

func (s *TaskStorage) SaveTask(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		return fmt.Errorf("task ID is required")
	}
	if err := s.db.Store().Upsert(task.ID, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

func (s *TaskStorage) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	if err := s.db.Store().Get(id, &task); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

func (s *TaskStorage) UpdateTask(ctx context.Context, task *models.Task) error {
	return s.SaveTask(ctx, task)
}

func (s *TaskStorage) ListTasks(ctx context.Context, opts *interfaces.TaskListOptions) ([]*models.Task, error) {
	query := badgerhold.Where("ID").Ne("")
	if opts != nil {
		if opts.Status != "" {
			query = query.And("Status").Eq(opts.Status)
		}
		if opts.Kind != "" {
			query = query.And("Kind").Eq(opts.Kind)
		}
		if opts.TrackingID != "" {
			query = query.And("TrackingID").Eq(opts.TrackingID)
		}
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
	}
	query = query.SortBy("CreatedAt")

	var tasks []models.Task
	if err := s.db.Store().Find(&tasks, query); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	result := make([]*models.Task, len(tasks))
	for i := range tasks {
		result[i] = &tasks[i]
	}
	return result, nil
}

func (s *TaskStorage) FindLineageTasks(ctx context.Context, trackingID, targetURL string, kind models.TaskKind) ([]*models.Task, error) {
	var tasks []models.Task
	query := badgerhold.Where("TrackingID").Eq(trackingID).
		And("TargetURL").Eq(targetURL).
		And("Kind").Eq(kind)
	if err := s.db.Store().Find(&tasks, query); err != nil {
		return nil, fmt.Errorf("failed to query lineage tasks: %w", err)
	}
	result := make([]*models.Task, len(tasks))
	for i := range tasks {
		result[i] = &tasks[i]
	}
	return result, nil
}

func (s *TaskStorage) CountByStatus(ctx context.Context) (map[models.TaskStatus]int, error) {
	counts := make(map[models.TaskStatus]int)
	for _, status := range []models.TaskStatus{
		models.TaskStatusPending, models.TaskStatusProcessing, models.TaskStatusSuccess,
		models.TaskStatusFiltered, models.TaskStatusSkipped, models.TaskStatusFailed,
	} {
		n, err := s.db.Store().Count(&models.Task{}, badgerhold.Where("Status").Eq(status))
		if err != nil {
			return nil, fmt.Errorf("failed to count tasks: %w", err)
		}
		counts[status] = int(n)
	}
	return counts, nil
}
