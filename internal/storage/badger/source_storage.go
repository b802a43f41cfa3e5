package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
)

// SourceStorage implements the SourceStorage interface for Badger.
type SourceStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSourceStorage creates a new SourceStorage instance.
func NewSourceStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SourceStorage {
	return &SourceStorage{db: db, logger: logger}
}

func (s *SourceStorage) SaveSource(ctx context.Context, source *models.JobSource) error {
	if source.ID == "" {
		return fmt.Errorf("source ID is required")
	}
	now := time.Now().UTC()
	if source.CreatedAt.IsZero() {
		source.CreatedAt = now
	}
	source.UpdatedAt = now
	if err := s.db.Store().Upsert(source.ID, source); err != nil {
		return fmt.Errorf("failed to save source: %w", err)
	}
	return nil
}

func (s *SourceStorage) GetSource(ctx context.Context, id string) (*models.JobSource, error) {
	var source models.JobSource
	if err := s.db.Store().Get(id, &source); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get source: %w", err)
	}
	return &source, nil
}

func (s *SourceStorage) UpdateSource(ctx context.Context, source *models.JobSource) error {
	return s.SaveSource(ctx, source)
}

// FindSourceByURL matches sources by normalized config URL. Discovery uses
// this to merge rather than duplicate.
func (s *SourceStorage) FindSourceByURL(ctx context.Context, normalizedURL string) (*models.JobSource, error) {
	var sources []models.JobSource
	if err := s.db.Store().Find(&sources, badgerhold.Where("ID").Ne("")); err != nil {
		return nil, fmt.Errorf("failed to scan sources: %w", err)
	}
	for i := range sources {
		if common.NormalizeURL(sources[i].Config.URL) == normalizedURL {
			return &sources[i], nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (s *SourceStorage) ListSourcesByStatus(ctx context.Context, status models.SourceStatus) ([]*models.JobSource, error) {
	var sources []models.JobSource
	if err := s.db.Store().Find(&sources, badgerhold.Where("Status").Eq(status)); err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	result := make([]*models.JobSource, len(sources))
	for i := range sources {
		result[i] = &sources[i]
	}
	return result, nil
}
