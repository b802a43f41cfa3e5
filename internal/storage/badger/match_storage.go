package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
)

// MatchStorage implements the MatchStorage interface for Badger.
type MatchStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewMatchStorage creates a new MatchStorage instance.
func NewMatchStorage(db *BadgerDB, logger arbor.ILogger) interfaces.MatchStorage {
	return &MatchStorage{db: db, logger: logger}
}

func (s *MatchStorage) SaveMatch(ctx context.Context, match *models.JobMatch) error {
	if match.ID == "" {
		return fmt.Errorf("match ID is required")
	}
	if match.CreatedAt.IsZero() {
		match.CreatedAt = time.Now().UTC()
	}
	if err := s.db.Store().Upsert(match.ID, match); err != nil {
		return fmt.Errorf("failed to save match: %w", err)
	}
	return nil
}

func (s *MatchStorage) GetMatchByListing(ctx context.Context, listingID string) (*models.JobMatch, error) {
	var matches []models.JobMatch
	if err := s.db.Store().Find(&matches, badgerhold.Where("JobListingID").Eq(listingID)); err != nil {
		return nil, fmt.Errorf("failed to query match: %w", err)
	}
	if len(matches) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return &matches[0], nil
}

func (s *MatchStorage) ListMatches(ctx context.Context, limit int) ([]*models.JobMatch, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	var matches []models.JobMatch
	if err := s.db.Store().Find(&matches, query); err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	result := make([]*models.JobMatch, len(matches))
	for i := range matches {
		result[i] = &matches[i]
	}
	return result, nil
}
