package badger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
)

// ListingStorage implements the ListingStorage interface for Badger.
// The unique badgerhold index on JobListing.URL enforces normalized-URL
// uniqueness across all sources.
type ListingStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewListingStorage creates a new ListingStorage instance.
func NewListingStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ListingStorage {
	return &ListingStorage{db: db, logger: logger}
}

func (s *ListingStorage) InsertListing(ctx context.Context, listing *models.JobListing) error {
	if listing.ID == "" {
		return fmt.Errorf("listing ID is required")
	}
	if listing.URL == "" {
		return fmt.Errorf("listing URL is required")
	}
	now := time.Now().UTC()
	if listing.CreatedAt.IsZero() {
		listing.CreatedAt = now
	}
	listing.UpdatedAt = now
	if err := s.db.Store().Insert(listing.ID, listing); err != nil {
		if err == badgerhold.ErrUniqueExists || strings.Contains(err.Error(), "unique") {
			return interfaces.ErrDuplicateURL
		}
		return fmt.Errorf("failed to insert listing: %w", err)
	}
	return nil
}

func (s *ListingStorage) GetListing(ctx context.Context, id string) (*models.JobListing, error) {
	var listing models.JobListing
	if err := s.db.Store().Get(id, &listing); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &listing, nil
}

func (s *ListingStorage) GetListingByURL(ctx context.Context, normalizedURL string) (*models.JobListing, error) {
	var listings []models.JobListing
	if err := s.db.Store().Find(&listings, badgerhold.Where("URL").Eq(normalizedURL)); err != nil {
		return nil, fmt.Errorf("failed to query listing by url: %w", err)
	}
	if len(listings) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return &listings[0], nil
}

func (s *ListingStorage) UpdateListing(ctx context.Context, listing *models.JobListing) error {
	listing.UpdatedAt = time.Now().UTC()
	if err := s.db.Store().Update(listing.ID, listing); err != nil {
		if err == badgerhold.ErrNotFound {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("failed to update listing: %w", err)
	}
	return nil
}
