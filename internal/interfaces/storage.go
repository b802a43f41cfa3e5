package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/venari/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateURL is returned when a listing insert violates normalized-URL
// uniqueness.
var ErrDuplicateURL = errors.New("listing with normalized url already exists")

// ErrConflict is returned when a compare-and-set update loses the race.
var ErrConflict = errors.New("record modified concurrently")

// TaskListOptions filter task queries.
type TaskListOptions struct {
	Status     models.TaskStatus
	Kind       models.TaskKind
	TrackingID string
	Limit      int
}

// TaskStorage persists task records. Leasing goes through the queue manager,
// which owns the atomic pending->processing transition.
type TaskStorage interface {
	SaveTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	UpdateTask(ctx context.Context, task *models.Task) error
	ListTasks(ctx context.Context, opts *TaskListOptions) ([]*models.Task, error)

	// FindLineageTasks returns tasks in a tracking lineage targeting the
	// given normalized URL and kind, for spawn-safety checks.
	FindLineageTasks(ctx context.Context, trackingID, targetURL string, kind models.TaskKind) ([]*models.Task, error)

	CountByStatus(ctx context.Context) (map[models.TaskStatus]int, error)
}

// CompanyStorage persists company records keyed by normalized name.
type CompanyStorage interface {
	SaveCompany(ctx context.Context, company *models.Company) error
	GetCompany(ctx context.Context, normalizedName string) (*models.Company, error)

	// UpdateCompanyCAS updates a company only if its stored UpdatedAt still
	// equals expected; otherwise ErrConflict.
	UpdateCompanyCAS(ctx context.Context, company *models.Company, expected time.Time) error

	// TransitionStatus applies a status change, rejecting transitions
	// outside the company state machine with an invalid-state error.
	TransitionStatus(ctx context.Context, normalizedName string, to models.CompanyAnalysisStatus) (*models.Company, error)
}

// SourceStorage persists configured scrape targets.
type SourceStorage interface {
	SaveSource(ctx context.Context, source *models.JobSource) error
	GetSource(ctx context.Context, id string) (*models.JobSource, error)
	UpdateSource(ctx context.Context, source *models.JobSource) error
	FindSourceByURL(ctx context.Context, normalizedURL string) (*models.JobSource, error)
	ListSourcesByStatus(ctx context.Context, status models.SourceStatus) ([]*models.JobSource, error)
}

// ListingStorage persists scraped postings. Inserts enforce normalized-URL
// uniqueness across sources.
type ListingStorage interface {
	InsertListing(ctx context.Context, listing *models.JobListing) error
	GetListing(ctx context.Context, id string) (*models.JobListing, error)
	GetListingByURL(ctx context.Context, normalizedURL string) (*models.JobListing, error)
	UpdateListing(ctx context.Context, listing *models.JobListing) error
}

// MatchStorage persists terminal job matches.
type MatchStorage interface {
	SaveMatch(ctx context.Context, match *models.JobMatch) error
	GetMatchByListing(ctx context.Context, listingID string) (*models.JobMatch, error)
	ListMatches(ctx context.Context, limit int) ([]*models.JobMatch, error)
}

// KeyValueStorage holds config blobs and bounded counters.
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error

	// IncrementCounter atomically adds delta to a named counter and returns
	// the new value.
	IncrementCounter(ctx context.Context, key string, delta int64) (int64, error)
	GetCounter(ctx context.Context, key string) (int64, error)
}

// StorageManager aggregates the per-record stores over one database.
type StorageManager interface {
	TaskStorage() TaskStorage
	CompanyStorage() CompanyStorage
	SourceStorage() SourceStorage
	ListingStorage() ListingStorage
	MatchStorage() MatchStorage
	KeyValueStorage() KeyValueStorage
	Close() error
}
