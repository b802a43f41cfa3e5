package interfaces

import (
	"context"

	"github.com/ternarybob/venari/internal/models"
)

// Scraper drives one configured source and returns normalized jobs.
// A scrape failure returns zero jobs plus the error; the caller owns
// source health accounting.
type Scraper interface {
	Scrape(ctx context.Context, cfg *models.ScrapeConfig) ([]models.NormalizedJob, error)
}
