// Package scraper turns a declarative source config into normalized jobs.
// One service handles the three source types; per-type parsing lives in
// api.go, rss.go and html.go.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venari/internal/models"
)

const (
	// DefaultTimeout bounds one source fetch.
	DefaultTimeout = 30 * time.Second

	// maxResponseBytes caps a source response body.
	maxResponseBytes = 10 << 20
)

// Service is the generic scraper.
type Service struct {
	httpClient *http.Client
	userAgent  string
	logger     arbor.ILogger
}

// Option configures the Service.
type Option func(*Service)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		s.httpClient = client
	}
}

// WithUserAgent sets the outgoing User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *Service) {
		s.userAgent = ua
	}
}

// NewService creates a generic scraper.
func NewService(logger arbor.ILogger, opts ...Option) *Service {
	s := &Service{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  "venari/1.0 (+https://github.com/ternarybob/venari)",
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scrape fetches the configured source and returns normalized jobs. Any
// failure returns zero jobs plus the error; the caller owns source health
// accounting.
func (s *Service) Scrape(ctx context.Context, cfg *models.ScrapeConfig) ([]models.NormalizedJob, error) {
	if err := cfg.Validate(); err != nil {
		return nil, models.NewWorkerError(models.ErrPermanentSource, err)
	}

	body, err := s.fetch(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var jobs []models.NormalizedJob
	switch cfg.Type {
	case models.SourceTypeAPI:
		jobs, err = parseAPI(body, cfg)
	case models.SourceTypeRSS:
		jobs, err = parseRSS(body, cfg)
	case models.SourceTypeHTML:
		jobs, err = parseHTML(body, cfg)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("url", cfg.URL).
		Str("type", cfg.Type).
		Int("jobs", len(jobs)).
		Msg("Source scraped")
	return jobs, nil
}

// fetch retrieves the source body with auth and headers applied.
func (s *Service) fetch(ctx context.Context, cfg *models.ScrapeConfig) ([]byte, error) {
	target := cfg.URL
	if cfg.AuthType == models.AuthTypeQuery {
		parsed, err := url.Parse(target)
		if err != nil {
			return nil, models.NewWorkerError(models.ErrPermanentSource, err)
		}
		q := parsed.Query()
		q.Set(cfg.AuthParam, cfg.APIKey)
		parsed.RawQuery = q.Encode()
		target = parsed.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, models.NewWorkerError(models.ErrPermanentSource, err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}
	switch cfg.AuthType {
	case models.AuthTypeHeader:
		req.Header.Set(cfg.AuthParam, cfg.APIKey)
	case models.AuthTypeBearer:
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, models.NewWorkerError(models.ErrTransientNetwork, fmt.Errorf("fetch source %s: %w", cfg.URL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, models.Errorf(models.KindForHTTPStatus(resp.StatusCode), "fetch source %s: status %d", cfg.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, models.NewWorkerError(models.ErrTransientNetwork, err)
	}
	return body, nil
}
