package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
)

const (
	// DefaultGoogleSearchBaseURL is the Custom Search JSON API endpoint.
	DefaultGoogleSearchBaseURL = "https://www.googleapis.com/customsearch/v1"

	// DefaultSearchTimeout is the default HTTP timeout for search requests.
	DefaultSearchTimeout = 15 * time.Second

	// DefaultSearchRateLimit is the default rate limit (requests per second).
	DefaultSearchRateLimit = 1
)

// GoogleSearchClient queries the Google Custom Search JSON API.
type GoogleSearchClient struct {
	baseURL    string
	apiKey     string
	engineID   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     arbor.ILogger
}

// GoogleOption configures the GoogleSearchClient.
type GoogleOption func(*GoogleSearchClient)

// WithGoogleBaseURL sets a custom API base URL.
func WithGoogleBaseURL(baseURL string) GoogleOption {
	return func(c *GoogleSearchClient) {
		c.baseURL = baseURL
	}
}

// WithGoogleHTTPClient sets a custom HTTP client.
func WithGoogleHTTPClient(httpClient *http.Client) GoogleOption {
	return func(c *GoogleSearchClient) {
		c.httpClient = httpClient
	}
}

// NewGoogleSearchClient creates a Custom Search client.
func NewGoogleSearchClient(apiKey, engineID string, logger arbor.ILogger, opts ...GoogleOption) *GoogleSearchClient {
	c := &GoogleSearchClient{
		baseURL:    DefaultGoogleSearchBaseURL,
		apiKey:     apiKey,
		engineID:   engineID,
		httpClient: &http.Client{Timeout: DefaultSearchTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultSearchRateLimit), 1),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type googleSearchResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

// Search runs one Custom Search query and returns the ordered hits.
func (c *GoogleSearchClient) Search(ctx context.Context, query string, maxResults int) ([]interfaces.SearchResult, error) {
	if c.apiKey == "" || c.engineID == "" {
		return nil, models.Errorf(models.ErrMissingConfig, "google search requires api key and engine id")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, models.NewWorkerError(models.ErrTransientNetwork, err)
	}
	if maxResults <= 0 || maxResults > 10 {
		maxResults = 10
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.engineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, models.NewWorkerError(models.ErrPermanentSource, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.NewWorkerError(models.ErrTransientNetwork, fmt.Errorf("google search: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, models.Errorf(models.KindForHTTPStatus(resp.StatusCode), "google search: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewWorkerError(models.ErrTransientNetwork, err)
	}

	var parsed googleSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, models.NewWorkerError(models.ErrParse, fmt.Errorf("google search response: %w", err))
	}

	results := make([]interfaces.SearchResult, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.Link == "" {
			continue
		}
		results = append(results, interfaces.SearchResult{
			Title:   item.Title,
			URL:     item.Link,
			Snippet: item.Snippet,
		})
	}

	c.logger.Debug().
		Str("query", query).
		Int("results", len(results)).
		Msg("Google search complete")
	return results, nil
}
