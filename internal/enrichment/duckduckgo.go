package enrichment

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
)

// DefaultDuckDuckGoBaseURL is the no-JavaScript HTML results endpoint.
const DefaultDuckDuckGoBaseURL = "https://html.duckduckgo.com/html/"

// DuckDuckGoClient scrapes the DuckDuckGo HTML results page. It needs no
// API key, which makes it the fallback when the primary provider is
// unavailable or over quota.
type DuckDuckGoClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     arbor.ILogger
}

// DuckDuckGoOption configures the DuckDuckGoClient.
type DuckDuckGoOption func(*DuckDuckGoClient)

// WithDuckDuckGoBaseURL sets a custom results endpoint.
func WithDuckDuckGoBaseURL(baseURL string) DuckDuckGoOption {
	return func(c *DuckDuckGoClient) {
		c.baseURL = baseURL
	}
}

// WithDuckDuckGoHTTPClient sets a custom HTTP client.
func WithDuckDuckGoHTTPClient(httpClient *http.Client) DuckDuckGoOption {
	return func(c *DuckDuckGoClient) {
		c.httpClient = httpClient
	}
}

// NewDuckDuckGoClient creates a DuckDuckGo HTML search client.
func NewDuckDuckGoClient(logger arbor.ILogger, opts ...DuckDuckGoOption) *DuckDuckGoClient {
	c := &DuckDuckGoClient{
		baseURL:    DefaultDuckDuckGoBaseURL,
		userAgent:  "venari/1.0 (+https://github.com/ternarybob/venari)",
		httpClient: &http.Client{Timeout: DefaultSearchTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultSearchRateLimit), 1),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search scrapes one results page and returns the ordered hits.
func (c *DuckDuckGoClient) Search(ctx context.Context, query string, maxResults int) ([]interfaces.SearchResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, models.NewWorkerError(models.ErrTransientNetwork, err)
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	params := url.Values{}
	params.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, models.NewWorkerError(models.ErrPermanentSource, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.NewWorkerError(models.ErrTransientNetwork, fmt.Errorf("duckduckgo search: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, models.Errorf(models.KindForHTTPStatus(resp.StatusCode), "duckduckgo search: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, models.NewWorkerError(models.ErrParse, fmt.Errorf("duckduckgo results: %w", err))
	}

	var results []interfaces.SearchResult
	doc.Find("div.result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		results = append(results, interfaces.SearchResult{
			Title:   strings.TrimSpace(link.Text()),
			URL:     cleanDuckDuckGoURL(href),
			Snippet: strings.TrimSpace(sel.Find(".result__snippet").Text()),
		})
		return len(results) < maxResults
	})

	c.logger.Debug().
		Str("query", query).
		Int("results", len(results)).
		Msg("DuckDuckGo search complete")
	return results, nil
}

// cleanDuckDuckGoURL unwraps the uddg redirect parameter when present.
func cleanDuckDuckGoURL(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		if decoded, derr := url.QueryUnescape(target); derr == nil {
			return decoded
		}
		return target
	}
	if parsed.Scheme == "" {
		return "https:" + href
	}
	return href
}
