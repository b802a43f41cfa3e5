package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
)

const (
	// DefaultWikipediaBaseURL is the Wikipedia REST API base.
	DefaultWikipediaBaseURL = "https://en.wikipedia.org/api/rest_v1"

	// DefaultWikidataBaseURL is the Wikidata action API base.
	DefaultWikidataBaseURL = "https://www.wikidata.org/w/api.php"

	// DefaultWikiTimeout is the default HTTP timeout.
	DefaultWikiTimeout = 15 * time.Second

	// DefaultWikiRateLimit is the default rate limit (requests per second).
	DefaultWikiRateLimit = 2
)

// Wikidata property ids used for company facts.
const (
	propOfficialWebsite = "P856"
	propHeadquarters    = "P159"
	propIndustry        = "P452"
	propInception       = "P571"
	propEmployeeCount   = "P1128"
)

// WikipediaClient resolves company facts from the Wikipedia summary
// endpoint and Wikidata entity claims.
type WikipediaClient struct {
	wikipediaURL string
	wikidataURL  string
	userAgent    string
	httpClient   *http.Client
	limiter      *rate.Limiter
	logger       arbor.ILogger
}

// WikipediaOption configures the WikipediaClient.
type WikipediaOption func(*WikipediaClient)

// WithWikipediaBaseURL sets a custom Wikipedia API base URL.
func WithWikipediaBaseURL(baseURL string) WikipediaOption {
	return func(c *WikipediaClient) {
		c.wikipediaURL = baseURL
	}
}

// WithWikidataBaseURL sets a custom Wikidata API base URL.
func WithWikidataBaseURL(baseURL string) WikipediaOption {
	return func(c *WikipediaClient) {
		c.wikidataURL = baseURL
	}
}

// WithWikiHTTPClient sets a custom HTTP client.
func WithWikiHTTPClient(httpClient *http.Client) WikipediaOption {
	return func(c *WikipediaClient) {
		c.httpClient = httpClient
	}
}

// WithWikiUserAgent sets the outgoing User-Agent header.
func WithWikiUserAgent(ua string) WikipediaOption {
	return func(c *WikipediaClient) {
		c.userAgent = ua
	}
}

// NewWikipediaClient creates a Wikipedia/Wikidata lookup client.
func NewWikipediaClient(logger arbor.ILogger, opts ...WikipediaOption) *WikipediaClient {
	c := &WikipediaClient{
		wikipediaURL: DefaultWikipediaBaseURL,
		wikidataURL:  DefaultWikidataBaseURL,
		userAgent:    "venari/1.0 (+https://github.com/ternarybob/venari)",
		httpClient:   &http.Client{Timeout: DefaultWikiTimeout},
		limiter:      rate.NewLimiter(rate.Limit(DefaultWikiRateLimit), DefaultWikiRateLimit),
		logger:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type wikiSummary struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	Description string `json:"description"`
	WikibaseID  string `json:"wikibase_item"`
}

type wikidataEntities struct {
	Entities map[string]struct {
		Claims map[string][]wikidataClaim `json:"claims"`
	} `json:"entities"`
}

type wikidataClaim struct {
	MainSnak struct {
		DataValue struct {
			Type  string          `json:"type"`
			Value json.RawMessage `json:"value"`
		} `json:"datavalue"`
	} `json:"mainsnak"`
}

// Lookup resolves facts for a company name. A missing article is not an
// error: the returned facts are simply empty apart from Source.
func (c *WikipediaClient) Lookup(ctx context.Context, companyName string) (*interfaces.CompanyFacts, error) {
	facts := &interfaces.CompanyFacts{Source: "wikipedia"}

	summary, err := c.fetchSummary(ctx, companyName)
	if err != nil {
		return nil, err
	}
	if summary == nil || summary.Type == "disambiguation" {
		return facts, nil
	}

	facts.About = summary.Extract

	if summary.WikibaseID != "" {
		if err := c.applyClaims(ctx, summary.WikibaseID, facts); err != nil {
			// Claims are best effort; the summary extract alone is useful.
			c.logger.Debug().Err(err).Str("entity", summary.WikibaseID).Msg("Wikidata claims lookup failed")
		}
	}

	c.logger.Debug().
		Str("company", companyName).
		Bool("has_about", facts.About != "").
		Str("website", facts.Website).
		Msg("Wikipedia lookup complete")
	return facts, nil
}

func (c *WikipediaClient) fetchSummary(ctx context.Context, title string) (*wikiSummary, error) {
	endpoint := fmt.Sprintf("%s/page/summary/%s", c.wikipediaURL, url.PathEscape(title))

	var summary wikiSummary
	status, err := c.getJSON(ctx, endpoint, &summary)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	return &summary, nil
}

func (c *WikipediaClient) applyClaims(ctx context.Context, entityID string, facts *interfaces.CompanyFacts) error {
	params := url.Values{}
	params.Set("action", "wbgetentities")
	params.Set("ids", entityID)
	params.Set("props", "claims")
	params.Set("format", "json")

	var entities wikidataEntities
	status, err := c.getJSON(ctx, c.wikidataURL+"?"+params.Encode(), &entities)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return nil
	}

	entity, ok := entities.Entities[entityID]
	if !ok {
		return nil
	}

	if v := firstStringClaim(entity.Claims[propOfficialWebsite]); v != "" {
		facts.Website = v
	}
	if v := firstTimeClaim(entity.Claims[propInception]); v != "" {
		facts.Founded = v
	}
	if v := firstQuantityClaim(entity.Claims[propEmployeeCount]); v > 0 {
		facts.EmployeeCount = v
	}
	return nil
}

func (c *WikipediaClient) getJSON(ctx context.Context, endpoint string, out interface{}) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, models.NewWorkerError(models.ErrTransientNetwork, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, models.NewWorkerError(models.ErrPermanentSource, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, models.NewWorkerError(models.ErrTransientNetwork, fmt.Errorf("wiki request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, nil
	}
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, models.Errorf(models.KindForHTTPStatus(resp.StatusCode), "wiki request: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, models.NewWorkerError(models.ErrTransientNetwork, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, models.NewWorkerError(models.ErrParse, fmt.Errorf("wiki response: %w", err))
	}
	return resp.StatusCode, nil
}

func firstStringClaim(claims []wikidataClaim) string {
	for _, claim := range claims {
		if claim.MainSnak.DataValue.Type != "string" {
			continue
		}
		var v string
		if err := json.Unmarshal(claim.MainSnak.DataValue.Value, &v); err == nil && v != "" {
			return v
		}
	}
	return ""
}

func firstTimeClaim(claims []wikidataClaim) string {
	for _, claim := range claims {
		if claim.MainSnak.DataValue.Type != "time" {
			continue
		}
		var v struct {
			Time string `json:"time"`
		}
		if err := json.Unmarshal(claim.MainSnak.DataValue.Value, &v); err == nil && v.Time != "" {
			// Wikidata times look like +1998-09-04T00:00:00Z; keep the year.
			t := strings.TrimPrefix(v.Time, "+")
			if len(t) >= 4 {
				return t[:4]
			}
			return t
		}
	}
	return ""
}

func firstQuantityClaim(claims []wikidataClaim) int {
	for _, claim := range claims {
		if claim.MainSnak.DataValue.Type != "quantity" {
			continue
		}
		var v struct {
			Amount string `json:"amount"`
		}
		if err := json.Unmarshal(claim.MainSnak.DataValue.Value, &v); err == nil {
			amount := strings.TrimPrefix(v.Amount, "+")
			if n, perr := strconv.Atoi(amount); perr == nil && n > 0 {
				return n
			}
		}
	}
	return 0
}
