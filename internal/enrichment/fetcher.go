package enrichment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
)

// Fetcher retrieves HTML pages under hard bounds: request timeout, body
// cap, redirect limit, single shared rate limiter. Redirects to a
// different registrable domain are refused.
type Fetcher struct {
	client    *http.Client
	userAgent string
	bodyCap   int
	limiter   *rate.Limiter
	logger    arbor.ILogger
}

// NewFetcher creates a bounded page fetcher from fetcher config.
func NewFetcher(cfg *common.FetcherConfig, logger arbor.ILogger) *Fetcher {
	f := &Fetcher{
		userAgent: cfg.UserAgent,
		bodyCap:   cfg.MaxHTMLSampleLength,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitPerSecond),
		logger:    logger,
	}
	f.client = &http.Client{
		Timeout: cfg.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > cfg.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", cfg.MaxRedirects)
			}
			if !common.SameHost(via[0].URL.String(), req.URL.String()) {
				return fmt.Errorf("redirect crossed domains: %s", req.URL.Host)
			}
			return nil
		},
	}
	return f
}

// Fetch retrieves the URL and returns the capped body.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*interfaces.Page, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, models.NewWorkerError(models.ErrTransientNetwork, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, models.NewWorkerError(models.ErrPermanentSource, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, models.NewWorkerError(models.ErrTransientNetwork, fmt.Errorf("fetch %s: %w", rawURL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, models.Errorf(models.KindForHTTPStatus(resp.StatusCode), "fetch %s: status %d", rawURL, resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, int64(f.bodyCap)+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, models.NewWorkerError(models.ErrTransientNetwork, fmt.Errorf("read body %s: %w", rawURL, err))
	}

	page := &interfaces.Page{
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
	}
	if len(body) > f.bodyCap {
		page.Body = string(body[:f.bodyCap])
		page.Truncated = true
	} else {
		page.Body = string(body)
	}

	f.logger.Debug().
		Str("url", rawURL).
		Int("status", page.StatusCode).
		Int("bytes", len(page.Body)).
		Bool("truncated", page.Truncated).
		Msg("Page fetched")
	return page, nil
}

// SampleText extracts readable text from a fetched page, dropping script,
// style and navigation chrome. The result is capped at maxLen runes.
func SampleText(page *interfaces.Page, maxLen int) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Body))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript, nav, header, footer, svg").Remove()

	text := doc.Find("body").Text()
	if text == "" {
		text = doc.Text()
	}
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if maxLen > 0 && len(runes) > maxLen {
		return string(runes[:maxLen])
	}
	return text
}
