package processors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
	"github.com/ternarybob/venari/internal/queue"
)

// DiscoveryProcessor types a candidate source URL and persists a JobSource
// record: exact vendor rules first, selector probing on a fetched sample as
// the fallback.
type DiscoveryProcessor struct {
	deps *Deps
}

// NewDiscoveryProcessor creates the source-discovery processor.
func NewDiscoveryProcessor(deps *Deps) *DiscoveryProcessor {
	return &DiscoveryProcessor{deps: deps}
}

func (p *DiscoveryProcessor) Kind() models.TaskKind { return models.TaskKindSourceDiscovery }

// Process types the URL, persists or merges the JobSource, and spawns one
// ScrapeSource task for it.
func (p *DiscoveryProcessor) Process(ctx context.Context, task *models.Task) (models.TaskStatus, error) {
	payload, err := task.SourceDiscoveryPayload()
	if err != nil {
		return models.TaskStatusFailed, models.NewWorkerError(models.ErrPermanentSource, err)
	}
	normalized := common.NormalizeURL(payload.URL)
	if normalized == "" {
		return models.TaskStatusFailed, models.Errorf(models.ErrPermanentSource, "source discovery without a url")
	}

	config, confidence, err := p.detect(ctx, task, normalized, payload)
	if err != nil {
		return models.TaskStatusFailed, err
	}
	if config == nil {
		p.deps.Logger.Info().Str("url", normalized).Msg("No scrapeable source detected")
		return models.TaskStatusSkipped, nil
	}

	source, err := p.persist(ctx, normalized, payload, config, confidence)
	if err != nil {
		return models.TaskStatusFailed, err
	}

	scrape := &models.ScrapeSourcePayload{SourceID: source.ID}
	if _, serr := p.deps.Spawner.Spawn(ctx, task, models.TaskKindScrapeSource, normalized, scrape, task.MaxRetries); serr != nil && !queue.IsSpawnRejection(serr) {
		return models.TaskStatusFailed, serr
	}

	p.deps.Logger.Info().
		Str("task_id", task.ID).
		Str("source_id", source.ID).
		Str("type", source.SourceType).
		Str("confidence", string(source.DiscoveryConfidence)).
		Str("status", string(source.Status)).
		Msg("Source discovered")
	return models.TaskStatusSuccess, nil
}

// detect types the URL. Greenhouse boards and feeds are high confidence,
// Workday tenants medium; anything else goes through selector probing on a
// fetched HTML sample, falling back to agent-proposed selectors when none
// of the known patterns match.
func (p *DiscoveryProcessor) detect(ctx context.Context, task *models.Task, normalized string, payload *models.SourceDiscoveryPayload) (*models.ScrapeConfig, models.DiscoveryConfidence, error) {
	host := common.Hostname(normalized)

	if slug, ok := common.BoardSlug(normalized); ok {
		if strings.Contains(host, "greenhouse.io") {
			return greenhouseConfig(slug, payload.CompanyName), models.ConfidenceHigh, nil
		}
		if strings.Contains(host, "lever.co") {
			return leverConfig(slug, payload.CompanyName), models.ConfidenceHigh, nil
		}
		if strings.Contains(host, "myworkdayjobs.com") {
			return workdayConfig(normalized, payload.CompanyName), models.ConfidenceMedium, nil
		}
	}

	if looksLikeFeed(normalized) {
		return rssConfig(normalized, payload.CompanyName), models.ConfidenceHigh, nil
	}

	page, err := p.deps.Fetcher.Fetch(ctx, normalized)
	if err != nil {
		return nil, "", err
	}
	if isFeedBody(page.Body) {
		return rssConfig(normalized, payload.CompanyName), models.ConfidenceHigh, nil
	}

	config, confidence, err := probeSelectors(page.Body, normalized, payload.CompanyName)
	if err != nil || config != nil {
		return config, confidence, err
	}
	return p.aiSelectors(ctx, task, page.Body, normalized, payload.CompanyName)
}

// selectorSampleLimit caps the HTML handed to the selector-discovery agent.
const selectorSampleLimit = 20000

// aiSelectors asks the selector-discovery agent for a job selector and
// validates the proposal by re-probing the same sample. An unconfigured
// agent or an unverifiable proposal means no source, not a failure.
func (p *DiscoveryProcessor) aiSelectors(ctx context.Context, task *models.Task, body, url, companyName string) (*models.ScrapeConfig, models.DiscoveryConfidence, error) {
	sample := body
	if len(sample) > selectorSampleLimit {
		sample = sample[:selectorSampleLimit]
	}

	proposal, _, err := p.deps.Agent.ProposeSelectors(ctx, task.ID, &interfaces.SelectorDiscoveryInput{
		URL:         url,
		CompanyName: companyName,
		PageSample:  sample,
	})
	if err != nil {
		if models.KindOf(err) == models.ErrMissingConfig {
			p.deps.Logger.Info().Str("url", url).Msg("No selector-discovery agent configured, heuristics only")
			return nil, "", nil
		}
		return nil, "", err
	}
	if proposal.JobSelector == "" {
		return nil, "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, "", models.NewWorkerError(models.ErrParse, err)
	}
	if linkedItemCount(doc, proposal.JobSelector) < 2 {
		p.deps.Logger.Info().
			Str("url", url).
			Str("selector", proposal.JobSelector).
			Msg("Agent selector proposal did not verify against the sample")
		return nil, "", nil
	}

	fields := proposal.Fields
	if len(fields) == 0 {
		fields = map[string]string{
			"title": "a",
			"url":   "a@href",
		}
	}
	return &models.ScrapeConfig{
		Type:        models.SourceTypeHTML,
		URL:         url,
		JobSelector: proposal.JobSelector,
		Fields:      fields,
		CompanyName: companyName,
	}, models.ConfidenceLow, nil
}

// persist stores the detected source, merging into an existing
// pending-validation record for the same URL and keeping the higher
// confidence.
func (p *DiscoveryProcessor) persist(ctx context.Context, normalized string, payload *models.SourceDiscoveryPayload, config *models.ScrapeConfig, confidence models.DiscoveryConfidence) (*models.JobSource, error) {
	sources := p.deps.Store.SourceStorage()
	now := time.Now().UTC()

	existing, err := sources.FindSourceByURL(ctx, normalized)
	if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		if existing.Status == models.SourceStatusPendingValidation && confidence.Rank() > existing.DiscoveryConfidence.Rank() {
			existing.Config = *config
			existing.SourceType = config.Type
			existing.DiscoveryConfidence = confidence
			if confidence == models.ConfidenceHigh && !existing.ValidationRequired {
				existing.Status = models.SourceStatusActive
			}
			existing.UpdatedAt = now
			if err := sources.UpdateSource(ctx, existing); err != nil {
				return nil, err
			}
		}
		return existing, nil
	}

	source := &models.JobSource{
		ID:                  common.NewID(),
		CompanyID:           payload.CompanyID,
		SourceType:          config.Type,
		Config:              *config,
		DiscoveryConfidence: confidence,
		Status:              models.SourceStatusPendingValidation,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if confidence == models.ConfidenceHigh && !source.ValidationRequired {
		source.Status = models.SourceStatusActive
	}
	if err := sources.SaveSource(ctx, source); err != nil {
		return nil, err
	}
	return source, nil
}

// ScrapeSourceProcessor runs the generic scraper for one configured source
// and feeds the results through scraper intake.
type ScrapeSourceProcessor struct {
	deps   *Deps
	intake *Intake
}

// NewScrapeSourceProcessor creates the scrape-source processor.
func NewScrapeSourceProcessor(deps *Deps, intake *Intake) *ScrapeSourceProcessor {
	return &ScrapeSourceProcessor{deps: deps, intake: intake}
}

func (p *ScrapeSourceProcessor) Kind() models.TaskKind { return models.TaskKindScrapeSource }

// Process scrapes the source, updates its health counters and queues a
// job-listing task per surviving job. Disabled sources are skipped.
func (p *ScrapeSourceProcessor) Process(ctx context.Context, task *models.Task) (models.TaskStatus, error) {
	payload, err := task.ScrapeSourcePayload()
	if err != nil {
		return models.TaskStatusFailed, models.NewWorkerError(models.ErrPermanentSource, err)
	}

	sources := p.deps.Store.SourceStorage()
	source, err := sources.GetSource(ctx, payload.SourceID)
	if err != nil {
		return models.TaskStatusFailed, err
	}
	if source.Status == models.SourceStatusDisabled {
		p.deps.Logger.Info().Str("source_id", source.ID).Msg("Source disabled, skipping scrape")
		return models.TaskStatusSkipped, nil
	}

	threshold := p.deps.Policies.Current().Worker.SourceFailDisable
	now := time.Now().UTC()

	jobs, scrapeErr := p.deps.Scraper.Scrape(ctx, &source.Config)
	if scrapeErr != nil {
		disabled := source.RecordFailure(threshold, now)
		source.UpdatedAt = now
		if uerr := sources.UpdateSource(ctx, source); uerr != nil {
			return models.TaskStatusFailed, uerr
		}
		if disabled {
			p.deps.Logger.Warn().
				Str("source_id", source.ID).
				Int("consecutive_failures", source.ConsecutiveFailures).
				Msg("Source auto-disabled after repeated failures")
		}
		return models.TaskStatusFailed, scrapeErr
	}

	source.RecordSuccess(now)
	source.UpdatedAt = now
	if err := sources.UpdateSource(ctx, source); err != nil {
		return models.TaskStatusFailed, err
	}

	queued, dropped, err := p.intake.ScraperIntake(ctx, task, source, jobs)
	if err != nil {
		return models.TaskStatusFailed, err
	}

	p.deps.Logger.Info().
		Str("task_id", task.ID).
		Str("source_id", source.ID).
		Int("scraped", len(jobs)).
		Int("queued", queued).
		Int("dropped", dropped).
		Msg("Source scrape complete")
	return models.TaskStatusSuccess, nil
}

func greenhouseConfig(slug, companyName string) *models.ScrapeConfig {
	return &models.ScrapeConfig{
		Type:         models.SourceTypeAPI,
		URL:          fmt.Sprintf("https://boards-api.greenhouse.io/v1/boards/%s/jobs?content=true", slug),
		ResponsePath: "jobs",
		Fields: map[string]string{
			"title":       "title",
			"url":         "absolute_url",
			"location":    "location.name",
			"description": "content",
			"posted_date": "updated_at",
		},
		CompanyName: companyName,
	}
}

func leverConfig(slug, companyName string) *models.ScrapeConfig {
	return &models.ScrapeConfig{
		Type: models.SourceTypeAPI,
		URL:  fmt.Sprintf("https://api.lever.co/v0/postings/%s?mode=json", slug),
		Fields: map[string]string{
			"title":       "text",
			"url":         "hostedUrl",
			"location":    "categories.location",
			"description": "descriptionPlain",
			"posted_date": "createdAt",
		},
		CompanyName: companyName,
	}
}

func workdayConfig(url, companyName string) *models.ScrapeConfig {
	return &models.ScrapeConfig{
		Type:        models.SourceTypeHTML,
		URL:         url,
		JobSelector: "li[class*='job'], ul[role='list'] li",
		Fields: map[string]string{
			"title": "a",
			"url":   "a@href",
		},
		CompanyName: companyName,
	}
}

func rssConfig(url, companyName string) *models.ScrapeConfig {
	return &models.ScrapeConfig{
		Type: models.SourceTypeRSS,
		URL:  url,
		Fields: map[string]string{
			"title":       "title",
			"url":         "link",
			"description": "description",
			"posted_date": "pubDate",
		},
		CompanyName: companyName,
	}
}

// looksLikeFeed matches feed URLs by extension or path convention.
func looksLikeFeed(url string) bool {
	lowered := strings.ToLower(url)
	for _, marker := range []string{".rss", ".atom", "/feed", "/rss", "feed.xml", "atom.xml"} {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// isFeedBody sniffs a fetched body for a feed root element.
func isFeedBody(body string) bool {
	head := body
	if len(head) > 512 {
		head = head[:512]
	}
	head = strings.ToLower(head)
	return strings.Contains(head, "<rss") || strings.Contains(head, "<feed")
}

// candidateSelectors are probed in order against unknown HTML pages. The
// first selector matching several linked items wins.
var candidateSelectors = []string{
	"li.opening",
	"div.opening",
	"div.job-listing",
	"li.job",
	"div.job",
	"article.job",
	"li[class*='posting']",
	"div[class*='posting']",
	"tr.job-row",
}

// probeSelectors discovers an html config by trying known job-list
// selectors against the sample. Multiple matches with links is medium
// confidence, a weak match is low; pages with no plausible list produce no
// source.
func probeSelectors(body, url, companyName string) (*models.ScrapeConfig, models.DiscoveryConfidence, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, "", models.NewWorkerError(models.ErrParse, err)
	}

	for _, selector := range candidateSelectors {
		linked := linkedItemCount(doc, selector)
		if linked < 2 {
			continue
		}

		confidence := models.ConfidenceLow
		if linked >= 5 {
			confidence = models.ConfidenceMedium
		}
		return &models.ScrapeConfig{
			Type:        models.SourceTypeHTML,
			URL:         url,
			JobSelector: selector,
			Fields: map[string]string{
				"title": "a",
				"url":   "a@href",
			},
			CompanyName: companyName,
		}, confidence, nil
	}
	return nil, "", nil
}

// linkedItemCount counts elements matched by selector that contain a
// non-empty link. An invalid selector matches nothing.
func linkedItemCount(doc *goquery.Document, selector string) int {
	linked := 0
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Find("a").First().Attr("href"); ok && href != "" {
			linked++
		}
	})
	return linked
}
