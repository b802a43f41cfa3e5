package processors

import (
	"context"
	"errors"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/filter"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
	"github.com/ternarybob/venari/internal/queue"
	"github.com/ternarybob/venari/internal/scoring"
)

// Pipeline stage labels recorded in pipeline_state for observability.
const (
	stageScrape         = "scrape"
	stagePrefilter      = "prefilter"
	stageCompanyLookup  = "company_lookup"
	stageWaitingCompany = "waiting_company"
	stageExtraction     = "extraction"
	stageScoring        = "scoring"
	stageAnalysis       = "analysis"
	stageSaveMatch      = "save_match"
)

// ListingProcessor runs the job-listing pipeline: materialize, prefilter,
// company lookup with optional wait, AI extraction, deterministic scoring,
// AI match analysis, match persistence.
type ListingProcessor struct {
	deps   *Deps
	intake *Intake
}

// NewListingProcessor creates the job-listing processor.
func NewListingProcessor(deps *Deps, intake *Intake) *ListingProcessor {
	return &ListingProcessor{deps: deps, intake: intake}
}

func (p *ListingProcessor) Kind() models.TaskKind { return models.TaskKindJobListing }

// ScrapeProcessor handles manual single-URL scrape tasks. It shares the
// listing pipeline; the only difference is that stage one fetches the
// posting page itself.
type ScrapeProcessor struct {
	*ListingProcessor
}

// NewScrapeProcessor creates the manual-scrape processor.
func NewScrapeProcessor(deps *Deps, intake *Intake) *ScrapeProcessor {
	return &ScrapeProcessor{ListingProcessor: NewListingProcessor(deps, intake)}
}

func (p *ScrapeProcessor) Kind() models.TaskKind { return models.TaskKindScrape }

// Process runs the pipeline stages in order. Stages update
// pipeline_state.stage for observability only; the company-wait stage is
// the one point that requeues instead of continuing.
func (p *ListingProcessor) Process(ctx context.Context, task *models.Task) (models.TaskStatus, error) {
	payload, err := task.JobListingPayload()
	if err != nil {
		return models.TaskStatusFailed, models.NewWorkerError(models.ErrPermanentSource, err)
	}
	snap := p.deps.Policies.Current()

	p.deps.setStage(ctx, task, stageScrape)
	listing, raw, err := p.materialize(ctx, task, payload)
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return models.TaskStatusSkipped, nil
		}
		return models.TaskStatusFailed, err
	}
	task.PipelineState.ListingID = listing.ID
	p.deps.emit(ctx, interfaces.EventJobScraped, task, listing.URL)

	listings := p.deps.Store.ListingStorage()
	if listing.Status == models.ListingStatusPending {
		listing.Status = models.ListingStatusAnalyzing
		if err := listings.UpdateListing(ctx, listing); err != nil {
			return models.TaskStatusFailed, err
		}
	}

	p.deps.setStage(ctx, task, stagePrefilter)
	verdict := filter.Evaluate(raw, listing.ExtractionResult, time.Now().UTC(), &snap.Prefilter)
	if !verdict.Passed {
		p.deps.Logger.Info().
			Str("task_id", task.ID).
			Str("url", listing.URL).
			Str("hard_rejection", verdict.HardRejection).
			Int("strikes", verdict.Strikes).
			Msg("Listing filtered")
		if err := p.skipListing(ctx, listing); err != nil {
			return models.TaskStatusFailed, err
		}
		return models.TaskStatusFiltered, nil
	}

	p.deps.setStage(ctx, task, stageCompanyLookup)
	company, err := p.lookupCompany(ctx, listing, payload, raw)
	if err != nil {
		return models.TaskStatusFailed, err
	}
	p.deps.emit(ctx, interfaces.EventJobCompanyLookup, task, listing.CompanyID)

	if company != nil && !company.HasGoodData() {
		if task.PipelineState.CompanyWaitRetries < snap.Worker.MaxCompanyWaitRetries {
			return p.waitForCompany(ctx, task, listing, company, &snap.Worker)
		}
		p.deps.Logger.Info().
			Str("task_id", task.ID).
			Str("company", company.Name).
			Msg("Company wait budget spent, proceeding with available data")
	}

	if listing.ExtractionResult == nil {
		p.deps.setStage(ctx, task, stageExtraction)
		extraction, _, aiErr := p.deps.Agent.ExtractJob(ctx, task.ID, &interfaces.JobExtractionInput{
			Title:       listing.Title,
			Description: listing.Description,
			Location:    listing.Location,
			URL:         listing.URL,
		})
		if aiErr != nil {
			return models.TaskStatusFailed, aiErr
		}
		listing.ExtractionResult = extraction
		if err := listings.UpdateListing(ctx, listing); err != nil {
			return models.TaskStatusFailed, err
		}
		p.deps.emit(ctx, interfaces.EventJobExtraction, task, extraction)
	}

	p.deps.setStage(ctx, task, stageScoring)
	breakdown := scoring.Score(listing, listing.ExtractionResult, company, &snap.Personal, &snap.Match, time.Now().UTC())
	listing.ScoringResult = &breakdown
	if err := listings.UpdateListing(ctx, listing); err != nil {
		return models.TaskStatusFailed, err
	}
	p.deps.emit(ctx, interfaces.EventJobScoring, task, breakdown)

	if !breakdown.Passed {
		p.deps.Logger.Info().
			Str("task_id", task.ID).
			Str("url", listing.URL).
			Int("final_score", breakdown.FinalScore).
			Str("reason", breakdown.RejectionReason).
			Msg("Listing below deterministic threshold")
		if err := p.skipListing(ctx, listing); err != nil {
			return models.TaskStatusFailed, err
		}
		return models.TaskStatusSkipped, nil
	}
	listing.Status = models.ListingStatusAnalyzed

	p.deps.setStage(ctx, task, stageAnalysis)
	analysis, _, aiErr := p.deps.Agent.AnalyzeMatch(ctx, task.ID, &interfaces.MatchAnalysisInput{
		Listing:            listing,
		Extraction:         listing.ExtractionResult,
		Company:            company,
		Personal:           &snap.Personal,
		DeterministicScore: &breakdown,
	})
	if aiErr != nil {
		return models.TaskStatusFailed, aiErr
	}
	p.deps.emit(ctx, interfaces.EventJobAnalysis, task, analysis)

	if analysis.MatchScore < snap.Match.MinMatchScore {
		p.deps.Logger.Info().
			Str("task_id", task.ID).
			Str("url", listing.URL).
			Int("match_score", analysis.MatchScore).
			Int("min_match_score", snap.Match.MinMatchScore).
			Msg("Listing below match threshold")
		if err := p.skipListing(ctx, listing); err != nil {
			return models.TaskStatusFailed, err
		}
		return models.TaskStatusSkipped, nil
	}

	p.deps.setStage(ctx, task, stageSaveMatch)
	match := &models.JobMatch{
		ID:            common.NewID(),
		JobListingID:  listing.ID,
		CompanyID:     listing.CompanyID,
		MatchScore:    analysis.MatchScore,
		Reasoning:     analysis.Reasoning,
		MatchedSkills: analysis.MatchedSkills,
		MissingSkills: analysis.MissingSkills,
		Priority:      analysis.Priority,
		CreatedAt:     time.Now().UTC(),
	}
	if err := p.deps.Store.MatchStorage().SaveMatch(ctx, match); err != nil {
		return models.TaskStatusFailed, err
	}

	listing.Status = models.ListingStatusMatched
	listing.MatchScore = analysis.MatchScore
	if err := listings.UpdateListing(ctx, listing); err != nil {
		return models.TaskStatusFailed, err
	}
	p.deps.emit(ctx, interfaces.EventJobSaved, task, match.ID)

	p.deps.Logger.Info().
		Str("task_id", task.ID).
		Str("url", listing.URL).
		Int("match_score", match.MatchScore).
		Str("priority", string(match.Priority)).
		Msg("Match saved")
	return models.TaskStatusSuccess, nil
}

// materialize produces the listing record and the raw job view for this
// task: existing row, inherited scraped data, or a fresh page fetch for
// manual scrape tasks.
func (p *ListingProcessor) materialize(ctx context.Context, task *models.Task, payload *models.JobListingPayload) (*models.JobListing, *models.NormalizedJob, error) {
	listings := p.deps.Store.ListingStorage()

	if payload.ListingID != "" {
		listing, err := listings.GetListing(ctx, payload.ListingID)
		if err != nil {
			return nil, nil, err
		}
		raw := payload.ScrapedData
		if raw == nil {
			raw = rawFromListing(listing, payload.CompanyName)
		}
		return listing, raw, nil
	}

	if payload.ScrapedData != nil {
		listing, err := p.intake.admit(ctx, payload.ScrapedData, "")
		if err != nil {
			return nil, nil, err
		}
		return listing, payload.ScrapedData, nil
	}

	if payload.URL == "" {
		return nil, nil, models.Errorf(models.ErrPermanentSource, "job-listing task without listing, data or url")
	}

	raw, err := p.scrapePosting(ctx, payload.URL)
	if err != nil {
		return nil, nil, err
	}
	listing, err := p.intake.admit(ctx, raw, "")
	if err != nil {
		return nil, nil, err
	}
	return listing, raw, nil
}

// scrapePosting fetches one posting page and reduces it to a normalized
// job using the page title and a readable text sample.
func (p *ListingProcessor) scrapePosting(ctx context.Context, url string) (*models.NormalizedJob, error) {
	page, err := p.deps.Fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	title := ""
	if doc, derr := goquery.NewDocumentFromReader(strings.NewReader(page.Body)); derr == nil {
		title = strings.TrimSpace(doc.Find("title").First().Text())
		if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
			title = h1
		}
	}
	if title == "" {
		return nil, models.Errorf(models.ErrParse, "no title found at %s", url)
	}

	return &models.NormalizedJob{
		Title:       title,
		URL:         common.NormalizeURL(page.FinalURL),
		Description: sampleFromPage(page),
	}, nil
}

// lookupCompany resolves the listing's company, creating a pending stub on
// first sight. The name is canonicalized the same way the company pass
// does it, so a board slug and its canonical name share one record. A
// listing without a company name proceeds unaccompanied.
func (p *ListingProcessor) lookupCompany(ctx context.Context, listing *models.JobListing, payload *models.JobListingPayload, raw *models.NormalizedJob) (*models.Company, error) {
	name := firstNonEmpty(payload.CompanyName, raw.Company)
	if name == "" {
		return nil, nil
	}

	canonical := common.ResolveSearchName(name, listing.URL)
	normalized := models.NormalizeCompanyName(canonical)
	companies := p.deps.Store.CompanyStorage()

	company, err := companies.GetCompany(ctx, normalized)
	if errors.Is(err, interfaces.ErrNotFound) {
		company = &models.Company{
			Name:           normalized,
			DisplayName:    canonical,
			AnalysisStatus: models.CompanyStatusPending,
		}
		if err := companies.SaveCompany(ctx, company); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if listing.CompanyID != normalized {
		listing.CompanyID = normalized
		if err := p.deps.Store.ListingStorage().UpdateListing(ctx, listing); err != nil {
			return nil, err
		}
	}
	return company, nil
}

// waitForCompany spawns a company task when the lineage lacks one and
// requeues this listing task with an incremented wait counter. The current
// attempt completes as success-by-requeue.
func (p *ListingProcessor) waitForCompany(ctx context.Context, task *models.Task, listing *models.JobListing, company *models.Company, worker *models.WorkerSettings) (models.TaskStatus, error) {
	p.deps.setStage(ctx, task, stageWaitingCompany)

	companyTarget := "company://" + company.Name
	spawnPayload := &models.CompanyPayload{CompanyName: company.DisplayName, URL: listing.URL}
	if _, err := p.deps.Spawner.Spawn(ctx, task, models.TaskKindCompany, companyTarget, spawnPayload, task.MaxRetries); err != nil && !queue.IsSpawnRejection(err) {
		return models.TaskStatusFailed, err
	}

	delay := time.Duration(worker.CompanyWaitSeconds * float64(time.Second))
	if delay <= 0 {
		delay = 30 * time.Second
	}
	state := models.PipelineState{
		Stage:              stageWaitingCompany,
		CompanyWaitRetries: task.PipelineState.CompanyWaitRetries + 1,
		ListingID:          listing.ID,
	}
	requeued, err := p.deps.Queue.Requeue(ctx, task, state, delay)
	if err != nil {
		return models.TaskStatusFailed, err
	}

	p.deps.emit(ctx, interfaces.EventJobWaitingCompany, task, company.Name)
	p.deps.Logger.Info().
		Str("task_id", task.ID).
		Str("requeued_task_id", requeued.ID).
		Str("company", company.Name).
		Int("wait_retries", state.CompanyWaitRetries).
		Msg("Listing waiting on company enrichment")
	return models.TaskStatusSuccess, nil
}

// skipListing marks the listing skipped.
func (p *ListingProcessor) skipListing(ctx context.Context, listing *models.JobListing) error {
	listing.Status = models.ListingStatusSkipped
	return p.deps.Store.ListingStorage().UpdateListing(ctx, listing)
}

// rawFromListing rebuilds the normalized view from a stored listing row.
func rawFromListing(listing *models.JobListing, companyName string) *models.NormalizedJob {
	return &models.NormalizedJob{
		Title:       listing.Title,
		Company:     companyName,
		Location:    listing.Location,
		Description: listing.Description,
		URL:         listing.URL,
		PostedDate:  listing.PostedDate,
		Salary:      listing.SalaryRange,
	}
}

var markdownConverter = md.NewConverter("", true, nil)

// sampleFromPage reduces a fetched posting page to a description: chrome
// stripped, content converted to markdown so lists and headings survive
// into the extraction prompt, plain text as the fallback.
func sampleFromPage(page *interfaces.Page) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Body))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript, nav, header, footer").Remove()

	text := ""
	if html, herr := doc.Find("body").Html(); herr == nil && html != "" {
		if markdown, cerr := markdownConverter.ConvertString(html); cerr == nil {
			text = strings.TrimSpace(markdown)
		}
	}
	if text == "" {
		text = strings.Join(strings.Fields(doc.Text()), " ")
	}
	if len(text) > 12000 {
		text = text[:12000]
	}
	return text
}
