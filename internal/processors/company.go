package processors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/enrichment"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
	"github.com/ternarybob/venari/internal/queue"
)

// aboutSampleThreshold is the about-text length below which the company
// pass also fetches and samples the candidate website.
const aboutSampleThreshold = 200

// CompanyProcessor runs the single-pass company enrichment pipeline:
// stub, name resolution, wiki lookup, web search, optional page sample,
// AI extraction, merge, persist, source-discovery spawn.
type CompanyProcessor struct {
	deps *Deps
}

// NewCompanyProcessor creates the company processor.
func NewCompanyProcessor(deps *Deps) *CompanyProcessor {
	return &CompanyProcessor{deps: deps}
}

func (p *CompanyProcessor) Kind() models.TaskKind { return models.TaskKindCompany }

// Process runs one company task to completion. The pipeline is a single
// queue item; it never spawns per-field sub-tasks.
func (p *CompanyProcessor) Process(ctx context.Context, task *models.Task) (models.TaskStatus, error) {
	payload, err := task.CompanyPayload()
	if err != nil {
		return models.TaskStatusFailed, models.NewWorkerError(models.ErrPermanentSource, err)
	}
	if strings.TrimSpace(payload.CompanyName) == "" {
		return models.TaskStatusFailed, models.Errorf(models.ErrPermanentSource, "company task without a company name")
	}

	// Canonical name resolution happens before any storage touch so a
	// vendor slug like "mdlz" and its canonical name land on one record.
	canonical := common.ResolveSearchName(payload.CompanyName, payload.URL)
	normalized := models.NormalizeCompanyName(canonical)
	companies := p.deps.Store.CompanyStorage()

	if _, err := companies.GetCompany(ctx, normalized); errors.Is(err, interfaces.ErrNotFound) {
		stub := &models.Company{
			Name:           normalized,
			DisplayName:    canonical,
			AnalysisStatus: models.CompanyStatusPending,
		}
		if err := companies.SaveCompany(ctx, stub); err != nil {
			return models.TaskStatusFailed, err
		}
	} else if err != nil {
		return models.TaskStatusFailed, err
	}

	company, err := companies.TransitionStatus(ctx, normalized, models.CompanyStatusAnalyzing)
	if err != nil {
		return models.TaskStatusFailed, err
	}

	p.deps.Logger.Info().
		Str("task_id", task.ID).
		Str("company", normalized).
		Str("search_name", canonical).
		Msg("Company enrichment pass started")

	input := &interfaces.CompanyExtractionInput{CompanyName: canonical}

	// Wikipedia and search are best effort: a failed lookup narrows the
	// merge, it does not fail the pass.
	var wikiFacts *interfaces.CompanyFacts
	if facts, werr := p.deps.Wiki.Lookup(ctx, canonical); werr != nil {
		p.deps.Logger.Warn().Err(werr).Str("company", normalized).Msg("Wikipedia lookup failed")
	} else {
		wikiFacts = facts
		input.WikiText = facts.About
	}

	websiteCandidates := p.runSearch(ctx, canonical, input)

	if len(company.About) < aboutSampleThreshold {
		p.samplePage(ctx, company, wikiFacts, websiteCandidates, input)
	}

	extracted, _, aiErr := p.deps.Agent.ExtractCompany(ctx, task.ID, input)
	if aiErr != nil {
		p.deps.Logger.Warn().Err(aiErr).Str("company", normalized).Msg("Company extraction agent failed, merging lookup facts only")
	}

	expected := company.UpdatedAt
	mergeCompany(company, extracted, wikiFacts, websiteCandidates)
	company.DisplayName = firstNonEmpty(company.DisplayName, canonical)

	if err := companies.UpdateCompanyCAS(ctx, company, expected); err != nil {
		if errors.Is(err, interfaces.ErrConflict) {
			return models.TaskStatusFailed, models.NewWorkerError(models.ErrTransientNetwork, err)
		}
		return models.TaskStatusFailed, err
	}

	p.spawnSourceDiscovery(ctx, task, company, payload)

	if _, err := companies.TransitionStatus(ctx, normalized, models.CompanyStatusActive); err != nil {
		return models.TaskStatusFailed, err
	}

	p.deps.Logger.Info().
		Str("task_id", task.ID).
		Str("company", normalized).
		Bool("good_data", company.HasGoodData()).
		Msg("Company enrichment pass complete")
	return models.TaskStatusSuccess, nil
}

// runSearch queries "{name} official site" and folds snippets into the
// extraction input. Quota exhaustion is a soft skip.
func (p *CompanyProcessor) runSearch(ctx context.Context, searchName string, input *interfaces.CompanyExtractionInput) []string {
	results, err := p.deps.Search.Search(ctx, searchName+" official site", 5)
	if err != nil {
		var quota interfaces.ErrSearchQuotaExceeded
		if errors.As(err, &quota) {
			p.deps.Logger.Info().Str("company", searchName).Msg("Search skipped: daily quota exhausted")
		} else {
			p.deps.Logger.Warn().Err(err).Str("company", searchName).Msg("Web search failed")
		}
		return nil
	}

	var text strings.Builder
	var candidates []string
	for _, r := range results {
		fmt.Fprintf(&text, "%s\n%s\n%s\n\n", r.Title, r.URL, r.Snippet)
		if !common.IsJobBoardURL(r.URL) && !common.IsSearchEngineURL(r.URL) {
			candidates = append(candidates, r.URL)
		}
	}
	input.SearchText = text.String()
	return candidates
}

// samplePage fetches the best website candidate and attaches a readable
// text sample to the extraction input.
func (p *CompanyProcessor) samplePage(ctx context.Context, company *models.Company, wikiFacts *interfaces.CompanyFacts, candidates []string, input *interfaces.CompanyExtractionInput) {
	target := company.Website
	if target == "" && wikiFacts != nil {
		target = wikiFacts.Website
	}
	if target == "" && len(candidates) > 0 {
		target = candidates[0]
	}
	if target == "" {
		return
	}

	page, err := p.deps.Fetcher.Fetch(ctx, target)
	if err != nil {
		p.deps.Logger.Warn().Err(err).Str("url", target).Msg("Website sample fetch failed")
		return
	}
	input.PageSample = enrichment.SampleText(page, 8000)
}

// spawnSourceDiscovery spawns at most one SourceDiscovery task when a
// job-board URL is known for the company and no tracked source matches it.
func (p *CompanyProcessor) spawnSourceDiscovery(ctx context.Context, task *models.Task, company *models.Company, payload *models.CompanyPayload) {
	boardURL := ""
	for _, candidate := range []string{payload.URL, company.Website} {
		if candidate != "" && common.IsJobBoardURL(candidate) {
			boardURL = common.NormalizeURL(candidate)
			break
		}
	}
	if boardURL == "" {
		return
	}

	if existing, err := p.deps.Store.SourceStorage().FindSourceByURL(ctx, boardURL); err == nil && existing != nil {
		return
	} else if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		p.deps.Logger.Warn().Err(err).Str("url", boardURL).Msg("Source lookup failed before discovery spawn")
		return
	}

	discovery := &models.SourceDiscoveryPayload{
		URL:         boardURL,
		CompanyID:   company.Name,
		CompanyName: company.DisplayName,
	}
	if _, err := p.deps.Spawner.Spawn(ctx, task, models.TaskKindSourceDiscovery, boardURL, discovery, task.MaxRetries); err != nil {
		if queue.IsSpawnRejection(err) {
			return
		}
		p.deps.Logger.Warn().Err(err).Str("url", boardURL).Msg("Source discovery spawn failed")
	}
}

// mergeCompany folds the AI extraction and lookup facts into the record.
// Longer non-empty text wins for about/culture/mission; the website prefers
// a first-party domain; all other fields fill empty slots in source order
// (AI extraction, then wiki).
func mergeCompany(dst *models.Company, extracted *models.Company, facts *interfaces.CompanyFacts, websiteCandidates []string) {
	if extracted != nil {
		dst.About = longerText(dst.About, extracted.About)
		dst.Culture = longerText(dst.Culture, extracted.Culture)
		dst.Mission = longerText(dst.Mission, extracted.Mission)
		dst.Industry = firstNonEmpty(dst.Industry, extracted.Industry)
		dst.Founded = firstNonEmpty(dst.Founded, extracted.Founded)
		dst.HeadquartersLocation = firstNonEmpty(dst.HeadquartersLocation, extracted.HeadquartersLocation)
		if dst.EmployeeCount == 0 {
			dst.EmployeeCount = extracted.EmployeeCount
		}
		dst.IsRemoteFirst = dst.IsRemoteFirst || extracted.IsRemoteFirst
		dst.AIMLFocus = dst.AIMLFocus || extracted.AIMLFocus
		if len(dst.Products) == 0 {
			dst.Products = extracted.Products
		}
		if len(dst.TechStack) == 0 {
			dst.TechStack = extracted.TechStack
		}
		dst.Website = preferWebsite(dst.Website, extracted.Website)
	}
	if facts != nil {
		dst.About = longerText(dst.About, facts.About)
		dst.Industry = firstNonEmpty(dst.Industry, facts.Industry)
		dst.Founded = firstNonEmpty(dst.Founded, facts.Founded)
		dst.HeadquartersLocation = firstNonEmpty(dst.HeadquartersLocation, facts.HeadquartersLocation)
		if dst.EmployeeCount == 0 {
			dst.EmployeeCount = facts.EmployeeCount
		}
		dst.Website = preferWebsite(dst.Website, facts.Website)
	}
	for _, candidate := range websiteCandidates {
		dst.Website = preferWebsite(dst.Website, candidate)
	}
	if dst.SizeCategory == "" {
		dst.SizeCategory = models.SizeCategoryForCount(dst.EmployeeCount)
	}
	dst.UpdatedAt = time.Now().UTC()
}

// preferWebsite keeps the current website unless the candidate is a better
// first-party URL. Job boards and search engines never win over a
// first-party domain.
func preferWebsite(current, candidate string) string {
	if candidate == "" {
		return current
	}
	if common.IsSearchEngineURL(candidate) {
		return current
	}
	if current == "" {
		return candidate
	}
	currentBoard := common.IsJobBoardURL(current)
	candidateBoard := common.IsJobBoardURL(candidate)
	if currentBoard && !candidateBoard {
		return candidate
	}
	return current
}

func longerText(a, b string) string {
	if len(strings.TrimSpace(b)) > len(strings.TrimSpace(a)) {
		return b
	}
	return a
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
