package processors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/filter"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
	"github.com/ternarybob/venari/internal/policy"
	"github.com/ternarybob/venari/internal/queue"
)

// ErrFiltered is returned when an intake submission fails the hard
// prefilter. The job is not queued.
var ErrFiltered = errors.New("job rejected by prefilter")

// ErrDuplicate is returned when an intake submission matches an existing
// listing by normalized URL.
var ErrDuplicate = errors.New("job already known")

// Intake is the single entry point for work: manual submissions, scraper
// results and legacy payloads all come through here so URL normalization,
// dedup and the hard prefilter are applied exactly once.
type Intake struct {
	store    interfaces.StorageManager
	queueMgr *queue.Manager
	spawner  *queue.Spawner
	policies *policy.Loader
	logger   arbor.ILogger
}

// NewIntake creates the intake service.
func NewIntake(store interfaces.StorageManager, queueMgr *queue.Manager, spawner *queue.Spawner, policies *policy.Loader, logger arbor.ILogger) *Intake {
	return &Intake{
		store:    store,
		queueMgr: queueMgr,
		spawner:  spawner,
		policies: policies,
		logger:   logger,
	}
}

// SubmitJob accepts one manually submitted job: normalize, hard prefilter,
// dedupe, create listing plus a pending job-listing task.
func (i *Intake) SubmitJob(ctx context.Context, job *models.NormalizedJob) (*models.Task, error) {
	listing, err := i.admit(ctx, job, "")
	if err != nil {
		return nil, err
	}

	payload := &models.JobListingPayload{
		ListingID:   listing.ID,
		URL:         listing.URL,
		CompanyName: job.Company,
	}
	task, err := models.NewTask(models.TaskKindJobListing, listing.URL, payload, i.policies.Current().Worker.MaxRetries)
	if err != nil {
		return nil, err
	}
	if err := i.queueMgr.Enqueue(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// SubmitCompany queues a root company enrichment task.
func (i *Intake) SubmitCompany(ctx context.Context, name, url string) (*models.Task, error) {
	if strings.TrimSpace(name) == "" {
		return nil, models.Errorf(models.ErrPermanentSource, "company name is required")
	}
	target := common.NormalizeURL(url)
	if target == "" {
		target = "company://" + models.NormalizeCompanyName(name)
	}
	payload := &models.CompanyPayload{CompanyName: name, URL: url}
	task, err := models.NewTask(models.TaskKindCompany, target, payload, i.policies.Current().Worker.MaxRetries)
	if err != nil {
		return nil, err
	}
	if err := i.queueMgr.Enqueue(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// SubmitScrape queues a root scrape task for a single posting URL.
func (i *Intake) SubmitScrape(ctx context.Context, url string) (*models.Task, error) {
	normalized := common.NormalizeURL(url)
	if normalized == "" {
		return nil, models.Errorf(models.ErrPermanentSource, "scrape url is required")
	}
	if _, err := i.store.ListingStorage().GetListingByURL(ctx, normalized); err == nil {
		return nil, ErrDuplicate
	} else if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, err
	}

	payload := &models.JobListingPayload{URL: normalized}
	task, err := models.NewTask(models.TaskKindScrape, normalized, payload, i.policies.Current().Worker.MaxRetries)
	if err != nil {
		return nil, err
	}
	if err := i.queueMgr.Enqueue(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// SubmitLegacy converts a legacy scraped_data payload into a listing and a
// job-listing task. The raw job travels in the task payload so the
// pipeline can re-materialize it without a second scrape.
func (i *Intake) SubmitLegacy(ctx context.Context, job *models.NormalizedJob) (*models.Task, error) {
	listing, err := i.admit(ctx, job, "")
	if err != nil {
		return nil, err
	}

	payload := &models.JobListingPayload{
		ListingID:   listing.ID,
		URL:         listing.URL,
		CompanyName: job.Company,
		ScrapedData: job,
	}
	task, err := models.NewTask(models.TaskKindJobListing, listing.URL, payload, i.policies.Current().Worker.MaxRetries)
	if err != nil {
		return nil, err
	}
	if err := i.queueMgr.Enqueue(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// ScraperIntake admits scraped jobs from one source: per job, normalize,
// hard prefilter, dedupe, create listing and spawn a job-listing child
// task under the scrape task's lineage. Returns queued and dropped counts.
func (i *Intake) ScraperIntake(ctx context.Context, parent *models.Task, source *models.JobSource, jobs []models.NormalizedJob) (queued, dropped int, err error) {
	for idx := range jobs {
		job := jobs[idx]
		listing, aerr := i.admit(ctx, &job, source.ID)
		if aerr != nil {
			if errors.Is(aerr, ErrFiltered) || errors.Is(aerr, ErrDuplicate) {
				dropped++
				continue
			}
			return queued, dropped, aerr
		}

		payload := &models.JobListingPayload{
			ListingID:   listing.ID,
			URL:         listing.URL,
			CompanyName: job.Company,
		}
		if _, serr := i.spawner.Spawn(ctx, parent, models.TaskKindJobListing, listing.URL, payload, parent.MaxRetries); serr != nil {
			if queue.IsSpawnRejection(serr) {
				dropped++
				continue
			}
			return queued, dropped, serr
		}
		queued++
	}
	return queued, dropped, nil
}

// admit runs the shared intake path: URL normalization, hard prefilter,
// URL-unique insert.
func (i *Intake) admit(ctx context.Context, job *models.NormalizedJob, sourceID string) (*models.JobListing, error) {
	if job.URL == "" || job.Title == "" {
		return nil, models.Errorf(models.ErrPermanentSource, "job requires url and title")
	}
	job.URL = common.NormalizeURL(job.URL)

	snap := i.policies.Current()
	verdict := filter.EvaluateHard(job, time.Now().UTC(), &snap.Prefilter)
	if !verdict.Passed {
		i.logger.Info().
			Str("url", job.URL).
			Str("reason", verdict.HardRejection).
			Msg("Job rejected at intake")
		return nil, fmt.Errorf("%w: %s", ErrFiltered, verdict.HardRejection)
	}

	now := time.Now().UTC()
	listing := &models.JobListing{
		ID:          common.NewID(),
		SourceID:    sourceID,
		URL:         job.URL,
		Title:       job.Title,
		Description: job.Description,
		Location:    job.Location,
		PostedDate:  job.PostedDate,
		SalaryRange: salaryRange(job),
		Status:      models.ListingStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := i.store.ListingStorage().InsertListing(ctx, listing); err != nil {
		if errors.Is(err, interfaces.ErrDuplicateURL) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return listing, nil
}

// salaryRange folds the salary fields into one display string.
func salaryRange(job *models.NormalizedJob) string {
	if job.Salary != "" {
		return job.Salary
	}
	switch {
	case job.SalaryMin > 0 && job.SalaryMax > 0:
		return fmt.Sprintf("%d-%d", job.SalaryMin, job.SalaryMax)
	case job.SalaryMin > 0:
		return fmt.Sprintf("%d+", job.SalaryMin)
	case job.SalaryMax > 0:
		return fmt.Sprintf("up to %d", job.SalaryMax)
	}
	return ""
}
