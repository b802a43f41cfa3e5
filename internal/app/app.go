// Package app wires configuration, storage, queue, enrichment and the
// processor pipeline into one runnable application.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venari/internal/ai"
	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/enrichment"
	"github.com/ternarybob/venari/internal/events"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
	"github.com/ternarybob/venari/internal/policy"
	"github.com/ternarybob/venari/internal/processors"
	"github.com/ternarybob/venari/internal/queue"
	"github.com/ternarybob/venari/internal/scraper"
	storage "github.com/ternarybob/venari/internal/storage/badger"
)

// App holds the wired application services.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager
	Policies       *policy.Loader

	QueueManager *queue.Manager
	Spawner      *queue.Spawner
	Pool         *queue.WorkerPool

	EventService  interfaces.EventService
	AgentService  interfaces.AgentService
	SearchService interfaces.SearchService
	Fetcher       interfaces.PageFetcher
	Wiki          interfaces.WikiLookup
	Scraper       interfaces.Scraper

	Intake *processors.Intake

	Started time.Time

	db   *storage.BadgerDB
	cron *cron.Cron
}

// New initializes storage, policies, the queue and every pipeline service.
// Nothing starts processing until Start is called.
func New(ctx context.Context, config *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config:  config,
		Logger:  logger,
		Started: time.Now().UTC(),
	}

	// Storage
	db, err := storage.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	a.db = db
	a.StorageManager = storage.NewManagerWithDB(logger, db)

	// Runtime policy: seed missing blobs from disk, then load and validate.
	a.Policies = policy.NewLoader(a.StorageManager.KeyValueStorage(), logger)
	if config.Policies.SeedDir != "" {
		if err := a.Policies.SeedFromDir(ctx, config.Policies.SeedDir); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to seed policies: %w", err)
		}
	}
	snapshot, err := a.Policies.Load(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load policies: %w", err)
	}

	// Queue
	worker := snapshot.Worker
	visibility, err := time.ParseDuration(worker.VisibilityTimeout)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("invalid visibility_timeout %q: %w", worker.VisibilityTimeout, err)
	}
	a.QueueManager = queue.NewManager(db, visibility, queue.NewPolicy(&worker), logger)
	a.Spawner = queue.NewSpawner(a.QueueManager, a.StorageManager.TaskStorage(), worker.MaxSpawnDepth, logger)
	a.Pool = queue.NewWorkerPool(a.QueueManager, &worker, logger)

	// Enrichment
	a.Fetcher = enrichment.NewFetcher(&config.Fetcher, logger)
	a.Wiki = enrichment.NewWikipediaClient(logger, enrichment.WithWikiUserAgent(config.Fetcher.UserAgent))
	a.SearchService = a.buildSearch(logger)

	// AI agents
	a.AgentService = ai.NewManager(func() *models.AISettings {
		return &a.Policies.Current().AI
	}, &config.AI, a.StorageManager.KeyValueStorage(), logger)

	// Scraper and events
	a.Scraper = scraper.NewService(logger, scraper.WithUserAgent(config.Fetcher.UserAgent))
	a.EventService = events.NewService(logger)

	// Intake and processors
	a.Intake = processors.NewIntake(a.StorageManager, a.QueueManager, a.Spawner, a.Policies, logger)

	deps := &processors.Deps{
		Store:    a.StorageManager,
		Queue:    a.QueueManager,
		Spawner:  a.Spawner,
		Policies: a.Policies,
		Agent:    a.AgentService,
		Wiki:     a.Wiki,
		Search:   a.SearchService,
		Fetcher:  a.Fetcher,
		Scraper:  a.Scraper,
		Events:   a.EventService,
		Logger:   logger,
	}
	a.Pool.Register(processors.NewCompanyProcessor(deps))
	a.Pool.Register(processors.NewDiscoveryProcessor(deps))
	a.Pool.Register(processors.NewScrapeSourceProcessor(deps, a.Intake))
	a.Pool.Register(processors.NewListingProcessor(deps, a.Intake))
	a.Pool.Register(processors.NewScrapeProcessor(deps, a.Intake))

	if schedule := worker.RescrapeSchedule; schedule != "" {
		a.cron = cron.New()
		if _, err := a.cron.AddFunc(schedule, a.enqueueRescrapes); err != nil {
			a.Close()
			return nil, fmt.Errorf("invalid rescrape_schedule %q: %w", schedule, err)
		}
		logger.Info().Str("schedule", schedule).Msg("Rescrape schedule configured")
	}

	logger.Info().
		Str("db_path", config.Storage.Badger.Path).
		Int("concurrency", worker.Concurrency).
		Msg("Application initialized")
	return a, nil
}

// Start launches the worker pool and the rescrape schedule.
func (a *App) Start(ctx context.Context) {
	a.Pool.Start(ctx)
	if a.cron != nil {
		a.cron.Start()
	}
}

// Close stops background work and releases storage. Safe on a partially
// initialized app.
func (a *App) Close() {
	if a.cron != nil {
		a.cron.Stop()
	}
	if a.Pool != nil {
		a.Pool.Stop()
	}
	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Event service close failed")
		}
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Storage close failed")
		}
	}
}

// buildSearch assembles the failover search pair from config: Google
// Custom Search as primary when credentials are present, DuckDuckGo HTML
// otherwise and always as the fallback.
func (a *App) buildSearch(logger arbor.ILogger) interfaces.SearchService {
	duck := enrichment.NewDuckDuckGoClient(logger)

	var primary interfaces.SearchService = duck
	if a.Config.Search.APIKey != "" && a.Config.Search.EngineID != "" && a.Config.Search.Provider != "duckduckgo" {
		primary = enrichment.NewGoogleSearchClient(a.Config.Search.APIKey, a.Config.Search.EngineID, logger)
	} else {
		logger.Info().Msg("Google search not configured, using DuckDuckGo only")
	}

	dailyCap := func() int {
		return a.Policies.Current().Worker.DailySearchCap
	}
	return enrichment.NewFailoverSearch(primary, duck, a.StorageManager.KeyValueStorage(), dailyCap, logger)
}

// enqueueRescrapes queues one scrape task per active source. Disabled and
// pending-validation sources are left alone.
func (a *App) enqueueRescrapes() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	sources, err := a.StorageManager.SourceStorage().ListSourcesByStatus(ctx, models.SourceStatusActive)
	if err != nil {
		a.Logger.Error().Err(err).Msg("Rescrape sweep failed to list sources")
		return
	}

	queued := 0
	for _, source := range sources {
		payload := &models.ScrapeSourcePayload{SourceID: source.ID}
		task, err := models.NewTask(models.TaskKindScrapeSource, common.NormalizeURL(source.Config.URL), payload, a.Policies.Current().Worker.MaxRetries)
		if err != nil {
			a.Logger.Warn().Err(err).Str("source_id", source.ID).Msg("Rescrape task build failed")
			continue
		}
		if err := a.QueueManager.Enqueue(ctx, task); err != nil {
			a.Logger.Warn().Err(err).Str("source_id", source.ID).Msg("Rescrape enqueue failed")
			continue
		}
		queued++
	}

	a.Logger.Info().
		Int("sources", len(sources)).
		Int("queued", queued).
		Msg("Rescrape sweep complete")
}
