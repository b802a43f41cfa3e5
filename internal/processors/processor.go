// Package processors contains the three pipeline implementations: company
// enrichment, source discovery/scraping and the job-listing pipeline.
package processors

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
	"github.com/ternarybob/venari/internal/policy"
	"github.com/ternarybob/venari/internal/queue"
)

// Deps are the shared services every processor draws from.
type Deps struct {
	Store    interfaces.StorageManager
	Queue    *queue.Manager
	Spawner  *queue.Spawner
	Policies *policy.Loader
	Agent    interfaces.AgentService
	Wiki     interfaces.WikiLookup
	Search   interfaces.SearchService
	Fetcher  interfaces.PageFetcher
	Scraper  interfaces.Scraper
	Events   interfaces.EventService
	Logger   arbor.ILogger
}

// setStage records the current pipeline stage on the task for
// observability. Persistence failures are logged, never fatal: the stage
// label is telemetry, not routing state.
func (d *Deps) setStage(ctx context.Context, task *models.Task, stage string) {
	task.PipelineState.Stage = stage
	if err := d.Store.TaskStorage().UpdateTask(ctx, task); err != nil {
		d.Logger.Warn().
			Err(err).
			Str("task_id", task.ID).
			Str("stage", stage).
			Msg("Failed to persist pipeline stage")
	}
}

// emit publishes a pipeline telemetry event.
func (d *Deps) emit(ctx context.Context, eventType interfaces.EventType, task *models.Task, payload interface{}) {
	_ = d.Events.Publish(ctx, interfaces.Event{
		Type:       eventType,
		TrackingID: task.TrackingID,
		TaskID:     task.ID,
		Payload:    payload,
	})
}
