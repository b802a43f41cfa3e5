package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
)

// SpawnRejection explains why a spawn was refused. Rejections are not
// failures: the parent continues as if the spawn had been deduplicated.
type SpawnRejection struct {
	Reason string
}

func (r *SpawnRejection) Error() string { return "spawn rejected: " + r.Reason }

// IsSpawnRejection reports whether err is a spawn-safety rejection.
func IsSpawnRejection(err error) bool {
	var r *SpawnRejection
	return errors.As(err, &r)
}

// Spawner creates child tasks under the spawn-safety rules:
//  1. child depth stays within max_spawn_depth,
//  2. no ancestor targeted the same normalized URL and kind,
//  3. no pending/processing task exists for (tracking_id, url, kind),
//  4. the URL is not already terminal within the lineage.
type Spawner struct {
	mgr      *Manager
	tasks    interfaces.TaskStorage
	maxDepth int
	logger   arbor.ILogger
}

// NewSpawner creates a spawn guard over the queue.
func NewSpawner(mgr *Manager, tasks interfaces.TaskStorage, maxDepth int, logger arbor.ILogger) *Spawner {
	if maxDepth <= 0 {
		maxDepth = 10
	}
	return &Spawner{mgr: mgr, tasks: tasks, maxDepth: maxDepth, logger: logger}
}

// Spawn creates and enqueues a child task after the safety checks pass.
// A *SpawnRejection error means the child was refused, not that the parent
// failed.
func (s *Spawner) Spawn(ctx context.Context, parent *models.Task, kind models.TaskKind, targetURL string, payload interface{}, maxRetries int) (*models.Task, error) {
	if parent.SpawnDepth+1 > s.maxDepth {
		return nil, s.reject(parent, kind, targetURL, fmt.Sprintf("spawn depth %d exceeds max %d", parent.SpawnDepth+1, s.maxDepth))
	}

	lineage, err := s.tasks.FindLineageTasks(ctx, parent.TrackingID, targetURL, kind)
	if err != nil {
		return nil, fmt.Errorf("spawn safety query failed: %w", err)
	}

	ancestors := make(map[string]bool, len(parent.AncestryChain)+1)
	for _, id := range parent.AncestryChain {
		ancestors[id] = true
	}
	ancestors[parent.ID] = true

	for _, existing := range lineage {
		if ancestors[existing.ID] {
			return nil, s.reject(parent, kind, targetURL, "ancestor already targets this url and kind")
		}
		switch {
		case existing.Status == models.TaskStatusPending || existing.Status == models.TaskStatusProcessing:
			return nil, s.reject(parent, kind, targetURL, "active sibling exists for this url and kind")
		case existing.Status.IsTerminal():
			return nil, s.reject(parent, kind, targetURL, "url already terminal within lineage")
		}
	}

	child, err := models.NewChildTask(parent, kind, targetURL, payload, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to build child task: %w", err)
	}
	if err := s.mgr.Enqueue(ctx, child); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("tracking_id", parent.TrackingID).
		Str("task_id", parent.ID).
		Str("child_id", child.ID).
		Str("kind", string(kind)).
		Int("depth", child.SpawnDepth).
		Msg("Child task spawned")
	return child, nil
}

func (s *Spawner) reject(parent *models.Task, kind models.TaskKind, targetURL, reason string) error {
	s.logger.Info().
		Str("tracking_id", parent.TrackingID).
		Str("task_id", parent.ID).
		Str("kind", string(kind)).
		Str("target_url", targetURL).
		Str("reason", reason).
		Msg("Spawn rejected")
	return &SpawnRejection{Reason: reason}
}
