package queue

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
	storage "github.com/ternarybob/venari/internal/storage/badger"
)

func testSpawner(t *testing.T, maxDepth int) (*Spawner, *Manager, interfaces.TaskStorage) {
	t.Helper()
	logger := arbor.NewLogger()
	db, err := storage.NewBadgerDB(logger, &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "spawn"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	policy := NewPolicy(&models.WorkerSettings{
		MaxRetries:         2,
		BackoffBaseSeconds: 0.01,
		BackoffMaxSeconds:  0.05,
	})
	mgr := NewManager(db, time.Minute, policy, logger)
	tasks := storage.NewTaskStorage(db, logger)
	return NewSpawner(mgr, tasks, maxDepth, logger), mgr, tasks
}

func TestSpawnCreatesChildWithLineage(t *testing.T) {
	spawner, mgr, _ := testSpawner(t, 5)
	ctx := context.Background()

	parent := mustTask(t, models.TaskKindScrapeSource, "https://boards.greenhouse.io/acme")
	require.NoError(t, mgr.Enqueue(ctx, parent))

	child, err := spawner.Spawn(ctx, parent, models.TaskKindJobListing,
		"https://acme.example/jobs/1", &models.JobListingPayload{URL: "https://acme.example/jobs/1"}, 2)
	require.NoError(t, err)

	assert.Equal(t, parent.TrackingID, child.TrackingID)
	assert.Equal(t, []string{parent.ID}, child.AncestryChain)
	assert.Equal(t, parent.SpawnDepth+1, child.SpawnDepth)
	assert.Equal(t, models.TaskStatusPending, child.Status)

	// The child is leasable alongside the parent.
	leased, err := mgr.Lease(ctx)
	require.NoError(t, err)
	assert.Equal(t, parent.ID, leased.ID)
	leased, err = mgr.Lease(ctx)
	require.NoError(t, err)
	assert.Equal(t, child.ID, leased.ID)
}

func TestSpawnRejectsBeyondMaxDepth(t *testing.T) {
	spawner, _, _ := testSpawner(t, 3)

	parent := mustTask(t, models.TaskKindScrapeSource, "https://boards.greenhouse.io/acme")
	parent.SpawnDepth = 3

	_, err := spawner.Spawn(context.Background(), parent, models.TaskKindJobListing,
		"https://acme.example/jobs/1", nil, 2)
	require.Error(t, err)
	assert.True(t, IsSpawnRejection(err))
	assert.Contains(t, err.Error(), "spawn depth")
}

func TestSpawnRejectsAncestorTarget(t *testing.T) {
	spawner, mgr, _ := testSpawner(t, 5)
	ctx := context.Background()

	// The parent itself targets the URL with the same kind.
	parent := mustTask(t, models.TaskKindJobListing, "https://acme.example/jobs/1")
	require.NoError(t, mgr.Enqueue(ctx, parent))

	_, err := spawner.Spawn(ctx, parent, models.TaskKindJobListing,
		"https://acme.example/jobs/1", nil, 2)
	require.Error(t, err)
	assert.True(t, IsSpawnRejection(err))
	assert.Contains(t, err.Error(), "ancestor")
}

func TestSpawnRejectsActiveSibling(t *testing.T) {
	spawner, mgr, tasks := testSpawner(t, 5)
	ctx := context.Background()

	parent := mustTask(t, models.TaskKindScrapeSource, "https://boards.greenhouse.io/acme")
	require.NoError(t, mgr.Enqueue(ctx, parent))

	sibling := mustTask(t, models.TaskKindJobListing, "https://acme.example/jobs/1")
	sibling.TrackingID = parent.TrackingID
	require.NoError(t, tasks.SaveTask(ctx, sibling))

	_, err := spawner.Spawn(ctx, parent, models.TaskKindJobListing,
		"https://acme.example/jobs/1", nil, 2)
	require.Error(t, err)
	assert.True(t, IsSpawnRejection(err))
	assert.Contains(t, err.Error(), "active sibling")
}

func TestSpawnRejectsTerminalURLInLineage(t *testing.T) {
	spawner, mgr, tasks := testSpawner(t, 5)
	ctx := context.Background()

	parent := mustTask(t, models.TaskKindScrapeSource, "https://boards.greenhouse.io/acme")
	require.NoError(t, mgr.Enqueue(ctx, parent))

	done := mustTask(t, models.TaskKindJobListing, "https://acme.example/jobs/1")
	done.TrackingID = parent.TrackingID
	done.Status = models.TaskStatusSuccess
	require.NoError(t, tasks.SaveTask(ctx, done))

	_, err := spawner.Spawn(ctx, parent, models.TaskKindJobListing,
		"https://acme.example/jobs/1", nil, 2)
	require.Error(t, err)
	assert.True(t, IsSpawnRejection(err))
	assert.Contains(t, err.Error(), "terminal")
}

func TestSpawnAllowsSameURLDifferentKind(t *testing.T) {
	spawner, mgr, _ := testSpawner(t, 5)
	ctx := context.Background()

	parent := mustTask(t, models.TaskKindJobListing, "https://acme.example/jobs/1")
	require.NoError(t, mgr.Enqueue(ctx, parent))

	// Lineage matching is per (url, kind): a company lookup for the same
	// URL is a different kind and passes.
	child, err := spawner.Spawn(ctx, parent, models.TaskKindCompany,
		"https://acme.example/jobs/1", &models.CompanyPayload{CompanyName: "Acme"}, 2)
	require.NoError(t, err)
	assert.Equal(t, models.TaskKindCompany, child.Kind)
}
