package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
)

type stubKV struct {
	values map[string]string
}

func newStubKV() *stubKV { return &stubKV{values: make(map[string]string)} }

func (s *stubKV) Get(ctx context.Context, key string) (string, error) {
	v, ok := s.values[key]
	if !ok {
		return "", interfaces.ErrNotFound
	}
	return v, nil
}

func (s *stubKV) Set(ctx context.Context, key, value string) error {
	s.values[key] = value
	return nil
}

func (s *stubKV) Delete(ctx context.Context, key string) error {
	delete(s.values, key)
	return nil
}

func (s *stubKV) IncrementCounter(ctx context.Context, key string, delta int64) (int64, error) {
	return delta, nil
}

func (s *stubKV) GetCounter(ctx context.Context, key string) (int64, error) {
	return 0, nil
}

const (
	validPrefilter = `{"strike_threshold": 3}`
	validMatch     = `{
		"min_score": 40,
		"min_match_score": 65,
		"seniority": {"preferred": ["senior"], "preferred_score": 20},
		"skills": {"scores": {"go": 15}}
	}`
	validWorker = `{
		"concurrency": 2,
		"poll_interval": "2s",
		"visibility_timeout": "5m",
		"processing_timeout_seconds": 300,
		"max_retries": 3,
		"max_spawn_depth": 5,
		"backoff_base_seconds": 5,
		"backoff_max_seconds": 300,
		"max_company_wait_retries": 3,
		"source_fail_disable": 5
	}`
	validAI = `{
		"temperature": 0.2,
		"agents": {
			"job_extraction": {"provider": "gemini", "interface": "api", "model": "gemini-2.0-flash", "max_tokens": 8000}
		}
	}`
	validPersonal = `{"name": "Jane", "skills": [{"name": "go", "years": 7}]}`
)

func seedAll(t *testing.T, kv *stubKV) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, models.PolicyKeyPrefilter, validPrefilter))
	require.NoError(t, kv.Set(ctx, models.PolicyKeyMatch, validMatch))
	require.NoError(t, kv.Set(ctx, models.PolicyKeyWorkerSettings, validWorker))
	require.NoError(t, kv.Set(ctx, models.PolicyKeyAISettings, validAI))
	require.NoError(t, kv.Set(ctx, models.PolicyKeyPersonalInfo, validPersonal))
}

func TestLoadPublishesSnapshot(t *testing.T) {
	kv := newStubKV()
	seedAll(t, kv)
	loader := NewLoader(kv, arbor.NewLogger())

	snap, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, snap.Prefilter.StrikeThreshold)
	assert.Equal(t, 40, snap.Match.MinScore)
	assert.Equal(t, 2, snap.Worker.Concurrency)
	assert.Equal(t, "Jane", snap.Personal.Name)

	agent, ok := snap.AI.AgentFor(models.AITaskJobExtraction)
	require.True(t, ok)
	assert.Equal(t, "gemini", agent.Provider)

	assert.Same(t, snap, loader.Current())
}

func TestLoadMissingBlobFails(t *testing.T) {
	kv := newStubKV()
	seedAll(t, kv)
	require.NoError(t, kv.Delete(context.Background(), models.PolicyKeyPersonalInfo))

	loader := NewLoader(kv, arbor.NewLogger())
	_, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, models.ErrMissingConfig, models.KindOf(err))
	assert.Contains(t, err.Error(), models.PolicyKeyPersonalInfo)
}

func TestLoadRejectsInvalidBlob(t *testing.T) {
	kv := newStubKV()
	seedAll(t, kv)
	// concurrency 0 fails validation.
	require.NoError(t, kv.Set(context.Background(), models.PolicyKeyWorkerSettings,
		`{"concurrency": 0, "poll_interval": "2s", "visibility_timeout": "5m",
		  "processing_timeout_seconds": 300, "max_spawn_depth": 5,
		  "backoff_base_seconds": 5, "backoff_max_seconds": 300,
		  "max_company_wait_retries": 3, "source_fail_disable": 5}`))

	loader := NewLoader(kv, arbor.NewLogger())
	_, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, models.ErrMissingConfig, models.KindOf(err))
}

func TestReloadKeepsPreviousSnapshotOnFailure(t *testing.T) {
	kv := newStubKV()
	seedAll(t, kv)
	loader := NewLoader(kv, arbor.NewLogger())

	first, err := loader.Load(context.Background())
	require.NoError(t, err)

	require.NoError(t, kv.Set(context.Background(), models.PolicyKeyPrefilter, "not json"))
	require.Error(t, loader.Reload(context.Background()))
	assert.Same(t, first, loader.Current())
}

func TestSeedFromDirOnlyFillsMissingKeys(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prefilter-policy.toml"),
		[]byte("strike_threshold = 3\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "match-policy.toml"),
		[]byte("min_score = 99\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.toml"),
		[]byte("irrelevant = true\n"), 0644))

	kv := newStubKV()
	// match-policy already set: the stored value wins over the seed file.
	require.NoError(t, kv.Set(context.Background(), models.PolicyKeyMatch, validMatch))

	loader := NewLoader(kv, arbor.NewLogger())
	require.NoError(t, loader.SeedFromDir(context.Background(), dir))

	prefilter, err := kv.Get(context.Background(), models.PolicyKeyPrefilter)
	require.NoError(t, err)
	assert.Contains(t, prefilter, `"strike_threshold":3`)

	match, err := kv.Get(context.Background(), models.PolicyKeyMatch)
	require.NoError(t, err)
	assert.NotContains(t, match, "99")

	_, err = kv.Get(context.Background(), "notes")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestSeedFromDirMissingDirIsNotAnError(t *testing.T) {
	loader := NewLoader(newStubKV(), arbor.NewLogger())
	assert.NoError(t, loader.SeedFromDir(context.Background(), filepath.Join(t.TempDir(), "absent")))
}
