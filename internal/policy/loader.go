package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
)

// Snapshot is one consistent view of all five policy blobs. Snapshots are
// immutable; Reload publishes a replacement.
type Snapshot struct {
	Prefilter models.PrefilterPolicy
	Match     models.MatchPolicy
	Worker    models.WorkerSettings
	AI        models.AISettings
	Personal  models.PersonalInfo
}

// Loader reads the policy blobs from the KV store, validates them, and
// publishes immutable snapshots. Missing required keys fail fast.
type Loader struct {
	kv       interfaces.KeyValueStorage
	validate *validator.Validate
	logger   arbor.ILogger

	mu       sync.RWMutex
	snapshot *Snapshot
}

// NewLoader creates a policy loader.
func NewLoader(kv interfaces.KeyValueStorage, logger arbor.ILogger) *Loader {
	return &Loader{
		kv:       kv,
		validate: validator.New(),
		logger:   logger,
	}
}

// SeedFromDir loads TOML policy files into the KV store for any blob key
// that is not present yet. File name (without extension) must equal the
// blob key, e.g. prefilter-policy.toml.
func (l *Loader) SeedFromDir(ctx context.Context, dir string) error {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read policy seed dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		key := strings.TrimSuffix(entry.Name(), ".toml")
		if !isPolicyKey(key) {
			continue
		}

		if _, err := l.kv.Get(ctx, key); err == nil {
			continue // already present, KV wins
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read policy seed %s: %w", entry.Name(), err)
		}
		var decoded map[string]interface{}
		if err := toml.Unmarshal(data, &decoded); err != nil {
			return fmt.Errorf("failed to parse policy seed %s: %w", entry.Name(), err)
		}
		blob, err := json.Marshal(decoded)
		if err != nil {
			return fmt.Errorf("failed to encode policy seed %s: %w", entry.Name(), err)
		}
		if err := l.kv.Set(ctx, key, string(blob)); err != nil {
			return fmt.Errorf("failed to store policy seed %s: %w", entry.Name(), err)
		}
		l.logger.Info().Str("key", key).Msg("Seeded policy blob from file")
	}
	return nil
}

func isPolicyKey(key string) bool {
	switch key {
	case models.PolicyKeyPrefilter, models.PolicyKeyMatch, models.PolicyKeyWorkerSettings,
		models.PolicyKeyAISettings, models.PolicyKeyPersonalInfo:
		return true
	}
	return false
}

// Load reads and validates all five blobs and publishes the snapshot.
// A missing blob or missing required inner key is fatal (MissingConfig).
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	if err := l.loadBlob(ctx, models.PolicyKeyPrefilter, &snap.Prefilter); err != nil {
		return nil, err
	}
	if err := l.loadBlob(ctx, models.PolicyKeyMatch, &snap.Match); err != nil {
		return nil, err
	}
	if err := l.loadBlob(ctx, models.PolicyKeyWorkerSettings, &snap.Worker); err != nil {
		return nil, err
	}
	if err := l.loadBlob(ctx, models.PolicyKeyAISettings, &snap.AI); err != nil {
		return nil, err
	}
	if err := l.loadBlob(ctx, models.PolicyKeyPersonalInfo, &snap.Personal); err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.snapshot = snap
	l.mu.Unlock()

	l.logger.Info().Msg("Policy snapshot loaded")
	return snap, nil
}

func (l *Loader) loadBlob(ctx context.Context, key string, target interface{}) error {
	raw, err := l.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return models.Errorf(models.ErrMissingConfig, "required config blob %q is missing", key)
		}
		return fmt.Errorf("failed to read config blob %q: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return models.Errorf(models.ErrMissingConfig, "config blob %q is malformed: %v", key, err)
	}
	if err := l.validate.Struct(target); err != nil {
		return models.Errorf(models.ErrMissingConfig, "config blob %q failed validation: %v", key, err)
	}
	return nil
}

// Current returns the last published snapshot. Callers get one consistent
// snapshot per call; the loader is the only writer.
func (l *Loader) Current() *Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshot
}

// Reload re-reads the blobs and publishes a replacement snapshot. On
// validation failure the previous snapshot stays published.
func (l *Loader) Reload(ctx context.Context) error {
	_, err := l.Load(ctx)
	return err
}
