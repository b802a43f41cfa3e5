package badger

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/venari/internal/interfaces"
)

// KeyValuePair is the stored KV record.
type KeyValuePair struct {
	Key   string `json:"key" badgerhold:"key"`
	Value string `json:"value"`
}

// KVStorage implements the KeyValueStorage interface for Badger. It holds
// the policy config blobs and the bounded budget counters.
type KVStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewKVStorage creates a new KVStorage instance.
func NewKVStorage(db *BadgerDB, logger arbor.ILogger) interfaces.KeyValueStorage {
	return &KVStorage{db: db, logger: logger}
}

// normalizeKey makes keys case-insensitive.
func (s *KVStorage) normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (s *KVStorage) Get(ctx context.Context, key string) (string, error) {
	var pair KeyValuePair
	if err := s.db.Store().Get(s.normalizeKey(key), &pair); err != nil {
		if err == badgerhold.ErrNotFound {
			return "", interfaces.ErrNotFound
		}
		return "", fmt.Errorf("failed to get key: %w", err)
	}
	return pair.Value, nil
}

func (s *KVStorage) Set(ctx context.Context, key, value string) error {
	pair := KeyValuePair{Key: s.normalizeKey(key), Value: value}
	if err := s.db.Store().Upsert(pair.Key, &pair); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

func (s *KVStorage) Delete(ctx context.Context, key string) error {
	if err := s.db.Store().Delete(s.normalizeKey(key), &KeyValuePair{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// IncrementCounter performs an atomic read-modify-write on a counter key
// inside one badger transaction. Budget enforcement relies on this being
// the only counter write path.
func (s *KVStorage) IncrementCounter(ctx context.Context, key string, delta int64) (int64, error) {
	normalized := s.normalizeKey(key)
	var result int64
	err := s.db.Store().Badger().Update(func(txn *badgerdb.Txn) error {
		var pair KeyValuePair
		current := int64(0)
		err := s.db.Store().TxGet(txn, normalized, &pair)
		if err == nil {
			parsed, perr := strconv.ParseInt(pair.Value, 10, 64)
			if perr != nil {
				return fmt.Errorf("counter %s holds non-numeric value %q", normalized, pair.Value)
			}
			current = parsed
		} else if err != badgerhold.ErrNotFound {
			return err
		}

		result = current + delta
		pair.Key = normalized
		pair.Value = strconv.FormatInt(result, 10)
		return s.db.Store().TxUpsert(txn, normalized, &pair)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}
	return result, nil
}

func (s *KVStorage) GetCounter(ctx context.Context, key string) (int64, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		if err == interfaces.ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	parsed, perr := strconv.ParseInt(raw, 10, 64)
	if perr != nil {
		return 0, fmt.Errorf("counter %s holds non-numeric value %q", key, raw)
	}
	return parsed, nil
}
