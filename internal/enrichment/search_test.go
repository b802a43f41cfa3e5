package enrichment

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
)

type fakeSearch struct {
	results []interfaces.SearchResult
	err     error
	calls   int
}

func (f *fakeSearch) Search(ctx context.Context, query string, maxResults int) ([]interfaces.SearchResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type memoryKV struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryKV() *memoryKV {
	return &memoryKV{values: make(map[string]string)}
}

func (m *memoryKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", interfaces.ErrNotFound
	}
	return v, nil
}

func (m *memoryKV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *memoryKV) IncrementCounter(ctx context.Context, key string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, _ := strconv.ParseInt(m.values[key], 10, 64)
	current += delta
	m.values[key] = strconv.FormatInt(current, 10)
	return current, nil
}

func (m *memoryKV) GetCounter(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, _ := strconv.ParseInt(m.values[key], 10, 64)
	return current, nil
}

func capOf(n int) func() int { return func() int { return n } }

func TestFailoverSearchUsesPrimary(t *testing.T) {
	primary := &fakeSearch{results: []interfaces.SearchResult{{Title: "Acme", URL: "https://acme.example"}}}
	fallback := &fakeSearch{}
	s := NewFailoverSearch(primary, fallback, newMemoryKV(), capOf(100), arbor.NewLogger())

	results, err := s.Search(context.Background(), "Acme company", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://acme.example", results[0].URL)
	assert.Zero(t, fallback.calls)
}

func TestFailoverSearchFallsBack(t *testing.T) {
	primary := &fakeSearch{err: models.Errorf(models.ErrTransientNetwork, "primary down")}
	fallback := &fakeSearch{results: []interfaces.SearchResult{{Title: "Acme", URL: "https://acme.example"}}}
	s := NewFailoverSearch(primary, fallback, newMemoryKV(), capOf(100), arbor.NewLogger())

	results, err := s.Search(context.Background(), "Acme company", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestFailoverSearchBothProvidersFail(t *testing.T) {
	primary := &fakeSearch{err: models.Errorf(models.ErrTransientNetwork, "primary down")}
	fallback := &fakeSearch{err: models.Errorf(models.ErrRateLimited, "fallback throttled")}
	s := NewFailoverSearch(primary, fallback, newMemoryKV(), capOf(100), arbor.NewLogger())

	_, err := s.Search(context.Background(), "Acme company", 5)
	require.Error(t, err)
	assert.Equal(t, models.ErrRateLimited, models.KindOf(err))
	assert.Contains(t, err.Error(), "both search providers failed")
}

func TestFailoverSearchEnforcesDailyCap(t *testing.T) {
	primary := &fakeSearch{results: []interfaces.SearchResult{{Title: "Acme"}}}
	s := NewFailoverSearch(primary, &fakeSearch{}, newMemoryKV(), capOf(2), arbor.NewLogger())
	ctx := context.Background()

	_, err := s.Search(ctx, "one", 5)
	require.NoError(t, err)
	_, err = s.Search(ctx, "two", 5)
	require.NoError(t, err)

	_, err = s.Search(ctx, "three", 5)
	require.Error(t, err)
	var quota interfaces.ErrSearchQuotaExceeded
	assert.True(t, errors.As(err, &quota))
	assert.Equal(t, 2, primary.calls)
}

func TestFailoverSearchZeroCapSkipsCounter(t *testing.T) {
	kv := newMemoryKV()
	primary := &fakeSearch{results: []interfaces.SearchResult{{Title: "Acme"}}}
	s := NewFailoverSearch(primary, &fakeSearch{}, kv, capOf(0), arbor.NewLogger())

	for i := 0; i < 5; i++ {
		_, err := s.Search(context.Background(), "query", 5)
		require.NoError(t, err)
	}
	assert.Empty(t, kv.values)
}
