package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atscore/internal/config"
	"atscore/internal/types"
)

type memoryBackend struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

func (m *memoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.entries[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memoryBackend) Close() error { return nil }

type countingExtractor struct {
	calls  int
	fields *types.StructuredFields
	err    error
}

func (c *countingExtractor) ExtractFields(context.Context, string) (*types.StructuredFields, error) {
	c.calls++
	return c.fields, c.err
}

func testCacheConfig() config.CacheConfig {
	return config.CacheConfig{TTL: time.Hour, KeyPrefix: "test:"}
}

func TestCachedExtractorReadThrough(t *testing.T) {
	backend := newMemoryBackend()
	next := &countingExtractor{fields: &types.StructuredFields{
		Name:      "Asha",
		Languages: types.StringList{"English"},
	}}
	c := NewCachedExtractor(next, backend, testCacheConfig(), nil)
	ctx := context.Background()

	first, err := c.ExtractFields(ctx, "resume text")
	require.NoError(t, err)
	second, err := c.ExtractFields(ctx, "resume text")
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first.Name, second.Name)
	assert.Equal(t, []string{"English"}, []string(second.Languages))
	assert.Equal(t, time.Hour, backend.ttls[c.Key("resume text")])

	_, err = c.ExtractFields(ctx, "other text")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachedExtractorKey(t *testing.T) {
	c := NewCachedExtractor(nil, newMemoryBackend(), testCacheConfig(), nil)
	key := c.Key("abc")
	assert.Equal(t, "test:ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", key)
	assert.NotEqual(t, key, c.Key("abd"))
}

func TestCachedExtractorIgnoresBackendFailures(t *testing.T) {
	backend := newMemoryBackend()
	backend.getErr = errors.New("connection refused")
	backend.setErr = errors.New("connection refused")
	next := &countingExtractor{fields: &types.StructuredFields{Name: "Asha"}}
	c := NewCachedExtractor(next, backend, testCacheConfig(), nil)

	fields, err := c.ExtractFields(context.Background(), "resume")
	require.NoError(t, err)
	assert.Equal(t, "Asha", fields.Name.String())
	assert.Equal(t, 1, next.calls)
}

func TestCachedExtractorDoesNotCacheErrors(t *testing.T) {
	backend := newMemoryBackend()
	next := &countingExtractor{err: errors.New("ai down")}
	c := NewCachedExtractor(next, backend, testCacheConfig(), nil)

	_, err := c.ExtractFields(context.Background(), "resume")
	assert.Error(t, err)
	assert.Empty(t, backend.entries)
}

func TestCachedExtractorDiscardsCorruptEntry(t *testing.T) {
	backend := newMemoryBackend()
	next := &countingExtractor{fields: &types.StructuredFields{Name: "Fresh"}}
	c := NewCachedExtractor(next, backend, testCacheConfig(), nil)
	backend.entries[c.Key("resume")] = []byte("not json")

	fields, err := c.ExtractFields(context.Background(), "resume")
	require.NoError(t, err)
	assert.Equal(t, "Fresh", fields.Name.String())
	assert.Equal(t, 1, next.calls)
}

func TestNewRedisBackendRequiresAddr(t *testing.T) {
	_, err := NewRedisBackend(context.Background(), config.CacheConfig{})
	assert.Error(t, err)
}
