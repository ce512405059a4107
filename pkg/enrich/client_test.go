package enrich

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	mu     sync.Mutex
	items  map[string]Record
	getErr error
	puts   int
}

func newMemCache() *memCache { return &memCache{items: map[string]Record{}} }

func (m *memCache) Get(_ context.Context, key string) (Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return Record{}, false, m.getErr
	}
	rec, ok := m.items[key]
	return rec, ok, nil
}

func (m *memCache) Put(_ context.Context, key string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = rec
	m.puts++
	return nil
}

type countingFetcher struct {
	calls atomic.Int64
	fn    func(t Target) (Record, error)
}

func (f *countingFetcher) Fetch(_ context.Context, t Target) (Record, error) {
	f.calls.Add(1)
	return f.fn(t)
}

func fixedFetcher(rec Record) *countingFetcher {
	return &countingFetcher{fn: func(Target) (Record, error) { return rec, nil }}
}

func TestLookupCacheHitSkipsFetch(t *testing.T) {
	cache := newMemCache()
	cache.items["Acme_AI"] = Record{LanguageCount: 7, Rating: Known(4.5)}
	fetcher := fixedFetcher(Record{LanguageCount: 1})

	c := NewClient(cache, fetcher, Options{}, zerolog.Nop())
	res := c.Lookup(context.Background(), "Acme AI")

	assert.Equal(t, SourceCache, res.Source)
	assert.Equal(t, 7, res.Record.LanguageCount)
	assert.Equal(t, Known(4.5), res.Record.Rating)
	assert.Zero(t, fetcher.calls.Load())
	assert.Equal(t, Stats{Hits: 1}, c.Stats())
}

func TestLookupMissFetchesAndStores(t *testing.T) {
	cache := newMemCache()
	fetcher := fixedFetcher(Record{LanguageCount: 3, Rating: Known(4.1)})

	c := NewClient(cache, fetcher, Options{}, zerolog.Nop())
	res := c.Lookup(context.Background(), "Beta Labs")

	assert.Equal(t, SourceFetch, res.Source)
	assert.Equal(t, 3, res.Record.LanguageCount)
	assert.Equal(t, int64(1), fetcher.calls.Load())
	require.Contains(t, cache.items, "Beta_Labs")

	again := c.Lookup(context.Background(), "Beta Labs")
	assert.Equal(t, SourceCache, again.Source)
	assert.Equal(t, int64(1), fetcher.calls.Load(), "second lookup must be served from cache")
}

func TestLookupFetchFailureDegrades(t *testing.T) {
	cache := newMemCache()
	boom := errors.New("connection refused")
	fetcher := &countingFetcher{fn: func(Target) (Record, error) { return Record{}, boom }}

	c := NewClient(cache, fetcher, Options{}, zerolog.Nop())
	res := c.Lookup(context.Background(), "Gamma")

	assert.Equal(t, SourceDefault, res.Source)
	assert.Equal(t, Default(), res.Record)
	assert.ErrorIs(t, res.Err, boom)
	assert.Zero(t, cache.puts, "failed fetches are not cached")
	assert.Equal(t, Stats{Misses: 1, Failures: 1}, c.Stats())
}

func TestLookupCachedDefaultIsNotRefetched(t *testing.T) {
	cache := newMemCache()
	cache.items["Delta"] = Default()
	fetcher := fixedFetcher(Record{LanguageCount: 9, Rating: Known(5)})

	c := NewClient(cache, fetcher, Options{}, zerolog.Nop())
	res := c.Lookup(context.Background(), "Delta")

	assert.Equal(t, SourceCache, res.Source)
	assert.Equal(t, Default(), res.Record)
	assert.Zero(t, fetcher.calls.Load())
}

func TestLookupEdgeCases(t *testing.T) {
	t.Run("empty name", func(t *testing.T) {
		fetcher := fixedFetcher(Record{LanguageCount: 2})
		c := NewClient(newMemCache(), fetcher, Options{}, zerolog.Nop())

		res := c.Lookup(context.Background(), "   ")
		assert.Equal(t, SourceDefault, res.Source)
		assert.Zero(t, fetcher.calls.Load())
	})

	t.Run("no fetcher", func(t *testing.T) {
		c := NewClient(newMemCache(), nil, Options{}, zerolog.Nop())
		res := c.Lookup(context.Background(), "Epsilon")
		assert.Equal(t, SourceDefault, res.Source)
		assert.NoError(t, res.Err)
	})

	t.Run("no cache", func(t *testing.T) {
		fetcher := fixedFetcher(Record{LanguageCount: 2})
		c := NewClient(nil, fetcher, Options{}, zerolog.Nop())
		assert.Equal(t, SourceFetch, c.Lookup(context.Background(), "Zeta").Source)
		assert.Equal(t, SourceFetch, c.Lookup(context.Background(), "Zeta").Source)
		assert.Equal(t, int64(2), fetcher.calls.Load())
	})

	t.Run("cache read error falls through to fetch", func(t *testing.T) {
		cache := newMemCache()
		cache.getErr = errors.New("corrupt entry")
		fetcher := fixedFetcher(Record{LanguageCount: 4})
		c := NewClient(cache, fetcher, Options{}, zerolog.Nop())

		res := c.Lookup(context.Background(), "Eta")
		assert.Equal(t, SourceFetch, res.Source)
		assert.Equal(t, 4, res.Record.LanguageCount)
	})

	t.Run("negative language count is clamped", func(t *testing.T) {
		fetcher := fixedFetcher(Record{LanguageCount: -3})
		c := NewClient(nil, fetcher, Options{}, zerolog.Nop())
		assert.Equal(t, 0, c.Lookup(context.Background(), "Theta").Record.LanguageCount)
	})
}

func TestEnrichAll(t *testing.T) {
	cache := newMemCache()
	cache.items["cached"] = Record{LanguageCount: 11}
	fetcher := &countingFetcher{fn: func(t Target) (Record, error) {
		if t.Name == "broken" {
			return Record{}, errors.New("404")
		}
		return Record{LanguageCount: len(t.Name)}, nil
	}}

	c := NewClient(cache, fetcher, Options{Workers: 3}, zerolog.Nop())

	var targets []Target
	for i := 0; i < 20; i++ {
		targets = append(targets, Target{Name: fmt.Sprintf("company-%02d", i)})
	}
	targets = append(targets, Target{Name: "cached"}, Target{Name: "broken"})

	results, err := c.EnrichAll(context.Background(), targets)
	require.NoError(t, err)
	require.Len(t, results, len(targets))

	for i, r := range results {
		assert.Equal(t, targets[i].Name, r.Name, "result %d out of order", i)
	}
	assert.Equal(t, 10, results[0].Record.LanguageCount)
	assert.Equal(t, SourceCache, results[20].Source)
	assert.Equal(t, 11, results[20].Record.LanguageCount)
	assert.Equal(t, SourceDefault, results[21].Source)
	assert.Equal(t, int64(21), fetcher.calls.Load())
}

func TestEnrichAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := fixedFetcher(Record{LanguageCount: 1})
	c := NewClient(newMemCache(), fetcher, Options{}, zerolog.Nop())

	results, err := c.EnrichAll(ctx, []Target{{Name: "a"}, {Name: "b"}})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, Default(), r.Record)
	}
}

func TestClientMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	cache := newMemCache()
	cache.items["hit"] = Record{}
	fetcher := &countingFetcher{fn: func(t Target) (Record, error) {
		if t.Name == "bad" {
			return Record{}, errors.New("timeout")
		}
		return Record{}, nil
	}}
	c := NewClient(cache, fetcher, Options{Metrics: m}, zerolog.Nop())

	c.Lookup(context.Background(), "hit")
	c.Lookup(context.Background(), "new")
	c.Lookup(context.Background(), "bad")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookups.WithLabelValues("cache")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookups.WithLabelValues("fetch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookups.WithLabelValues("default")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchFailures))
}

func TestCacheKey(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Acme AI", "Acme_AI"},
		{"acme ai", "acme_ai"},
		{"  Padded  ", "Padded"},
		{"Tab\tSeparated", "Tab_Separated"},
		{"a/b\\c", "a_b_c"},
		{"Café", "Café"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CacheKey(tt.name))
		})
	}
}
