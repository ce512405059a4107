package enrich

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Options tunes a Client. Zero values pick defaults.
type Options struct {
	Workers       int           // concurrent lookups in EnrichAll (default 4)
	RatePerSecond float64       // fetch rate limit, 0 = unlimited
	FetchTimeout  time.Duration // per-fetch timeout (default 20s)
	Metrics       *Metrics
}

// Stats counts lookup outcomes since the client was created.
type Stats struct {
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Failures int64 `json:"failures"`
}

// Client resolves enrichment records: cache first, then the fetcher. It never
// returns an error for a single company; failures degrade to Default().
//
// A cache hit is final. A company whose cached record is the degraded default
// is not fetched again until its entry is removed.
type Client struct {
	cache   Cache
	fetcher Fetcher
	log     zerolog.Logger
	metrics *Metrics
	workers int
	limiter *rate.Limiter
	timeout time.Duration

	hits     atomic.Int64
	misses   atomic.Int64
	failures atomic.Int64
}

// NewClient creates a client. cache and fetcher may be nil: without a cache
// every lookup misses, without a fetcher misses resolve to Default().
func NewClient(cache Cache, fetcher Fetcher, opts Options, log zerolog.Logger) *Client {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 20 * time.Second
	}
	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}
	return &Client{
		cache:   cache,
		fetcher: fetcher,
		log:     log,
		metrics: opts.Metrics,
		workers: opts.Workers,
		limiter: limiter,
		timeout: opts.FetchTimeout,
	}
}

// Lookup resolves a company by name.
func (c *Client) Lookup(ctx context.Context, name string) Result {
	return c.LookupTarget(ctx, Target{Name: name})
}

// Cached returns the cached record for name without fetching.
func (c *Client) Cached(ctx context.Context, name string) (Record, bool, error) {
	if c.cache == nil {
		return Record{}, false, nil
	}
	return c.cache.Get(ctx, CacheKey(name))
}

// LookupTarget resolves a company, using its website when the fetcher needs one.
func (c *Client) LookupTarget(ctx context.Context, t Target) Result {
	key := CacheKey(t.Name)
	res := Result{Name: t.Name, Key: key, Record: Default(), Source: SourceDefault}
	if key == "" {
		c.metrics.observeLookup(res.Source)
		return res
	}

	if c.cache != nil {
		rec, ok, err := c.cache.Get(ctx, key)
		switch {
		case err != nil:
			c.log.Warn().Err(err).Str("company", t.Name).Msg("cache read failed, refetching")
		case ok:
			c.hits.Add(1)
			res.Record, res.Source = rec, SourceCache
			c.metrics.observeLookup(res.Source)
			return res
		}
	}
	c.misses.Add(1)

	if c.fetcher == nil {
		c.metrics.observeLookup(res.Source)
		return res
	}

	rec, err := c.fetch(ctx, t)
	if err != nil {
		c.failures.Add(1)
		c.log.Warn().Err(err).Str("company", t.Name).Msg("enrichment fetch failed, using defaults")
		res.Err = err
		c.metrics.observeLookup(res.Source)
		return res
	}

	res.Record, res.Source = rec.Sanitize(), SourceFetch
	if c.cache != nil {
		if err := c.cache.Put(ctx, key, res.Record); err != nil {
			c.log.Warn().Err(err).Str("company", t.Name).Msg("cache write failed")
		}
	}
	c.metrics.observeLookup(res.Source)
	return res
}

func (c *Client) fetch(ctx context.Context, t Target) (Record, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Record{}, err
		}
	}

	fctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	rec, err := c.fetcher.Fetch(fctx, t)
	c.metrics.observeFetch(time.Since(start), err)
	return rec, err
}

// EnrichAll looks up every target with bounded concurrency. results[i]
// always corresponds to targets[i]. The only error is ctx's, in which case
// targets that were never reached carry Default().
func (c *Client) EnrichAll(ctx context.Context, targets []Target) ([]Result, error) {
	results := make([]Result, len(targets))
	done := make([]bool, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, t := range targets {
		i, t := i, t
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = c.LookupTarget(gctx, t)
			done[i] = true
			return nil
		})
	}
	_ = g.Wait()

	for i, t := range targets {
		if !done[i] {
			results[i] = Result{Name: t.Name, Key: CacheKey(t.Name), Record: Default(), Source: SourceDefault}
		}
	}
	return results, ctx.Err()
}

// Stats returns lookup counters.
func (c *Client) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Failures: c.failures.Load(),
	}
}
