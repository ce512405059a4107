package scorecard

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/elonfeng/scorecard/pkg/enrich"
	"github.com/elonfeng/scorecard/pkg/funding"
)

// Enricher fills language count and rating for a batch of companies.
// results[i] must correspond to targets[i].
type Enricher interface {
	EnrichAll(ctx context.Context, targets []enrich.Target) ([]enrich.Result, error)
}

// Engine runs the scoring pipeline: aggregate, enrich, normalize, rank.
type Engine struct {
	enricher       Enricher // optional, nil = no enrichment
	featuredCutoff int
	log            zerolog.Logger
	now            func() time.Time
}

// NewEngine creates a scoring engine.
func NewEngine(enricher Enricher, featuredCutoff int, log zerolog.Logger) *Engine {
	if featuredCutoff <= 0 {
		featuredCutoff = DefaultFeaturedCutoff
	}
	return &Engine{
		enricher:       enricher,
		featuredCutoff: featuredCutoff,
		log:            log,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// RunCSV reads funding rounds from r and scores them. Malformed input is
// returned as a *funding.InputError.
func (e *Engine) RunCSV(ctx context.Context, r io.Reader) (*Scorecard, error) {
	rounds, err := funding.ReadCSV(r)
	if err != nil {
		return nil, fmt.Errorf("read rounds: %w", err)
	}
	return e.Run(ctx, rounds)
}

// Run scores rounds. Enrichment failures never fail the run; the only error
// is cancellation of ctx during enrichment.
func (e *Engine) Run(ctx context.Context, rounds []funding.Round) (*Scorecard, error) {
	companies := Aggregate(rounds)
	e.log.Debug().Int("rounds", len(rounds)).Int("companies", len(companies)).Msg("aggregated rounds")

	sc := &Scorecard{
		RunID:          uuid.NewString(),
		GeneratedAt:    e.now(),
		FeaturedCutoff: e.featuredCutoff,
	}

	if e.enricher != nil && len(companies) > 0 {
		stats, err := e.enrich(ctx, companies)
		if err != nil {
			return nil, fmt.Errorf("enrich companies: %w", err)
		}
		sc.Enrichment = stats
	}

	Score(companies, e.featuredCutoff)
	sc.Companies = companies

	e.log.Info().
		Str("run_id", sc.RunID).
		Int("companies", len(companies)).
		Int("featured", len(sc.Featured())).
		Msg("scorecard computed")
	return sc, nil
}

func (e *Engine) enrich(ctx context.Context, companies []Company) (enrich.Stats, error) {
	targets := make([]enrich.Target, len(companies))
	for i, c := range companies {
		targets[i] = enrich.Target{Name: c.Name, Website: c.Website}
	}

	var stats enrich.Stats
	results, err := e.enricher.EnrichAll(ctx, targets)
	for i := range companies {
		if i >= len(results) {
			break
		}
		res := results[i]
		companies[i].LanguageCount = max(res.Record.LanguageCount, 0)
		companies[i].Rating = res.Record.Rating
		companies[i].EnrichedFrom = res.Source

		switch {
		case res.Source == enrich.SourceCache:
			stats.Hits++
		case res.Key != "":
			stats.Misses++
		}
		if res.Err != nil {
			stats.Failures++
		}
	}
	return stats, err
}
