package scorecard

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/scorecard/pkg/enrich"
	"github.com/elonfeng/scorecard/pkg/funding"
)

type fakeEnricher struct {
	records map[string]enrich.Record
	err     error
	calls   int
}

func (f *fakeEnricher) EnrichAll(_ context.Context, targets []enrich.Target) ([]enrich.Result, error) {
	f.calls++
	results := make([]enrich.Result, len(targets))
	for i, t := range targets {
		res := enrich.Result{Name: t.Name, Key: enrich.CacheKey(t.Name), Record: enrich.Default(), Source: enrich.SourceDefault}
		if rec, ok := f.records[t.Name]; ok {
			res.Record, res.Source = rec, enrich.SourceCache
		}
		results[i] = res
	}
	return results, f.err
}

const dealsCSV = `results__funded_organization_identifier__uuid,results__funded_organization_identifier__value,results__money_raised__value_usd,results__announced_on
uuid-a,Alpha,100000,2024-02-01
uuid-b,Beta,60000,2024-03-01
uuid-a,Alpha,50000,2024-04-01
`

func TestEngineRunCSV(t *testing.T) {
	e := NewEngine(nil, 0, zerolog.Nop())
	sc, err := e.RunCSV(context.Background(), strings.NewReader(dealsCSV))
	require.NoError(t, err)

	assert.NotEmpty(t, sc.RunID)
	assert.False(t, sc.GeneratedAt.IsZero())
	assert.Equal(t, DefaultFeaturedCutoff, sc.FeaturedCutoff)
	require.Len(t, sc.Companies, 2)
	assert.Equal(t, "Alpha", sc.Companies[0].Name)
	assert.Equal(t, 1, sc.Companies[0].Rank)
	assert.Len(t, sc.Featured(), 2)
}

func TestEngineRunWithEnrichment(t *testing.T) {
	enricher := &fakeEnricher{records: map[string]enrich.Record{
		"Beta": {LanguageCount: 12, Rating: enrich.Known(4.8)},
	}}
	e := NewEngine(enricher, 1, zerolog.Nop())

	sc, err := e.RunCSV(context.Background(), strings.NewReader(dealsCSV))
	require.NoError(t, err)
	require.Len(t, sc.Companies, 2)

	beta := sc.Companies[0]
	assert.Equal(t, "Beta", beta.Name)
	assert.Equal(t, 12, beta.LanguageCount)
	assert.Equal(t, enrich.SourceCache, beta.EnrichedFrom)
	assert.Equal(t, 100.0, beta.AccessScore)
	assert.Equal(t, 4.8, beta.ServiceQualityScore)
	assert.InDelta(t, (100+0+4.8)/3, beta.OverallScore, 1e-9)
	assert.True(t, beta.Featured)
	assert.False(t, sc.Companies[1].Featured)

	assert.Equal(t, enrich.Stats{Hits: 1, Misses: 1}, sc.Enrichment)
}

func TestEngineEnrichmentCancelled(t *testing.T) {
	enricher := &fakeEnricher{err: context.Canceled}
	e := NewEngine(enricher, 0, zerolog.Nop())

	_, err := e.RunCSV(context.Background(), strings.NewReader(dealsCSV))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, funding.IsInputError(err))
}

func TestEngineMalformedInput(t *testing.T) {
	enricher := &fakeEnricher{}
	e := NewEngine(enricher, 0, zerolog.Nop())

	_, err := e.RunCSV(context.Background(), strings.NewReader("uuid,company\nx,X\n"))
	require.Error(t, err)
	assert.True(t, funding.IsInputError(err))
	assert.True(t, errors.Is(err, funding.ErrMissingColumn))
	assert.Zero(t, enricher.calls, "enrichment must not run on malformed input")

	_, err = e.RunCSV(context.Background(), strings.NewReader("uuid,company,raised_usd\nx,X,lots\n"))
	assert.ErrorIs(t, err, funding.ErrBadNumber)
}

func TestEngineEmptyInput(t *testing.T) {
	enricher := &fakeEnricher{}
	e := NewEngine(enricher, 0, zerolog.Nop())

	sc, err := e.RunCSV(context.Background(), strings.NewReader("uuid,company,raised_usd\n"))
	require.NoError(t, err)
	assert.Empty(t, sc.Companies)
	assert.Zero(t, enricher.calls)
}
