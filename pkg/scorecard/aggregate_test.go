package scorecard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/scorecard/pkg/enrich"
	"github.com/elonfeng/scorecard/pkg/funding"
)

func TestAggregate(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

	rounds := []funding.Round{
		{CompanyID: "a", CompanyName: "", AmountUSD: funding.USD(100_000), AnnouncedOn: day(3)},
		{CompanyID: "b", CompanyName: "Beta", AmountUSD: funding.USD(60_000), Website: "beta.io"},
		{CompanyID: "a", CompanyName: "Alpha", AmountUSD: funding.USD(50_000), Employees: 12, AnnouncedOn: day(9)},
		{CompanyID: "a", CompanyName: "Alpha Renamed", AmountUSD: nil, Employees: 40, AnnouncedOn: day(5)},
	}

	got := Aggregate(rounds)
	require.Len(t, got, 2)

	a, b := got[0], got[1]
	assert.Equal(t, "a", a.ID)
	assert.Equal(t, "Alpha", a.Name, "first non-empty name wins")
	assert.Equal(t, 150_000.0, a.TotalRaisedUSD)
	assert.Equal(t, 12, a.EmployeeCount, "first known employee count wins")
	assert.Equal(t, day(9), a.LastRound)
	assert.Equal(t, 0, a.LanguageCount)
	assert.Equal(t, enrich.Unknown(), a.Rating)

	assert.Equal(t, "Beta", b.Name)
	assert.Equal(t, "beta.io", b.Website)
	assert.Equal(t, 60_000.0, b.TotalRaisedUSD)
	assert.Equal(t, 1, b.EmployeeCount, "unknown employee count floors at 1")
}

func TestAggregateEmptyInput(t *testing.T) {
	assert.Empty(t, Aggregate(nil))
	assert.Empty(t, Aggregate([]funding.Round{}))
}

func TestAggregateEmptyIDRowsAreSingletons(t *testing.T) {
	rounds := []funding.Round{
		{CompanyName: "Anon One", AmountUSD: funding.USD(10)},
		{CompanyName: "Anon Two", AmountUSD: funding.USD(20)},
		{CompanyID: "x", CompanyName: "X", AmountUSD: funding.USD(5)},
	}
	got := Aggregate(rounds)
	require.Len(t, got, 3)
	assert.Equal(t, "Anon One", got[0].Name)
	assert.Equal(t, "Anon Two", got[1].Name)
	assert.Equal(t, 20.0, got[1].TotalRaisedUSD)
}

func TestAggregateConservesTotal(t *testing.T) {
	rounds := randomRounds(500, 40, 7)

	var in float64
	for _, r := range rounds {
		in += r.Amount()
	}

	var out float64
	seen := map[string]bool{}
	for _, c := range Aggregate(rounds) {
		assert.False(t, seen[c.ID], "duplicate company id %s", c.ID)
		seen[c.ID] = true
		assert.GreaterOrEqual(t, c.EmployeeCount, 1)
		out += c.TotalRaisedUSD
	}
	assert.InDelta(t, in, out, 1e-6)
}
