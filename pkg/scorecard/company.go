// Package scorecard turns funding rounds into the Golden-Triangle ranking:
// per-company aggregation, min-max normalized pillar scores (access,
// efficiency, service quality), their mean, and a competition rank.
package scorecard

import (
	"time"

	"github.com/elonfeng/scorecard/pkg/enrich"
)

// DefaultFeaturedCutoff is the highest rank flagged as featured.
const DefaultFeaturedCutoff = 20

// Company is one aggregated, scored row of the scorecard.
type Company struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Website        string        `json:"website,omitempty"`
	TotalRaisedUSD float64       `json:"total_raised_usd"`
	EmployeeCount  int           `json:"employee_count"` // floor of 1 when unknown
	LanguageCount  int           `json:"language_count"`
	Rating         enrich.Rating `json:"rating"`
	EnrichedFrom   enrich.Source `json:"enriched_from,omitempty"`
	LastRound      time.Time     `json:"last_round,omitempty"`

	Efficiency          float64 `json:"efficiency"`
	AccessScore         float64 `json:"access_score"`
	EfficiencyScore     float64 `json:"efficiency_score"`
	ServiceQualityScore float64 `json:"service_quality_score"`
	OverallScore        float64 `json:"overall_score"`
	Rank                int     `json:"rank"`
	Featured            bool    `json:"featured"`
}

// Scorecard is the result of one pipeline run.
type Scorecard struct {
	RunID          string       `json:"run_id"`
	GeneratedAt    time.Time    `json:"generated_at"`
	FeaturedCutoff int          `json:"featured_cutoff"`
	Companies      []Company    `json:"companies"`
	Enrichment     enrich.Stats `json:"enrichment"`
}

// Featured returns the companies ranked within the featured cutoff.
func (s *Scorecard) Featured() []Company {
	var out []Company
	for _, c := range s.Companies {
		if c.Featured {
			out = append(out, c)
		}
	}
	return out
}
