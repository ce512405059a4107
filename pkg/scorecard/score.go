package scorecard

import "sort"

// Overall is the unweighted mean of the three pillar scores. Non-finite
// pillars count as 0.
func Overall(access, efficiency, serviceQuality float64) float64 {
	return (Finite(access) + Finite(efficiency) + Finite(serviceQuality)) / 3
}

// Score derives efficiency, the three pillar scores, the overall score and
// the rank of every company. Each pillar is normalized on its own column.
// Companies are reordered by rank.
func Score(companies []Company, featuredCutoff int) {
	languages := make([]float64, len(companies))
	efficiency := make([]float64, len(companies))

	for i := range companies {
		c := &companies[i]
		if c.EmployeeCount < 1 {
			c.EmployeeCount = 1
		}
		c.Efficiency = Finite(c.TotalRaisedUSD / float64(c.EmployeeCount))
		languages[i] = float64(c.LanguageCount)
		efficiency[i] = c.Efficiency
	}

	access := Normalize(languages)
	effScores := Normalize(efficiency)

	for i := range companies {
		c := &companies[i]
		c.AccessScore = access[i]
		c.EfficiencyScore = effScores[i]
		// Ratings are already bounded and pass through unscaled.
		c.ServiceQualityScore = Clamp(c.Rating.Float())
		c.OverallScore = Overall(c.AccessScore, c.EfficiencyScore, c.ServiceQualityScore)
	}

	Rank(companies, featuredCutoff)
}

// Rank sorts companies by overall score descending and assigns standard
// competition ranks: rank = 1 + number of companies with a strictly greater
// score. Ties keep the same rank and are ordered by name, then id. Companies
// with rank <= featuredCutoff are marked featured.
func Rank(companies []Company, featuredCutoff int) {
	sort.SliceStable(companies, func(i, j int) bool {
		a, b := companies[i], companies[j]
		if a.OverallScore != b.OverallScore {
			return a.OverallScore > b.OverallScore
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})

	for i := range companies {
		if i > 0 && companies[i].OverallScore == companies[i-1].OverallScore {
			companies[i].Rank = companies[i-1].Rank
		} else {
			companies[i].Rank = i + 1
		}
		companies[i].Featured = companies[i].Rank <= featuredCutoff
	}
}
