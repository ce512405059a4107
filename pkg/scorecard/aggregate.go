package scorecard

import (
	"github.com/elonfeng/scorecard/pkg/enrich"
	"github.com/elonfeng/scorecard/pkg/funding"
)

// Aggregate collapses rounds into one Company per company identifier, in
// order of first appearance. Rows with an empty identifier each become their
// own company.
func Aggregate(rounds []funding.Round) []Company {
	var (
		companies []Company
		staffed   []bool // employee count taken from input
		index     = make(map[string]int)
	)

	for _, r := range rounds {
		i, ok := index[r.CompanyID]
		if !ok || r.CompanyID == "" {
			i = len(companies)
			companies = append(companies, Company{
				ID:            r.CompanyID,
				EmployeeCount: 1,
				Rating:        enrich.Unknown(),
			})
			staffed = append(staffed, false)
			if r.CompanyID != "" {
				index[r.CompanyID] = i
			}
		}

		c := &companies[i]
		c.TotalRaisedUSD += r.Amount()
		if c.Name == "" {
			c.Name = r.CompanyName
		}
		if c.Website == "" {
			c.Website = r.Website
		}
		if !staffed[i] && r.Employees > 0 {
			c.EmployeeCount = r.Employees
			staffed[i] = true
		}
		if r.AnnouncedOn.After(c.LastRound) {
			c.LastRound = r.AnnouncedOn
		}
	}
	return companies
}
