// Package funding reads funding-round records, the raw input of a scorecard run.
package funding

import "time"

// Round is one funding-round row. Several rows may share a CompanyID.
type Round struct {
	CompanyID   string    `json:"company_id"`
	CompanyName string    `json:"company_name"`
	Website     string    `json:"website,omitempty"`
	AmountUSD   *float64  `json:"amount_usd,omitempty"` // nil when the row carries no amount
	Employees   int       `json:"employees,omitempty"`  // 0 when unknown
	AnnouncedOn time.Time `json:"announced_on,omitempty"`
}

// Amount returns the raised amount, treating a missing value as 0.
func (r Round) Amount() float64 {
	if r.AmountUSD == nil {
		return 0
	}
	return *r.AmountUSD
}

// USD is a helper for building rounds with a known amount.
func USD(v float64) *float64 { return &v }
