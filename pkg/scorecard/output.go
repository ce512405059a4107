package scorecard

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
)

// Columns is the CSV header written by WriteCSV.
var Columns = []string{
	"id", "name", "total_raised_usd", "employee_count", "language_count", "rating",
	"efficiency", "access_score", "efficiency_score", "service_quality_score",
	"overall_score", "rank", "featured",
}

// Filename is the download name for a scorecard generated at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("scorecard_%s.csv", t.Format("20060102"))
}

// WriteCSV writes one row per company in Columns order.
func WriteCSV(w io.Writer, companies []Company) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, c := range companies {
		rec := []string{
			c.ID,
			c.Name,
			formatFloat(c.TotalRaisedUSD),
			strconv.Itoa(c.EmployeeCount),
			strconv.Itoa(c.LanguageCount),
			c.Rating.String(),
			formatFloat(c.Efficiency),
			formatFloat(c.AccessScore),
			formatFloat(c.EfficiencyScore),
			formatFloat(c.ServiceQualityScore),
			formatFloat(c.OverallScore),
			strconv.Itoa(c.Rank),
			strconv.FormatBool(c.Featured),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row %s: %w", c.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTable renders companies for a terminal. Featured ranks get a star.
func WriteTable(w io.Writer, companies []Company) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tCOMPANY\tRAISED USD\tACCESS\tEFFICIENCY\tSERVICE\tOVERALL")
	for _, c := range companies {
		rank := strconv.Itoa(c.Rank)
		if c.Featured {
			rank = "⭐ " + rank
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%.1f\t%.1f\t%.2f\n",
			rank, c.Name, humanize.Commaf(c.TotalRaisedUSD),
			c.AccessScore, c.EfficiencyScore, c.ServiceQualityScore, c.OverallScore)
	}
	return tw.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
