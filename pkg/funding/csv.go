package funding

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// Field names a semantic input column.
type Field string

const (
	FieldCompanyID   Field = "company_id"
	FieldCompanyName Field = "company_name"
	FieldAmount      Field = "amount_usd"
	FieldEmployees   Field = "employees"
	FieldWebsite     Field = "website"
	FieldAnnouncedOn Field = "announced_on"
)

// Aliases maps each field to the header names accepted for it. The long names
// follow the deals.csv export shape.
var Aliases = map[Field][]string{
	FieldCompanyID:   {"results__funded_organization_identifier__uuid", "uuid", "id", "company_id"},
	FieldCompanyName: {"results__funded_organization_identifier__value", "company", "name", "company_name"},
	FieldAmount:      {"results__money_raised__value_usd", "raised_usd", "amount", "amount_usd"},
	FieldEmployees:   {"employees", "employee_count", "num_employees"},
	FieldWebsite:     {"results__funded_organization_identifier__permalink", "website", "permalink"},
	FieldAnnouncedOn: {"results__announced_on", "announced_on", "date"},
}

var requiredFields = []Field{FieldCompanyID, FieldCompanyName, FieldAmount}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

// ReadCSV parses funding rounds from a CSV table with a header row. Any
// malformed header or field fails the whole read with an *InputError.
func ReadCSV(r io.Reader) ([]Round, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	hdr, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &InputError{Column: string(FieldCompanyID), Err: ErrMissingColumn}
	}
	if err != nil {
		return nil, &InputError{Err: fmt.Errorf("read header: %w", err)}
	}

	idx := columnIndex(hdr)
	for _, f := range requiredFields {
		if _, ok := idx[f]; !ok {
			return nil, &InputError{Column: string(f), Err: ErrMissingColumn}
		}
	}

	var rounds []Round
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &InputError{Row: row, Err: err}
		}

		round, err := parseRecord(rec, idx, row)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, round)
	}
	return rounds, nil
}

func columnIndex(hdr []string) map[Field]int {
	pos := make(map[string]int, len(hdr))
	for i, h := range hdr {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}

	idx := make(map[Field]int)
	for field, names := range Aliases {
		for _, name := range names {
			if i, ok := pos[name]; ok {
				idx[field] = i
				break
			}
		}
	}
	return idx
}

func parseRecord(rec []string, idx map[Field]int, row int) (Round, error) {
	get := func(f Field) string {
		i, ok := idx[f]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	round := Round{
		CompanyID:   get(FieldCompanyID),
		CompanyName: get(FieldCompanyName),
		Website:     get(FieldWebsite),
	}

	if v := get(FieldAmount); v != "" {
		amount, err := parseAmount(v)
		if err != nil {
			return Round{}, &InputError{Row: row, Column: string(FieldAmount), Err: err}
		}
		round.AmountUSD = &amount
	}

	if v := get(FieldEmployees); v != "" {
		n, err := parseCount(v)
		if err != nil {
			return Round{}, &InputError{Row: row, Column: string(FieldEmployees), Err: err}
		}
		round.Employees = n
	}

	if v := get(FieldAnnouncedOn); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return Round{}, &InputError{Row: row, Column: string(FieldAnnouncedOn), Err: err}
		}
		round.AnnouncedOn = t
	}

	return round, nil
}

func parseAmount(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadNumber, s)
	}
	return f, nil
}

func parseCount(s string) (int, error) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %q", ErrBadNumber, s)
	}
	return int(f), nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
}
