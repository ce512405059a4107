package enrich

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const unknownText = "unknown"

// Rating is a service-quality rating that is either a known non-negative
// number or unknown. The zero value is unknown.
type Rating struct {
	value float64
	known bool
}

// Known returns a known rating. Negative or non-finite values yield Unknown.
func Known(v float64) Rating {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return Rating{}
	}
	return Rating{value: v, known: true}
}

// Unknown returns the unknown rating.
func Unknown() Rating { return Rating{} }

// Value returns the rating and whether it is known.
func (r Rating) Value() (float64, bool) { return r.value, r.known }

// IsKnown reports whether the rating carries a value.
func (r Rating) IsKnown() bool { return r.known }

// Float returns the rating, or 0 when unknown.
func (r Rating) Float() float64 {
	if !r.known {
		return 0
	}
	return r.value
}

func (r Rating) String() string {
	if !r.known {
		return unknownText
	}
	return strconv.FormatFloat(r.value, 'f', -1, 64)
}

// ParseRating accepts a number, "unknown", "N/A" or the empty string.
func ParseRating(s string) (Rating, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", unknownText, "n/a", "na", "null":
		return Unknown(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Unknown(), fmt.Errorf("parse rating %q: %w", s, err)
	}
	return Known(v), nil
}

func (r Rating) MarshalJSON() ([]byte, error) {
	if !r.known {
		return json.Marshal(unknownText)
	}
	return json.Marshal(r.value)
}

func (r *Rating) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Unknown()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*r = Known(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode rating: %w", err)
	}
	parsed, err := ParseRating(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
