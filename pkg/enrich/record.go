// Package enrich looks up supplementary per-company attributes (language
// count, rating) through a persistent cache with an external fetch fallback.
package enrich

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Record is the enrichment payload persisted per company.
type Record struct {
	LanguageCount int    `json:"language_count"`
	Rating        Rating `json:"rating"`
}

// Default is the record used when nothing better is known.
func Default() Record {
	return Record{LanguageCount: 0, Rating: Unknown()}
}

// Sanitize clamps a fetched record into its valid domain. Ratings are
// already valid by construction.
func (r Record) Sanitize() Record {
	if r.LanguageCount < 0 {
		r.LanguageCount = 0
	}
	return r
}

// Source tells where a lookup result came from.
type Source string

const (
	SourceCache   Source = "cache"
	SourceFetch   Source = "fetch"
	SourceDefault Source = "default"
)

// Target identifies the company to enrich.
type Target struct {
	Name    string
	Website string
}

// Result is the outcome of one lookup. Err is set when the fetch failed and
// the default record was substituted; it is informational only.
type Result struct {
	Name   string `json:"name"`
	Key    string `json:"key"`
	Record Record `json:"record"`
	Source Source `json:"source"`
	Err    error  `json:"-"`
}

// Cache persists enrichment records keyed by CacheKey.
type Cache interface {
	Get(ctx context.Context, key string) (Record, bool, error)
	Put(ctx context.Context, key string, rec Record) error
}

// Fetcher retrieves enrichment attributes from outside the funding dataset.
type Fetcher interface {
	Fetch(ctx context.Context, t Target) (Record, error)
}

// CacheKey derives the cache key for a company name. Whitespace and path
// separators become underscores; case is preserved.
func CacheKey(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, name)
}
