package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

// ErrNoURL is returned when neither a website nor a search template can
// locate the company page.
var ErrNoURL = errors.New("no url for company")

var ratingPaths = []string{
	"aggregateRating.ratingValue",
	"#.aggregateRating.ratingValue",
	`\@graph.#.aggregateRating.ratingValue`,
}

// HTMLFetcher scrapes a company page: hreflang alternates give the language
// count, schema.org ratingValue markup gives the rating.
type HTMLFetcher struct {
	client    *http.Client
	searchURL string // fmt template with one %s for the escaped company name
	userAgent string
}

// NewHTMLFetcher creates a fetcher. searchURL is used when a target has no
// usable website; it may be empty.
func NewHTMLFetcher(timeout time.Duration, searchURL, userAgent string) *HTMLFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if userAgent == "" {
		userAgent = "scorecard/1.0"
	}
	return &HTMLFetcher{
		client:    &http.Client{Timeout: timeout},
		searchURL: searchURL,
		userAgent: userAgent,
	}
}

func (f *HTMLFetcher) Fetch(ctx context.Context, t Target) (Record, error) {
	pageURL, err := f.resolve(t)
	if err != nil {
		return Record{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Record{}, fmt.Errorf("create request %s: %w", t.Name, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return Record{}, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Record{}, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Record{}, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	return Record{
		LanguageCount: languageCount(doc),
		Rating:        pageRating(doc),
	}, nil
}

func (f *HTMLFetcher) resolve(t Target) (string, error) {
	site := strings.TrimSpace(t.Website)
	switch {
	case strings.HasPrefix(site, "http://"), strings.HasPrefix(site, "https://"):
		return site, nil
	case strings.Contains(site, ".") && !strings.ContainsAny(site, " /"):
		return "https://" + site, nil
	}
	if f.searchURL != "" && strings.TrimSpace(t.Name) != "" {
		return fmt.Sprintf(f.searchURL, url.QueryEscape(t.Name)), nil
	}
	return "", fmt.Errorf("%w: %q", ErrNoURL, t.Name)
}

// languageCount counts distinct hreflang locales. A page with only a
// <html lang> attribute counts as one language.
func languageCount(doc *goquery.Document) int {
	seen := make(map[string]bool)
	doc.Find("link[hreflang], a[hreflang]").Each(func(_ int, s *goquery.Selection) {
		lang := strings.ToLower(strings.TrimSpace(s.AttrOr("hreflang", "")))
		if lang == "" || lang == "x-default" {
			return
		}
		seen[lang] = true
	})
	if len(seen) > 0 {
		return len(seen)
	}
	if lang, ok := doc.Find("html").Attr("lang"); ok && strings.TrimSpace(lang) != "" {
		return 1
	}
	return 0
}

func pageRating(doc *goquery.Document) Rating {
	rating := Unknown()

	doc.Find("[itemprop=ratingValue]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := s.AttrOr("content", s.Text())
		if r, err := ParseRating(raw); err == nil && r.IsKnown() {
			rating = r
			return false
		}
		return true
	})
	if rating.IsKnown() {
		return rating
	}

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		body := s.Text()
		if !gjson.Valid(body) {
			return true
		}
		for _, path := range ratingPaths {
			if r, ok := firstRating(gjson.Get(body, path)); ok {
				rating = r
				return false
			}
		}
		return true
	})
	return rating
}

func firstRating(v gjson.Result) (Rating, bool) {
	if !v.Exists() {
		return Rating{}, false
	}
	if v.IsArray() {
		for _, el := range v.Array() {
			if r, ok := firstRating(el); ok {
				return r, true
			}
		}
		return Rating{}, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
	if err != nil {
		return Rating{}, false
	}
	r := Known(f)
	return r, r.IsKnown()
}
