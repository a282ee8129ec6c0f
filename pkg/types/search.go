// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the curator engine:
// entity search queries and results, retrieved documents, extracted
// album/song entities, indexing results, and configuration.
package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrEmptyInput is returned when a query or artist name is blank after
// trimming. It is detected before any network activity.
var ErrEmptyInput = errors.New("empty input")

// ErrInvalidFilter is returned for filter values that cannot be turned into
// a well-formed source query (for example an unparseable era).
var ErrInvalidFilter = errors.New("invalid filter")

// Filters narrows an entity search. Every field is optional and filters
// combine independently.
type Filters struct {
	// Genre matches against genre labels (e.g. "glam rock").
	Genre string `json:"genre,omitempty" yaml:"genre,omitempty"`

	// Era restricts the active period: "1970s", "1970", or "1965-1980".
	Era string `json:"era,omitempty" yaml:"era,omitempty"`

	// Country matches against the country of citizenship or origin label.
	Country string `json:"country,omitempty" yaml:"country,omitempty"`
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return f.Genre == "" && f.Era == "" && f.Country == ""
}

// EraRange parses Era into an inclusive year range. ok is false when Era is
// empty.
func (f Filters) EraRange() (from, to int, ok bool, err error) {
	era := strings.TrimSpace(f.Era)
	if era == "" {
		return 0, 0, false, nil
	}

	if decade, found := strings.CutSuffix(era, "s"); found {
		y, convErr := strconv.Atoi(decade)
		if convErr != nil || y < 1000 || y > 2999 || y%10 != 0 {
			return 0, 0, false, fmt.Errorf("%w: era %q", ErrInvalidFilter, f.Era)
		}
		return y, y + 9, true, nil
	}

	if start, end, found := strings.Cut(era, "-"); found {
		a, errA := strconv.Atoi(strings.TrimSpace(start))
		b, errB := strconv.Atoi(strings.TrimSpace(end))
		if errA != nil || errB != nil || a > b || a < 1000 || b > 2999 {
			return 0, 0, false, fmt.Errorf("%w: era %q", ErrInvalidFilter, f.Era)
		}
		return a, b, true, nil
	}

	y, convErr := strconv.Atoi(era)
	if convErr != nil || y < 1000 || y > 2999 {
		return 0, 0, false, fmt.Errorf("%w: era %q", ErrInvalidFilter, f.Era)
	}
	return y, y, true, nil
}

// Query is a free-text entity search with optional filters and a result
// count limit. A Limit of zero or less selects the configured default.
type Query struct {
	Text    string  `json:"text" yaml:"text"`
	Filters Filters `json:"filters,omitempty" yaml:"filters,omitempty"`
	Limit   int     `json:"limit,omitempty" yaml:"limit,omitempty"`
}

// Term returns the trimmed query text.
func (q Query) Term() string {
	return strings.TrimSpace(q.Text)
}

// IsEmpty reports whether the query contains no searchable text.
func (q Query) IsEmpty() bool {
	return q.Term() == ""
}

// Validate rejects blank queries and malformed filters.
func (q Query) Validate() error {
	if q.IsEmpty() {
		return fmt.Errorf("%w: provide an artist name to search for", ErrEmptyInput)
	}
	if _, _, _, err := q.Filters.EraRange(); err != nil {
		return err
	}
	return nil
}

// CandidateRecord is a raw entity returned by an external source. Two
// records with the same ID are the same entity.
type CandidateRecord struct {
	// ID is the stable external identifier (a Wikidata Q-id).
	ID string `json:"id" yaml:"id"`

	// Name is the display label.
	Name string `json:"name" yaml:"name"`

	// Aliases lists alternative labels known to the source.
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`

	// Description is the short source description (e.g. "English musician").
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Country is the country label.
	Country string `json:"country,omitempty" yaml:"country,omitempty"`

	// BirthYear is the birth or formation year, 0 when unknown.
	BirthYear int `json:"birth_year,omitempty" yaml:"birth_year,omitempty"`

	// DeathYear is the death or dissolution year, 0 when unknown.
	DeathYear int `json:"death_year,omitempty" yaml:"death_year,omitempty"`

	// ImageURL references a representative image.
	ImageURL string `json:"image_url,omitempty" yaml:"image_url,omitempty"`

	// CrossRefs maps other catalogues to their identifiers
	// (e.g. "musicbrainz" -> MBID).
	CrossRefs map[string]string `json:"cross_refs,omitempty" yaml:"cross_refs,omitempty"`

	// Rank is the zero-based position in the source's own ordering.
	Rank int `json:"rank" yaml:"rank"`
}

// Completeness returns how many of the key descriptive fields
// (description, country, image) are populated.
func (c CandidateRecord) Completeness() int {
	n := 0
	if c.Description != "" {
		n++
	}
	if c.Country != "" {
		n++
	}
	if c.ImageURL != "" {
		n++
	}
	return n
}

// MatchType names the matching tier that produced a result.
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchFuzzy   MatchType = "fuzzy"
	MatchPartial MatchType = "partial"
)

// MatchResult is a candidate annotated with a confidence in [0,1] and the
// tier that matched it.
type MatchResult struct {
	CandidateRecord `yaml:",inline"`

	Confidence float64   `json:"confidence" yaml:"confidence"`
	MatchType  MatchType `json:"match_type" yaml:"match_type"`
}

// SearchResponse is the caller-facing result of an entity search. It is
// always returned, even on failure; Error carries the explanation and
// Results is empty.
type SearchResponse struct {
	// Results are sorted by confidence descending, ties by source rank.
	Results []MatchResult `json:"results" yaml:"results"`

	// TotalResults counts every matched candidate before the limit was applied.
	TotalResults int `json:"total_results" yaml:"total_results"`

	// SearchSuggestions guides query refinement; populated on zero or many matches.
	SearchSuggestions []string `json:"search_suggestions" yaml:"search_suggestions"`

	// SearchTerm echoes the trimmed query text.
	SearchTerm string `json:"search_term" yaml:"search_term"`

	// Error is empty on success.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Clone returns a copy that shares no slices with r.
func (r SearchResponse) Clone() SearchResponse {
	out := r
	if r.Results != nil {
		out.Results = make([]MatchResult, len(r.Results))
		for i, m := range r.Results {
			m.Aliases = cloneStrings(m.Aliases)
			if m.CrossRefs != nil {
				refs := make(map[string]string, len(m.CrossRefs))
				for k, v := range m.CrossRefs {
					refs[k] = v
				}
				m.CrossRefs = refs
			}
			out.Results[i] = m
		}
	}
	out.SearchSuggestions = cloneStrings(r.SearchSuggestions)
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
