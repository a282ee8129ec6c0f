// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search finds musical artists in external catalogues and ranks
// the candidates by how well they match the query: exact, fuzzy, and
// partial tiers with a completeness-adjusted confidence.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/pdiddy/music-curator/internal/acquire"
	"github.com/pdiddy/music-curator/pkg/types"
)

// Version is reported by Info.
const Version = "1.0.0"

// Server is the entity search server: validation, caching, the candidate
// source, and the matcher.
type Server struct {
	cfg     types.SearchConfig
	base    *acquire.Server
	source  Source
	matcher *Matcher
	logger  *slog.Logger

	acquireOpts []acquire.Option
}

// Option configures a Server.
type Option func(*Server)

// WithSource replaces the Wikidata source.
func WithSource(src Source) Option {
	return func(s *Server) { s.source = src }
}

// WithAcquireOptions passes options to the underlying acquisition server
// (shared limiter, cache, HTTP client, observer).
func WithAcquireOptions(opts ...acquire.Option) Option {
	return func(s *Server) { s.acquireOpts = append(s.acquireOpts, opts...) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New validates cfg and opens the server.
func New(cfg types.SearchConfig, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Server{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	s.logger = s.logger.With(slog.String("component", "search"))

	base, err := acquire.Open("wikidata", cfg.SourceConfig,
		append([]acquire.Option{acquire.WithLogger(s.logger)}, s.acquireOpts...)...)
	if err != nil {
		return nil, err
	}
	s.base = base
	if s.source == nil {
		s.source = NewWikidataSource(base, cfg.Endpoint, cfg.Language)
	}
	s.matcher = NewMatcher(cfg.CompletenessBonus, cfg.CompletenessPenalty)
	return s, nil
}

// Close releases the HTTP session.
func (s *Server) Close() error { return s.base.Close() }

// Info describes the server.
func (s *Server) Info() acquire.Info {
	return acquire.Info{
		Name:        "artist-search",
		Version:     Version,
		Description: "Find musical artists by name with fuzzy matching and confidence scores",
		Capabilities: []string{
			"exact_match",
			"fuzzy_match",
			"partial_match",
			"filter_genre",
			"filter_era",
			"filter_country",
			"confidence_scoring",
			"search_suggestions",
		},
	}
}

// Search returns ranked candidates for q. It never fails outright: errors
// are reported in the response's Error field with no results.
func (s *Server) Search(ctx context.Context, q types.Query) types.SearchResponse {
	term := q.Term()
	log := s.logger.With(slog.String("request_id", uuid.NewString()), slog.String("term", term))

	if err := q.Validate(); err != nil {
		log.Info("search rejected", "error", err)
		return errorResponse(term, err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	key := acquire.CacheKey("search", term, q.Filters.Genre, q.Filters.Era, q.Filters.Country, limit)

	resp, hit, err := acquire.Cached(ctx, s.base, key, s.cfg.CacheTTL, func(ctx context.Context) (types.SearchResponse, error) {
		cands, err := s.source.Candidates(ctx, q, max(s.cfg.CandidatePool, limit))
		if err != nil {
			return types.SearchResponse{}, err
		}
		results, total := s.matcher.Match(term, cands, limit)
		return types.SearchResponse{
			Results:           results,
			TotalResults:      total,
			SearchSuggestions: Suggestions(term, total),
			SearchTerm:        term,
		}, nil
	})
	if err != nil {
		log.Warn("search failed", "error", err)
		return errorResponse(term, err)
	}

	log.Info("search completed", "results", len(resp.Results), "total", resp.TotalResults, "cache_hit", hit)
	return resp.Clone()
}

func errorResponse(term string, err error) types.SearchResponse {
	suggestions := []string{}
	msg := fmt.Sprintf("search failed: %v", err)
	switch {
	case errors.Is(err, types.ErrEmptyInput):
		suggestions = []string{"Please provide an artist name"}
		msg = "artist name is required"
	case errors.Is(err, types.ErrInvalidFilter):
		suggestions = []string{"Use an era such as 1970s, 1970, or 1965-1980"}
		msg = err.Error()
	}
	return types.SearchResponse{
		Results:           []types.MatchResult{},
		SearchSuggestions: suggestions,
		SearchTerm:        term,
		Error:             msg,
	}
}

// FormatTable writes the response as a human-readable table to w.
func FormatTable(resp types.SearchResponse, w io.Writer) {
	if resp.Error != "" {
		fmt.Fprintf(w, "%s %s\n", color.RedString("error:"), resp.Error)
	}
	if len(resp.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
	} else {
		fmt.Fprintf(w, "%-4s  %-10s  %-30s  %-30s  %-16s  %-9s  %-6s  %s\n",
			"Rank", "ID", "Name", "Description", "Country", "Years", "Score", "Match")
		fmt.Fprintln(w, strings.Repeat("-", 125))

		for i, r := range resp.Results {
			fmt.Fprintf(w, "%-4d  %-10s  %-30s  %-30s  %-16s  %-9s  %s  %s\n",
				i+1, r.ID, truncate(r.Name, 30), truncate(r.Description, 30),
				truncate(r.Country, 16), formatYears(r.BirthYear, r.DeathYear),
				confidenceColor(r.Confidence).Sprintf("%-6.2f", r.Confidence), r.MatchType)
		}
		fmt.Fprintf(w, "\n%d of %d results\n", len(resp.Results), resp.TotalResults)
	}
	for _, s := range resp.SearchSuggestions {
		fmt.Fprintf(w, "  hint: %s\n", s)
	}
}

// FormatJSON writes the response as indented JSON to w.
func FormatJSON(resp types.SearchResponse, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func confidenceColor(c float64) *color.Color {
	switch {
	case c >= 0.9:
		return color.New(color.FgGreen)
	case c >= 0.8:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func formatYears(born, died int) string {
	switch {
	case born == 0 && died == 0:
		return ""
	case died == 0:
		return fmt.Sprintf("%d-", born)
	case born == 0:
		return fmt.Sprintf("-%d", died)
	default:
		return fmt.Sprintf("%d-%d", born, died)
	}
}

func truncate(s string, max int) string {
	if len([]rune(s)) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}
