// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/music-curator/internal/acquire"
	"github.com/pdiddy/music-curator/internal/cache"
	"github.com/pdiddy/music-curator/pkg/types"
)

// --- mock source ---

type mockSource struct {
	mu    sync.Mutex
	calls int
	cands []types.CandidateRecord
	err   error
}

func (m *mockSource) Name() string { return "mock" }

func (m *mockSource) Candidates(_ context.Context, _ types.Query, _ int) ([]types.CandidateRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.cands, m.err
}

func (m *mockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func testSearchConfig() types.SearchConfig {
	cfg := types.DefaultConfig().Search
	cfg.SourceConfig = testSourceConfig()
	cfg.CacheTTL = time.Hour
	return cfg
}

func newTestServer(t *testing.T, src Source, opts ...acquire.Option) *Server {
	t.Helper()
	s, err := New(testSearchConfig(), WithSource(src), WithAcquireOptions(opts...))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// --- Search ---

func TestSearch_DavidBowie(t *testing.T) {
	src := &mockSource{cands: []types.CandidateRecord{
		{ID: "Q100", Name: "David Bowie Tribute Band", Rank: 0},
		withRank(bowie(), 1),
	}}
	s := newTestServer(t, src)

	resp := s.Search(context.Background(), types.Query{Text: "David Bowie"})
	require.Empty(t, resp.Error)
	require.NotEmpty(t, resp.Results)

	assert.Equal(t, "Q5383", resp.Results[0].ID)
	assert.Equal(t, types.MatchExact, resp.Results[0].MatchType)
	assert.GreaterOrEqual(t, resp.Results[0].Confidence, 0.90)
	assert.Equal(t, "David Bowie", resp.SearchTerm)
	assert.Equal(t, 2, resp.TotalResults)
}

func TestSearch_DevidBowee(t *testing.T) {
	src := &mockSource{cands: []types.CandidateRecord{bowie()}}
	s := newTestServer(t, src)

	resp := s.Search(context.Background(), types.Query{Text: "Devid Bowee"})
	require.Empty(t, resp.Error)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, types.MatchFuzzy, resp.Results[0].MatchType)
	assert.GreaterOrEqual(t, resp.Results[0].Confidence, 0.80)
	assert.LessOrEqual(t, resp.Results[0].Confidence, 0.89)
}

func TestSearch_EmptyQuery(t *testing.T) {
	src := &mockSource{}
	s := newTestServer(t, src)

	for _, text := range []string{"", "   ", "\t\n"} {
		resp := s.Search(context.Background(), types.Query{Text: text})
		assert.NotEmpty(t, resp.Error)
		assert.Empty(t, resp.Results)
		assert.NotNil(t, resp.Results)
		assert.Zero(t, resp.TotalResults)
		assert.Contains(t, resp.SearchSuggestions, "Please provide an artist name")
	}
	assert.Zero(t, src.Calls(), "empty input never reaches the source")
}

func TestSearch_InvalidEra(t *testing.T) {
	src := &mockSource{}
	s := newTestServer(t, src)

	resp := s.Search(context.Background(), types.Query{Text: "Bowie", Filters: types.Filters{Era: "1970ish"}})
	assert.Contains(t, resp.Error, "invalid filter")
	assert.Zero(t, src.Calls())
}

func TestSearch_NoMatchesSuggestsAlternatives(t *testing.T) {
	src := &mockSource{cands: []types.CandidateRecord{{ID: "Q1", Name: "Kate Bush"}}}
	s := newTestServer(t, src)

	resp := s.Search(context.Background(), types.Query{Text: "zzzz qqqq"})
	assert.Empty(t, resp.Error)
	assert.Empty(t, resp.Results)
	assert.Contains(t, resp.SearchSuggestions, "Check if the artist name is correct")
}

func TestSearch_CacheIdempotent(t *testing.T) {
	src := &mockSource{cands: []types.CandidateRecord{bowie()}}
	s := newTestServer(t, src)
	q := types.Query{Text: "David Bowie", Filters: types.Filters{Genre: "rock"}}

	first := s.Search(context.Background(), q)
	second := s.Search(context.Background(), q)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, src.Calls())

	// A different limit is a different query.
	s.Search(context.Background(), types.Query{Text: "David Bowie", Filters: q.Filters, Limit: 3})
	assert.Equal(t, 2, src.Calls())
}

func TestSearch_CacheExpiryRefetchesOnce(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	src := &mockSource{cands: []types.CandidateRecord{bowie()}}
	s := newTestServer(t, src, acquire.WithCache(cache.New(cache.WithClock(clock))))
	q := types.Query{Text: "David Bowie"}

	s.Search(context.Background(), q)
	s.Search(context.Background(), q)
	require.Equal(t, 1, src.Calls())

	mu.Lock()
	now = now.Add(2 * time.Hour)
	mu.Unlock()

	s.Search(context.Background(), q)
	s.Search(context.Background(), q)
	assert.Equal(t, 2, src.Calls())
}

func TestSearch_FailuresNotCached(t *testing.T) {
	src := &mockSource{err: errors.New("wikidata entity search: HTTP 503")}
	s := newTestServer(t, src)
	q := types.Query{Text: "David Bowie"}

	resp := s.Search(context.Background(), q)
	assert.Contains(t, resp.Error, "search failed")
	assert.Empty(t, resp.Results)

	src.mu.Lock()
	src.err = nil
	src.cands = []types.CandidateRecord{bowie()}
	src.mu.Unlock()

	resp = s.Search(context.Background(), q)
	assert.Empty(t, resp.Error)
	assert.Len(t, resp.Results, 1)
	assert.Equal(t, 2, src.Calls())
}

func TestSearch_ResultsAreCopies(t *testing.T) {
	src := &mockSource{cands: []types.CandidateRecord{bowie()}}
	s := newTestServer(t, src)
	q := types.Query{Text: "David Bowie"}

	first := s.Search(context.Background(), q)
	first.Results[0].Name = "mutated"
	first.Results[0].Aliases[0] = "mutated"

	second := s.Search(context.Background(), q)
	assert.Equal(t, "David Bowie", second.Results[0].Name)
	assert.Equal(t, "David Robert Jones", second.Results[0].Aliases[0])
}

func TestSearch_LimitApplied(t *testing.T) {
	var cands []types.CandidateRecord
	for i, name := range []string{"John Lennon", "John Cale", "John Cage", "John Zorn", "John Prine", "John Martyn", "Elton John"} {
		cands = append(cands, types.CandidateRecord{ID: name, Name: name, Rank: i})
	}
	src := &mockSource{cands: cands}
	s := newTestServer(t, src)

	resp := s.Search(context.Background(), types.Query{Text: "John", Limit: 3})
	assert.Len(t, resp.Results, 3)
	assert.Equal(t, 7, resp.TotalResults)
	assert.Contains(t, resp.SearchSuggestions, "Try adding more specific terms")
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testSearchConfig()
	cfg.DefaultLimit = 0
	_, err := New(cfg)
	assert.ErrorIs(t, err, types.ErrInvalidConfig)
}

func TestInfo(t *testing.T) {
	s := newTestServer(t, &mockSource{})
	info := s.Info()
	assert.Equal(t, "artist-search", info.Name)
	assert.Contains(t, info.Capabilities, "fuzzy_match")
}

// --- output ---

func TestFormatJSON(t *testing.T) {
	resp := types.SearchResponse{
		Results: []types.MatchResult{{
			CandidateRecord: bowie(),
			Confidence:      1,
			MatchType:       types.MatchExact,
		}},
		TotalResults:      1,
		SearchSuggestions: []string{},
		SearchTerm:        "David Bowie",
	}
	var buf bytes.Buffer
	require.NoError(t, FormatJSON(resp, &buf))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	for _, k := range []string{"results", "total_results", "search_suggestions", "search_term"} {
		assert.Contains(t, decoded, k)
	}
	first := decoded["results"].([]any)[0].(map[string]any)
	assert.Equal(t, "Q5383", first["id"])
	assert.Equal(t, "exact", first["match_type"])
}

func TestFormatTable(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(types.SearchResponse{
		Results:    []types.MatchResult{{CandidateRecord: bowie(), Confidence: 1, MatchType: types.MatchExact}},
		SearchTerm: "David Bowie", TotalResults: 1,
	}, &buf)
	out := buf.String()
	assert.Contains(t, out, "David Bowie")
	assert.Contains(t, out, "1947-2016")
	assert.Contains(t, out, "1 of 1 results")

	buf.Reset()
	FormatTable(types.SearchResponse{Results: []types.MatchResult{}}, &buf)
	assert.Contains(t, buf.String(), "No results found.")
}
