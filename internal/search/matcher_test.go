// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/music-curator/pkg/types"
)

func bowie() types.CandidateRecord {
	return types.CandidateRecord{
		ID:          "Q5383",
		Name:        "David Bowie",
		Aliases:     []string{"David Robert Jones", "Ziggy Stardust"},
		Description: "English singer-songwriter and actor (1947-2016)",
		Country:     "United Kingdom",
		ImageURL:    "http://commons.wikimedia.org/wiki/Special:FilePath/David-Bowie.jpg",
		BirthYear:   1947,
		DeathYear:   2016,
	}
}

func newTestMatcher() *Matcher { return NewMatcher(0.05, 0.05) }

// --- Classify ---

func TestClassify(t *testing.T) {
	m := newTestMatcher()
	tests := []struct {
		name   string
		query  string
		cand   types.CandidateRecord
		want   types.MatchType
		wantOK bool
	}{
		{"exact", "David Bowie", bowie(), types.MatchExact, true},
		{"exact case and spacing", "  david   BOWIE ", bowie(), types.MatchExact, true},
		{"exact via alias", "Ziggy Stardust", bowie(), types.MatchExact, true},
		{"fuzzy misspelling", "Devid Bowee", bowie(), types.MatchFuzzy, true},
		{"fuzzy transliteration", "Mikhail Glinka", types.CandidateRecord{ID: "Q1", Name: "Michail Glinka"}, types.MatchFuzzy, true},
		{"partial last name", "Bowie", bowie(), types.MatchPartial, true},
		{"partial reverse", "David Bowie band", bowie(), types.MatchPartial, true},
		{"accent-insensitive exact", "Bjork", types.CandidateRecord{ID: "Q2", Name: "Björk"}, types.MatchExact, true},
		{"no match", "Kate Bush", bowie(), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Classify(tt.query, tt.cand)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFuzzyThreshold(t *testing.T) {
	tests := []struct{ n, want int }{
		{1, 1}, {4, 1}, {5, 1}, {10, 2}, {11, 2}, {15, 3}, {40, 3},
	}
	for _, tt := range tests {
		if got := fuzzyThreshold(tt.n); got != tt.want {
			t.Errorf("fuzzyThreshold(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

// --- Match ---

func TestMatch_DavidBowieExactFirst(t *testing.T) {
	cands := []types.CandidateRecord{
		{ID: "Q100", Name: "David Bowie Tribute Band", Rank: 0},
		withRank(bowie(), 1),
		{ID: "Q101", Name: "Bowie", Description: "town in Maryland", Rank: 2},
	}

	results, total := newTestMatcher().Match("David Bowie", cands, 10)
	require.Len(t, results, 3)
	assert.Equal(t, 3, total)

	top := results[0]
	assert.Equal(t, "Q5383", top.ID)
	assert.Equal(t, types.MatchExact, top.MatchType)
	assert.GreaterOrEqual(t, top.Confidence, 0.90)
	assert.InDelta(t, 1.0, top.Confidence, 1e-9, "fully described exact match gets the whole bonus")
}

func TestMatch_DevidBoweeFuzzy(t *testing.T) {
	results, _ := newTestMatcher().Match("Devid Bowee", []types.CandidateRecord{bowie()}, 10)
	require.Len(t, results, 1)
	assert.Equal(t, "Q5383", results[0].ID)
	assert.Equal(t, types.MatchFuzzy, results[0].MatchType)
	assert.GreaterOrEqual(t, results[0].Confidence, 0.80)
	assert.LessOrEqual(t, results[0].Confidence, 0.89)
}

func TestMatch_SortedAndWithinBands(t *testing.T) {
	cands := []types.CandidateRecord{
		{ID: "Q1", Name: "Prince Buster", Rank: 0},
		{ID: "Q2", Name: "Prince", Description: "American musician", Country: "United States", ImageURL: "x", Rank: 1},
		{ID: "Q3", Name: "Prinse", Rank: 2},
		{ID: "Q4", Name: "Prince", Rank: 3},
		{ID: "Q5", Name: "The Artist Formerly Known as Prince", Description: "d", Rank: 4},
	}
	results, total := newTestMatcher().Match("Prince", cands, 10)
	assert.Equal(t, 5, total)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Confidence, results[i].Confidence, "results must be sorted by confidence")
	}
	for _, r := range results {
		b := bands[r.MatchType]
		assert.GreaterOrEqual(t, r.Confidence, b.lo, r.ID)
		assert.LessOrEqual(t, r.Confidence, b.hi, r.ID)
	}
	assert.Equal(t, "Q2", results[0].ID)
	assert.Equal(t, "Q4", results[1].ID)
}

func TestMatch_TiesBrokenByRank(t *testing.T) {
	cands := []types.CandidateRecord{
		{ID: "Q9", Name: "Low", Rank: 1},
		{ID: "Q8", Name: "Low", Rank: 0},
	}
	results, _ := newTestMatcher().Match("Low", cands, 10)
	require.Len(t, results, 2)
	assert.Equal(t, results[0].Confidence, results[1].Confidence)
	assert.Equal(t, "Q8", results[0].ID)
}

func TestMatch_NoDuplicateAcrossTiers(t *testing.T) {
	// The same entity arrives twice: once matching only partially, once exactly.
	first := types.CandidateRecord{ID: "Q5383", Name: "David Bowie (musician)", Rank: 0}
	second := withRank(bowie(), 1)

	results, total := newTestMatcher().Match("David Bowie", []types.CandidateRecord{first, second}, 10)
	require.Len(t, results, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, types.MatchExact, results[0].MatchType)

	seen := map[string]bool{}
	for _, r := range results {
		assert.False(t, seen[r.ID], "duplicate %s", r.ID)
		seen[r.ID] = true
	}
}

func TestMatch_EarlierTiersFillLimitFirst(t *testing.T) {
	cands := []types.CandidateRecord{
		{ID: "P1", Name: "Queen Latifah", Rank: 0},
		{ID: "P2", Name: "Queen Adreena", Rank: 1},
		{ID: "E1", Name: "Queen", Rank: 2},
		{ID: "F1", Name: "Quean", Rank: 3},
	}
	results, total := newTestMatcher().Match("Queen", cands, 2)
	assert.Equal(t, 4, total)
	require.Len(t, results, 2)
	assert.Equal(t, "E1", results[0].ID)
	assert.Equal(t, "F1", results[1].ID)
}

func TestMatch_EmptyQuery(t *testing.T) {
	results, total := newTestMatcher().Match("   ", []types.CandidateRecord{bowie()}, 10)
	assert.Empty(t, results)
	assert.NotNil(t, results)
	assert.Zero(t, total)
}

func TestScore_CompletenessLinear(t *testing.T) {
	m := newTestMatcher()
	bare := types.CandidateRecord{}
	one := types.CandidateRecord{Description: "d"}
	two := types.CandidateRecord{Description: "d", Country: "c"}
	full := types.CandidateRecord{Description: "d", Country: "c", ImageURL: "i"}

	assert.InDelta(t, 0.90, m.score(types.MatchExact, bare), 1e-9)
	assert.InDelta(t, 0.9333, m.score(types.MatchExact, one), 1e-9)
	assert.InDelta(t, 0.9667, m.score(types.MatchExact, two), 1e-9)
	assert.InDelta(t, 1.00, m.score(types.MatchExact, full), 1e-9)

	assert.InDelta(t, 0.80, m.score(types.MatchFuzzy, bare), 1e-9)
	assert.InDelta(t, 0.89, m.score(types.MatchFuzzy, full), 1e-9, "clamped to the fuzzy band")
	assert.InDelta(t, 0.65, m.score(types.MatchPartial, bare), 1e-9)
	assert.InDelta(t, 0.75, m.score(types.MatchPartial, full), 1e-9)
}

// --- Suggestions ---

func TestSuggestions(t *testing.T) {
	none := Suggestions("devid bowee", 0)
	assert.Contains(t, none, "Try searching for 'devid bowee' with different spelling")
	assert.Contains(t, none, "Try 'devid'")
	assert.Contains(t, none, "Try 'bowee'")
	assert.Contains(t, none, "Try 'Devid Bowee'")

	many := Suggestions("john", 12)
	assert.Contains(t, many, "Consider adding the artist's country or genre")

	assert.Empty(t, Suggestions("David Bowie", 1))
}

func withRank(c types.CandidateRecord, rank int) types.CandidateRecord {
	c.Rank = rank
	return c
}
