// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"math"
	"slices"
	"strings"

	"github.com/pdiddy/music-curator/internal/textutil"
	"github.com/pdiddy/music-curator/pkg/types"
)

// Tier base confidences and the band each tier's adjusted score is held to.
const (
	exactBase   = 0.95
	fuzzyBase   = 0.85
	partialBase = 0.70
)

type band struct{ lo, hi float64 }

var bands = map[types.MatchType]band{
	types.MatchExact:   {0.90, 1.00},
	types.MatchFuzzy:   {0.80, 0.89},
	types.MatchPartial: {0.65, 0.79},
}

var tierOrder = []types.MatchType{types.MatchExact, types.MatchFuzzy, types.MatchPartial}

// minReverseContain is the shortest candidate name that may match by being
// contained in the query.
const minReverseContain = 3

// Matcher assigns candidates to the exact, fuzzy, or partial tier and
// scores them.
type Matcher struct {
	bonus   float64
	penalty float64
}

// NewMatcher creates a Matcher. bonus and penalty bound the completeness
// adjustment applied within a tier.
func NewMatcher(bonus, penalty float64) *Matcher {
	return &Matcher{bonus: bonus, penalty: penalty}
}

// fuzzyThreshold is the largest edit distance still counted as a fuzzy
// match for a normalized query of n runes.
func fuzzyThreshold(n int) int {
	return max(1, min(3, n/5))
}

// Classify returns the best tier at which any of the candidate's names
// matches the query. ok is false when no tier matches.
func (m *Matcher) Classify(query string, c types.CandidateRecord) (types.MatchType, bool) {
	nq := textutil.Normalize(query)
	if nq == "" {
		return "", false
	}
	return classify(nq, textutil.Skeleton(nq), c)
}

func classify(nq, skq string, c types.CandidateRecord) (types.MatchType, bool) {
	names := make([]string, 0, 1+len(c.Aliases))
	names = append(names, c.Name)
	names = append(names, c.Aliases...)

	best, found := types.MatchType(""), false
	for _, name := range names {
		nn := textutil.Normalize(name)
		if nn == "" {
			continue
		}
		switch {
		case nn == nq:
			return types.MatchExact, true
		case textutil.Levenshtein(nn, nq) <= fuzzyThreshold(len([]rune(nq))) ||
			(skq != "" && textutil.Skeleton(nn) == skq):
			best, found = types.MatchFuzzy, true
		case !found && partial(nn, nq):
			best, found = types.MatchPartial, true
		}
	}
	return best, found
}

func partial(name, query string) bool {
	if strings.Contains(name, query) {
		return true
	}
	return len([]rune(name)) >= minReverseContain && strings.Contains(query, name)
}

// Match classifies, deduplicates, scores, and orders candidates. Exact
// matches fill the limit first, then fuzzy, then partial. total counts
// every matched candidate before the limit is applied.
func (m *Matcher) Match(query string, candidates []types.CandidateRecord, limit int) (results []types.MatchResult, total int) {
	results = []types.MatchResult{}
	nq := textutil.Normalize(query)
	if nq == "" {
		return results, 0
	}
	skq := textutil.Skeleton(nq)

	type hit struct {
		c    types.CandidateRecord
		tier types.MatchType
	}
	byID := make(map[string]int)
	var hits []hit
	for _, c := range candidates {
		tier, ok := classify(nq, skq, c)
		if !ok {
			continue
		}
		if idx, seen := byID[c.ID]; seen && c.ID != "" {
			if tierRank(tier) < tierRank(hits[idx].tier) {
				hits[idx] = hit{c: c, tier: tier}
			}
			continue
		}
		byID[c.ID] = len(hits)
		hits = append(hits, hit{c: c, tier: tier})
	}
	total = len(hits)

	for _, tier := range tierOrder {
		var inTier []types.CandidateRecord
		for _, h := range hits {
			if h.tier == tier {
				inTier = append(inTier, h.c)
			}
		}
		slices.SortStableFunc(inTier, func(a, b types.CandidateRecord) int { return a.Rank - b.Rank })
		for _, c := range inTier {
			if limit > 0 && len(results) >= limit {
				break
			}
			results = append(results, types.MatchResult{
				CandidateRecord: c,
				Confidence:      m.score(tier, c),
				MatchType:       tier,
			})
		}
	}

	SortResults(results)
	return results, total
}

func tierRank(t types.MatchType) int {
	return slices.Index(tierOrder, t)
}

// score applies the completeness adjustment to the tier base and clamps
// the result to the tier band.
func (m *Matcher) score(tier types.MatchType, c types.CandidateRecord) float64 {
	var base float64
	switch tier {
	case types.MatchExact:
		base = exactBase
	case types.MatchFuzzy:
		base = fuzzyBase
	default:
		base = partialBase
	}

	// Linear from -penalty (nothing present) to +bonus (all three present).
	adj := -m.penalty + (m.bonus+m.penalty)*float64(c.Completeness())/3.0

	b := bands[tier]
	return round4(math.Min(b.hi, math.Max(b.lo, base+adj)))
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}

// SortResults orders results by confidence descending, ties by source rank.
func SortResults(results []types.MatchResult) {
	slices.SortStableFunc(results, func(a, b types.MatchResult) int {
		switch {
		case a.Confidence > b.Confidence:
			return -1
		case a.Confidence < b.Confidence:
			return 1
		default:
			return a.Rank - b.Rank
		}
	})
}

// Suggestions returns query refinement hints: spelling and name-part
// advice with concrete variants when nothing matched, narrowing advice
// when many did.
func Suggestions(term string, total int) []string {
	term = textutil.CollapseSpace(term)
	switch {
	case total == 0:
		out := []string{
			"Try searching for '" + term + "' with different spelling",
			"Check if the artist name is correct",
			"Try searching for just the first or last name",
		}
		words := strings.Fields(term)
		if len(words) >= 2 {
			out = append(out,
				"Try '"+words[0]+"'",
				"Try '"+words[len(words)-1]+"'")
		}
		if tc := textutil.TitleCase(term); tc != term {
			out = append(out, "Try '"+tc+"'")
		}
		return out
	case total > 5:
		return []string{
			"Try adding more specific terms",
			"Consider adding the artist's country or genre",
		}
	default:
		return []string{}
	}
}
