// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"math"

	"github.com/pdiddy/music-curator/pkg/types"
)

// yieldSaturation is the entity count at which yield reaches 1.
const yieldSaturation = 10

// Yield scores how many entities were found: 0 for none, 0.5 for the
// first, rising linearly to 1 at ten.
func Yield(n int) float64 {
	if n <= 0 {
		return 0
	}
	return min(1.0, 0.5+0.5*float64(n)/yieldSaturation)
}

// Aggregate computes the overall confidence of an indexing run from
// profile coverage, entity yield, and mean entity confidence. Weights are
// normalized so they need not sum to 1.
func Aggregate(w types.ConfidenceWeights, profileFound bool, entities []types.ExtractedEntity) float64 {
	total := w.Profile + w.Yield + w.Quality
	if total <= 0 {
		return 0
	}

	coverage := 0.0
	if profileFound {
		coverage = 1
	}
	quality := 0.0
	if len(entities) > 0 {
		sum := 0.0
		for _, e := range entities {
			sum += e.Confidence
		}
		quality = sum / float64(len(entities))
	}

	score := (w.Profile*coverage + w.Yield*Yield(len(entities)) + w.Quality*quality) / total
	return round4(min(1.0, max(0.0, score)))
}

// Status classifies an indexing run.
func Status(profileFound bool, entities int) types.IndexStatus {
	switch {
	case profileFound && entities > 0:
		return types.StatusCompleted
	case profileFound || entities > 0:
		return types.StatusPartial
	default:
		return types.StatusFailed
	}
}

func round4(f float64) float64 {
	return math.Round(f*1e4) / 1e4
}
