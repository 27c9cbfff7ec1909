package search

import (
	"fmt"
	"slices"

	"github.com/kailas-cloud/kfsearch/internal/domain"
)

// Normalize rescales scores to [0,1] by min-max. When all scores are equal,
// including a single score, every output is 1.0.
func Normalize(scores []float64) ([]float64, error) {
	if len(scores) == 0 {
		return nil, fmt.Errorf("%w: normalize empty score list", domain.ErrInvalidInput)
	}

	lo, hi := slices.Min(scores), slices.Max(scores)
	out := make([]float64, len(scores))
	if hi == lo {
		for i := range out {
			out[i] = 1.0
		}
		return out, nil
	}

	span := hi - lo
	for i, s := range scores {
		out[i] = (s - lo) / span
	}
	return out, nil
}
