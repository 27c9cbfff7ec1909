package search

import (
	"fmt"
	"math"
	"sort"

	"github.com/kailas-cloud/kfsearch/internal/domain"
	"github.com/kailas-cloud/kfsearch/internal/domain/candidate"
)

// DefaultAlpha weights dense similarity against caption BM25.
const DefaultAlpha = 0.6

// fused is a ranked frame. rank is the candidate's position in the backend list.
type fused struct {
	path     string
	score    float64
	hasScore bool
	rank     int
}

// fuseKeyword keeps the backend order and leaves every score empty.
func fuseKeyword(cs []candidate.Candidate) []fused {
	out := make([]fused, len(cs))
	for i, c := range cs {
		out[i] = fused{path: c.Path(), rank: i}
	}
	return out
}

// fuseDense normalizes dense scores and, when lexical is non-nil, blends in the
// normalized lexical scores with weight 1-alpha. The result is sorted by score
// descending; equal scores keep backend order.
func fuseDense(cs []candidate.Candidate, lexical []float64, alpha float64) ([]fused, error) {
	raw := make([]float64, len(cs))
	for i, c := range cs {
		s, ok := c.Score()
		if !ok {
			return nil, fmt.Errorf("%w: candidate %q has no score", domain.ErrInvalidInput, c.Path())
		}
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("%w: candidate %q has non-finite score %v", domain.ErrBackendUnavailable, c.Path(), s)
		}
		raw[i] = s
	}

	dense, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	var lex []float64
	if lexical != nil {
		if len(lexical) != len(cs) {
			return nil, fmt.Errorf("%w: %d lexical scores for %d candidates", domain.ErrInvalidInput, len(lexical), len(cs))
		}
		if lex, err = Normalize(lexical); err != nil {
			return nil, err
		}
	}

	out := make([]fused, len(cs))
	for i, c := range cs {
		score := dense[i]
		if lex != nil {
			score = alpha*dense[i] + (1-alpha)*lex[i]
		}
		out[i] = fused{path: c.Path(), score: score, hasScore: true, rank: i}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].rank < out[j].rank
	})
	return out, nil
}

// lexicalScores runs BM25 over the candidates' texts. Candidates without text
// score as empty documents. Returns nil when every text is blank, so the
// ranking falls back to dense similarity alone.
func lexicalScores(cs []candidate.Candidate, query string, k1, b float64) []float64 {
	if !candidate.AnyText(cs) {
		return nil
	}
	texts := make([]string, len(cs))
	for i, c := range cs {
		texts[i], _ = c.Text()
	}
	return newBM25(texts, k1, b).Scores(query)
}
