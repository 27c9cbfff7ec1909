package search

import (
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// BM25 defaults.
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// bm25 scores a query against an ad hoc corpus made of the candidates' texts.
// The index lives only for one request.
type bm25 struct {
	k1, b  float64
	docs   [][]string
	tf     []map[string]int
	df     map[string]int
	avgLen float64
}

func tokenize(s string) []string {
	return strings.Fields(norm.NFC.String(s))
}

func newBM25(texts []string, k1, b float64) *bm25 {
	idx := &bm25{
		k1:   k1,
		b:    b,
		docs: make([][]string, len(texts)),
		tf:   make([]map[string]int, len(texts)),
		df:   make(map[string]int),
	}

	total := 0
	for i, t := range texts {
		toks := tokenize(t)
		idx.docs[i] = toks
		total += len(toks)

		freq := make(map[string]int, len(toks))
		for _, tok := range toks {
			freq[tok]++
		}
		idx.tf[i] = freq
		for tok := range freq {
			idx.df[tok]++
		}
	}
	if len(texts) > 0 {
		idx.avgLen = float64(total) / float64(len(texts))
	}
	return idx
}

// idf never goes negative, so a term present in every document adds a small
// positive weight instead of penalizing matches.
func (idx *bm25) idf(term string) float64 {
	n := float64(idx.df[term])
	if n == 0 {
		return 0
	}
	docs := float64(len(idx.docs))
	return math.Log(1 + (docs-n+0.5)/(n+0.5))
}

// Scores returns one score per document, in document order.
// Repeated query terms count once per occurrence.
func (idx *bm25) Scores(query string) []float64 {
	terms := tokenize(query)
	out := make([]float64, len(idx.docs))
	if idx.avgLen == 0 {
		return out
	}

	idfs := make(map[string]float64, len(terms))
	for _, t := range terms {
		if _, ok := idfs[t]; !ok {
			idfs[t] = idx.idf(t)
		}
	}

	for i, doc := range idx.docs {
		lenNorm := idx.k1 * (1 - idx.b + idx.b*float64(len(doc))/idx.avgLen)
		var score float64
		for _, t := range terms {
			f := float64(idx.tf[i][t])
			if f == 0 {
				continue
			}
			score += idfs[t] * f * (idx.k1 + 1) / (f + lenNorm)
		}
		out[i] = score
	}
	return out
}
