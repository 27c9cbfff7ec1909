// Package candidate holds the raw per-query hits returned by retrieval backends.
package candidate

import "strings"

// Candidate is one hit from a retrieval backend. Score is absent for
// keyword-only sources; Text is present only when the backend returns captions.
type Candidate struct {
	path     string
	score    float64
	hasScore bool
	text     string
	hasText  bool
}

// NewCaptioned creates a dense hit that carries its caption.
func NewCaptioned(path string, score float64, caption string) Candidate {
	return Candidate{path: path, score: score, hasScore: true, text: caption, hasText: true}
}

// NewScored creates a dense hit without text.
func NewScored(path string, score float64) Candidate {
	return Candidate{path: path, score: score, hasScore: true}
}

// NewRanked creates a keyword hit; its only signal is its position in the list.
func NewRanked(path string) Candidate {
	return Candidate{path: path}
}

// Path returns the frame path relative to the keyframe root.
func (c Candidate) Path() string { return c.path }

// Score returns the raw backend score and whether one exists.
func (c Candidate) Score() (float64, bool) { return c.score, c.hasScore }

// Text returns the caption and whether one exists.
func (c Candidate) Text() (string, bool) { return c.text, c.hasText }

// Dedup drops repeated paths, keeping the first occurrence and the original order.
func Dedup(cs []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(cs))
	out := make([]Candidate, 0, len(cs))
	for _, c := range cs {
		if _, dup := seen[c.path]; dup {
			continue
		}
		seen[c.path] = struct{}{}
		out = append(out, c)
	}
	return out
}

// AnyText reports whether at least one candidate carries non-blank text.
// Backends return "" for an unset caption field.
func AnyText(cs []Candidate) bool {
	for _, c := range cs {
		if c.hasText && strings.TrimSpace(c.text) != "" {
			return true
		}
	}
	return false
}

// AllScored reports whether every candidate carries a raw score.
func AllScored(cs []Candidate) bool {
	for _, c := range cs {
		if !c.hasScore {
			return false
		}
	}
	return len(cs) > 0
}
