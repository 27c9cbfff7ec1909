package search

import (
	"context"

	"github.com/kailas-cloud/kfsearch/internal/domain/candidate"
)

// DenseSource retrieves frames by embedding similarity.
type DenseSource interface {
	Name() string
	Search(ctx context.Context, query string, k int, captions bool) ([]candidate.Candidate, error)
}

// KeywordSource retrieves frames by full-text match, in backend rank order.
type KeywordSource interface {
	Name() string
	DefaultFuzzy() bool
	Search(ctx context.Context, text string, topK int, fuzzy bool) ([]candidate.Candidate, error)
}

// FrameStore enumerates the keyframe images of a video directory.
type FrameStore interface {
	ListImages(ctx context.Context, dir string) ([]string, error)
}
