package kfsearch

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/kfsearch/internal/domain"
	"github.com/kailas-cloud/kfsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/kfsearch/internal/domain/search/request"
	"github.com/kailas-cloud/kfsearch/internal/domain/search/result"
)

// SearchOption configures a single query.
type SearchOption func(*searchParams)

type searchParams struct {
	mode  Mode
	k     int
	model string
	fuzzy *bool
}

// WithMode selects the retrieval path. Default: ModeDenseCaption.
func WithMode(m Mode) SearchOption {
	return func(p *searchParams) { p.mode = m }
}

// WithK sets the number of candidates requested from the backend.
// Default: search.default_k from the configuration.
func WithK(k int) SearchOption {
	return func(p *searchParams) { p.k = k }
}

// WithModel selects a dense model other than the mode's default.
func WithModel(model string) SearchOption {
	return func(p *searchParams) { p.model = model }
}

// WithFuzzy overrides fuzzy term matching for keyword modes.
func WithFuzzy(fuzzy bool) SearchOption {
	return func(p *searchParams) { p.fuzzy = &fuzzy }
}

// Search runs one query. An empty candidate set yields a Response with empty,
// non-nil slices and no error.
func (c *Client) Search(ctx context.Context, query string, opts ...SearchOption) (resp *Response, err error) {
	var p searchParams
	for _, o := range opts {
		o(&p)
	}

	start := time.Now()
	defer func() { c.obs.observe("search", start, err, "mode", string(p.mode)) }()

	if p.k < 0 {
		return nil, fmt.Errorf("%w: k must be positive", domain.ErrInvalidRequest)
	}

	req, err := request.New(query, mode.Mode(p.mode), p.k, p.model, p.fuzzy, c.limits)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	res, err := c.searchSvc.Search(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return responseFromResult(&res), nil
}

func responseFromResult(res *result.Response) *Response {
	out := &Response{
		Frames: framesFromResult(res.Frames),
		Videos: make([]Video, len(res.Videos)),
	}
	for i, v := range res.Videos {
		all := make([]string, len(v.AllFrames))
		copy(all, v.AllFrames)
		out.Videos[i] = Video{
			ID:        v.VideoID,
			Score:     v.VideoScore,
			BestRank:  v.BestRank,
			Frames:    framesFromResult(v.Frames),
			AllFrames: all,
		}
	}
	return out
}

func framesFromResult(frames []result.Frame) []Frame {
	out := make([]Frame, len(frames))
	for i, f := range frames {
		out[i] = Frame{Path: f.Path, Score: f.Score}
	}
	return out
}
