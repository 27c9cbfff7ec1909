package chi

import (
	"fmt"
	"net/http"

	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/kailas-cloud/kfsearch/internal/domain"
	"github.com/kailas-cloud/kfsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/kfsearch/internal/domain/search/request"
	"github.com/kailas-cloud/kfsearch/internal/domain/search/result"
	"github.com/kailas-cloud/kfsearch/internal/logger"
)

// SearchParams are the query parameters of GET /search.
type SearchParams struct {
	Query string
	Mode  *string
	K     *int
	Model *string
	Fuzzy *bool
}

// FrameResult is one ranked keyframe. Score is null in keyword modes.
type FrameResult struct {
	Path  string   `json:"path"`
	Score *float64 `json:"score"`
}

// VideoResult groups the ranked keyframes of one video.
type VideoResult struct {
	VideoID    string        `json:"video_id"`
	VideoScore *float64      `json:"video_score"`
	BestRank   int           `json:"best_rank"`
	Frames     []FrameResult `json:"frames"`
	AllFrames  []string      `json:"all_frames"`
}

// SearchResponse is the body of a successful GET /search.
type SearchResponse struct {
	FrameResults []FrameResult `json:"frame_results"`
	VideoResults []VideoResult `json:"video_results"`
}

// Search handles GET /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	ctx := logger.With(r.Context(), s.logger)
	log := logger.FromContext(ctx)

	params, err := bindSearchParams(r)
	if err != nil {
		s.handleDomainError(w, log, err)
		return
	}

	req, err := searchRequestFromParams(params, s.limits)
	if err != nil {
		s.handleDomainError(w, log, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(ctx)
	resp, err := s.search.Search(ctx, &req)
	if err != nil {
		s.handleDomainError(w, log.With(requestFields(&req)...), err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, searchResponseFromResult(&resp))
}

func bindSearchParams(r *http.Request) (SearchParams, error) {
	var p SearchParams
	q := r.URL.Query()

	if err := runtime.BindQueryParameter("form", true, true, "query", q, &p.Query); err != nil {
		return p, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "mode", q, &p.Mode); err != nil {
		return p, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "k", q, &p.K); err != nil {
		return p, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "model", q, &p.Model); err != nil {
		return p, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "fuzzy", q, &p.Fuzzy); err != nil {
		return p, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	return p, nil
}

func searchRequestFromParams(p SearchParams, limits request.Limits) (request.Request, error) {
	var m mode.Mode
	if p.Mode != nil {
		parsed, err := mode.Parse(*p.Mode)
		if err != nil {
			return request.Request{}, err
		}
		m = parsed
	}

	k := 0
	if p.K != nil {
		if *p.K <= 0 {
			return request.Request{}, fmt.Errorf("%w: k must be positive", domain.ErrInvalidRequest)
		}
		k = *p.K
	}

	var model string
	if p.Model != nil {
		model = *p.Model
	}

	return request.New(p.Query, m, k, model, p.Fuzzy, limits)
}

func searchResponseFromResult(resp *result.Response) SearchResponse {
	out := SearchResponse{
		FrameResults: framesFromResult(resp.Frames),
		VideoResults: make([]VideoResult, len(resp.Videos)),
	}
	for i, v := range resp.Videos {
		all := v.AllFrames
		if all == nil {
			all = []string{}
		}
		out.VideoResults[i] = VideoResult{
			VideoID:    v.VideoID,
			VideoScore: v.VideoScore,
			BestRank:   v.BestRank,
			Frames:     framesFromResult(v.Frames),
			AllFrames:  all,
		}
	}
	return out
}

func framesFromResult(frames []result.Frame) []FrameResult {
	out := make([]FrameResult, len(frames))
	for i, f := range frames {
		out[i] = FrameResult{Path: f.Path, Score: f.Score}
	}
	return out
}

// requestFields are logged alongside a failed search.
func requestFields(req *request.Request) []zap.Field {
	return []zap.Field{
		zap.String("mode", string(req.Mode())),
		zap.Int("k", req.K()),
	}
}
