package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kfsearch/internal/domain"
	"github.com/kailas-cloud/kfsearch/internal/domain/candidate"
	"github.com/kailas-cloud/kfsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/kfsearch/internal/domain/search/request"
	"github.com/kailas-cloud/kfsearch/internal/domain/search/result"
	"github.com/kailas-cloud/kfsearch/internal/logger"
	"github.com/kailas-cloud/kfsearch/internal/metrics"
)

// Options tunes fusion and aggregation.
type Options struct {
	// Alpha is the dense weight in dual-signal fusion, in (0,1).
	Alpha  float64
	BM25K1 float64
	BM25B  float64
	// PublicRoot prefixes every path in the response.
	PublicRoot     string
	ListingWorkers int
}

func (o *Options) applyDefaults() {
	if o.Alpha <= 0 || o.Alpha >= 1 {
		o.Alpha = DefaultAlpha
	}
	if o.BM25K1 <= 0 {
		o.BM25K1 = DefaultK1
	}
	if o.BM25B < 0 || o.BM25B > 1 {
		o.BM25B = DefaultB
	}
	if o.PublicRoot == "" {
		o.PublicRoot = DefaultPublicRoot
	}
	if o.ListingWorkers <= 0 {
		o.ListingWorkers = DefaultListingWorkers
	}
}

// Service runs the retrieval, fusion and video aggregation pipeline.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	sources *Sources
	frames  FrameStore
	opts    Options
	logger  *zap.Logger
}

// New creates a search service.
func New(sources *Sources, frames FrameStore, opts Options, logger *zap.Logger) *Service {
	opts.applyDefaults()
	return &Service{sources: sources, frames: frames, opts: opts, logger: logger}
}

// Models lists the dense models clients may select.
func (s *Service) Models() []string {
	return s.sources.Models()
}

// Search answers one query. An empty candidate set is not an error: it yields
// an empty response and no later stage runs.
func (s *Service) Search(ctx context.Context, req *request.Request) (resp result.Response, err error) {
	start := time.Now()
	st := req.State()
	log := logger.FromContext(ctx).With(
		zap.String("mode", string(req.Mode())),
		zap.Stringer("state", st),
		zap.Int("k", req.K()),
	)

	defer func() {
		metrics.SearchRequestsTotal.WithLabelValues(string(req.Mode()), statusLabel(err)).Inc()
	}()

	if st == mode.Empty {
		log.Debug("query has nothing to match")
		return result.Empty(), nil
	}

	retrieveStart := time.Now()
	cs, err := s.retrieve(ctx, req, st)
	if err != nil {
		return result.Response{}, err
	}
	metrics.ObserveStage(metrics.StageRetrieve, retrieveStart)
	metrics.SearchCandidates.WithLabelValues(string(req.Mode())).Observe(float64(len(cs)))

	if len(cs) == 0 {
		log.Debug("no candidates", zap.Duration("latency", time.Since(start)))
		return result.Empty(), nil
	}

	fuseStart := time.Now()
	ranked, lexical, err := s.rank(cs, req.Query(), st)
	if err != nil {
		return result.Response{}, fmt.Errorf("fuse: %w", err)
	}
	metrics.ObserveStage(metrics.StageFuse, fuseStart)
	log.Debug("candidates fused", zap.Int("candidates", len(cs)), zap.Bool("lexical", lexical))

	aggStart := time.Now()
	groups := groupByVideo(ranked)
	if err := listAllFrames(ctx, s.frames, groups, s.opts.ListingWorkers); err != nil {
		return result.Response{}, err
	}
	metrics.ObserveStage(metrics.StageAggregate, aggStart)

	resp = assemble(ranked, groups, s.opts.PublicRoot)
	log.Info("search completed",
		zap.Int("candidates", len(cs)),
		zap.Int("frames", len(resp.Frames)),
		zap.Int("videos", len(resp.Videos)),
		zap.Duration("latency", time.Since(start)),
	)
	return resp, nil
}

func (s *Service) retrieve(ctx context.Context, req *request.Request, st mode.State) ([]candidate.Candidate, error) {
	switch st {
	case mode.DenseWithCaption, mode.DenseWithoutCaption:
		src, err := s.sources.DenseFor(st, req.Model())
		if err != nil {
			return nil, err
		}
		cs, err := src.Search(ctx, req.Query(), req.K(), st == mode.DenseWithCaption)
		if err != nil {
			return nil, fmt.Errorf("retrieve %s: %w", src.Name(), err)
		}
		return candidate.Dedup(cs), nil

	case mode.KeywordOCR, mode.KeywordSpeech:
		src, err := s.sources.KeywordFor(st)
		if err != nil {
			return nil, err
		}
		fuzzy, ok := req.Fuzzy()
		if !ok {
			fuzzy = src.DefaultFuzzy()
		}
		cs, err := src.Search(ctx, req.Query(), req.K(), fuzzy)
		if err != nil {
			return nil, fmt.Errorf("retrieve %s: %w", src.Name(), err)
		}
		return candidate.Dedup(cs), nil

	default:
		return nil, fmt.Errorf("%w: unsupported state %s", domain.ErrInvalidRequest, st)
	}
}

// rank orders the candidates. Keyword states keep backend order with no
// scores. Dense states blend in caption BM25 when captions are present.
func (s *Service) rank(cs []candidate.Candidate, query string, st mode.State) ([]fused, bool, error) {
	if st == mode.KeywordOCR || st == mode.KeywordSpeech {
		return fuseKeyword(cs), false, nil
	}

	if !candidate.AllScored(cs) {
		return nil, false, fmt.Errorf("%w: dense source returned unscored candidates", domain.ErrBackendUnavailable)
	}

	var lex []float64
	if st == mode.DenseWithCaption {
		lex = lexicalScores(cs, query, s.opts.BM25K1, s.opts.BM25B)
	}
	ranked, err := fuseDense(cs, lex, s.opts.Alpha)
	return ranked, lex != nil, err
}

func statusLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case domain.IsClientError(err):
		return "client_error"
	default:
		return "error"
	}
}
