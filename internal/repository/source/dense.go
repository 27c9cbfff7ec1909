package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kfsearch/internal/db"
	"github.com/kailas-cloud/kfsearch/internal/domain"
	"github.com/kailas-cloud/kfsearch/internal/domain/candidate"
)

// DefaultTimeout bounds a backend call when the source config has none.
const DefaultTimeout = 5 * time.Second

// vectorIndex is the consumer interface for dense retrieval (ISP).
type vectorIndex interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// DenseConfig describes one embedding collection.
type DenseConfig struct {
	// Name is the model name clients select with the model parameter.
	Name         string
	Collection   string
	VectorField  string
	PathField    string
	CaptionField string
	Metric       string
	// EFExtra widens the HNSW candidate list beyond k.
	EFExtra int
	Timeout time.Duration
}

// Dense embeds the query text and runs a KNN search over keyframe embeddings.
type Dense struct {
	cfg      DenseConfig
	embedder domain.Embedder
	index    vectorIndex
	logger   *zap.Logger
}

// NewDense creates a dense candidate source.
func NewDense(cfg DenseConfig, embedder domain.Embedder, index vectorIndex, logger *zap.Logger) *Dense {
	if cfg.PathField == "" {
		cfg.PathField = "path"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Dense{cfg: cfg, embedder: embedder, index: index, logger: logger}
}

// Name returns the model name.
func (d *Dense) Name() string { return d.cfg.Name }

// HasCaptions reports whether the collection stores a caption per frame.
func (d *Dense) HasCaptions() bool { return d.cfg.CaptionField != "" }

// Search returns up to k frames ordered by similarity. With captions set and a
// caption field configured, every candidate carries its caption text.
// Repeated paths are dropped after their first occurrence.
func (d *Dense) Search(ctx context.Context, query string, k int, captions bool) ([]candidate.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	emb, err := d.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("source %s: embed query: %w", d.cfg.Name, err)
	}
	domain.UsageFromContext(ctx).Record(emb)

	withCaption := captions && d.HasCaptions()
	fields := []string{d.cfg.PathField}
	if withCaption {
		fields = append(fields, d.cfg.CaptionField)
	}

	sr, err := d.index.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    d.cfg.Collection,
		VectorField:  d.cfg.VectorField,
		Vector:       emb.Embedding,
		K:            k,
		ReturnFields: fields,
		Metric:       d.cfg.Metric,
		EF:           k + d.cfg.EFExtra,
	})
	if err != nil {
		return nil, backendError(d.cfg.Name, err)
	}

	out := make([]candidate.Candidate, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		path := e.Fields[d.cfg.PathField]
		if path == "" {
			continue
		}
		if withCaption {
			out = append(out, candidate.NewCaptioned(path, e.Score, e.Fields[d.cfg.CaptionField]))
		} else {
			out = append(out, candidate.NewScored(path, e.Score))
		}
	}

	deduped := candidate.Dedup(out)
	d.logger.Debug("dense source searched",
		zap.String("source", d.cfg.Name),
		zap.String("collection", d.cfg.Collection),
		zap.Int("k", k),
		zap.Int("hits", len(sr.Entries)),
		zap.Int("unique", len(deduped)),
		zap.Bool("cached_embedding", emb.Cached),
	)
	return deduped, nil
}

// backendError tags index failures as ErrBackendUnavailable, keeping the cause.
// A deadline hit on the source's own timeout is reported the same way.
func backendError(name string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("source %s: %w", name, err)
	}
	return fmt.Errorf("source %s: %w: %w", name, domain.ErrBackendUnavailable, err)
}
