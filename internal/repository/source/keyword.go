package source

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kfsearch/internal/db"
	"github.com/kailas-cloud/kfsearch/internal/domain/candidate"
)

// textIndex is the consumer interface for keyword retrieval (ISP).
type textIndex interface {
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// KeywordConfig describes one full-text index (OCR or speech transcripts).
type KeywordConfig struct {
	Name      string
	Index     string
	TextField string
	PathField string
	Fuzzy     bool
	Timeout   time.Duration
}

// Keyword runs full-text queries. Its hits carry no score, only their rank.
type Keyword struct {
	cfg    KeywordConfig
	index  textIndex
	logger *zap.Logger
}

// NewKeyword creates a keyword candidate source.
func NewKeyword(cfg KeywordConfig, index textIndex, logger *zap.Logger) *Keyword {
	if cfg.TextField == "" {
		cfg.TextField = "text"
	}
	if cfg.PathField == "" {
		cfg.PathField = "path"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Keyword{cfg: cfg, index: index, logger: logger}
}

// Name returns the source name.
func (k *Keyword) Name() string { return k.cfg.Name }

// DefaultFuzzy returns the configured fuzzy setting used when a request has none.
func (k *Keyword) DefaultFuzzy() bool { return k.cfg.Fuzzy }

// Search returns up to topK frame paths in backend rank order.
func (k *Keyword) Search(ctx context.Context, text string, topK int, fuzzy bool) ([]candidate.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, k.cfg.Timeout)
	defer cancel()

	sr, err := k.index.SearchText(ctx, &db.TextQuery{
		IndexName:    k.cfg.Index,
		Field:        k.cfg.TextField,
		Query:        text,
		TopK:         topK,
		Fuzzy:        fuzzy,
		ReturnFields: []string{k.cfg.PathField},
	})
	if err != nil {
		return nil, backendError(k.cfg.Name, err)
	}

	out := make([]candidate.Candidate, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		if p := e.Fields[k.cfg.PathField]; p != "" {
			out = append(out, candidate.NewRanked(p))
		}
	}

	deduped := candidate.Dedup(out)
	k.logger.Debug("keyword source searched",
		zap.String("source", k.cfg.Name),
		zap.String("index", k.cfg.Index),
		zap.Bool("fuzzy", fuzzy),
		zap.Int("hits", len(sr.Entries)),
		zap.Int("unique", len(deduped)),
	)
	return deduped, nil
}

