package milvus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/kailas-cloud/kfsearch/internal/db"
)

// maxEF is the upper bound Milvus accepts for the HNSW ef search parameter.
const maxEF = 32768

// Compile-time checks.
var (
	_ db.VectorSearcher = (*Store)(nil)
	_ db.Pinger         = (*Store)(nil)
)

// milvusClient is the subset of client.Client used by the store (ISP).
type milvusClient interface {
	HasCollection(ctx context.Context, collName string) (bool, error)
	LoadCollection(ctx context.Context, collName string, async bool, opts ...client.LoadCollectionOption) error
	Search(
		ctx context.Context, collName string, partitions []string, expr string,
		outputFields []string, vectors []entity.Vector, vectorField string,
		metricType entity.MetricType, topK int, sp entity.SearchParam,
		opts ...client.SearchQueryOptionFunc,
	) ([]client.SearchResult, error)
	Close() error
}

// Config holds Milvus connection parameters.
type Config struct {
	Address  string
	Username string
	Password string
	APIKey   string
}

// Store runs KNN searches against Milvus collections of keyframe embeddings.
type Store struct {
	client milvusClient

	mu          sync.RWMutex
	collections []string
}

// NewStore connects to Milvus.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Address == "" {
		return nil, errors.New("address is required")
	}
	mc, err := client.NewClient(ctx, client.Config{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		APIKey:   cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("connect milvus: %w", err)
	}
	return &Store{client: mc}, nil
}

// EnsureLoaded verifies the collection exists and loads it into memory for search.
func (s *Store) EnsureLoaded(ctx context.Context, collection string) error {
	has, err := s.client.HasCollection(ctx, collection)
	if err != nil {
		return &db.Error{Op: db.OpMilvusLoad, Err: err}
	}
	if !has {
		return fmt.Errorf("collection %q: %w", collection, db.ErrIndexNotFound)
	}
	if err := s.client.LoadCollection(ctx, collection, false); err != nil {
		return &db.Error{Op: db.OpMilvusLoad, Err: err}
	}

	s.mu.Lock()
	s.collections = append(s.collections, collection)
	s.mu.Unlock()
	return nil
}

// Ping checks that every loaded collection is still present.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	collections := append([]string(nil), s.collections...)
	s.mu.RUnlock()

	for _, c := range collections {
		has, err := s.client.HasCollection(ctx, c)
		if err != nil {
			return fmt.Errorf("ping milvus: %w", err)
		}
		if !has {
			return fmt.Errorf("ping milvus: collection %q: %w", c, db.ErrIndexNotFound)
		}
	}
	return nil
}

// SearchKNN runs an HNSW search. Scores follow the metric: IP and COSINE as
// returned (higher is closer), L2 negated so that higher is still closer.
// Entries keep Milvus order; Key is the value of the first return field.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, errors.New("collection is required")
	}
	if len(q.Vector) == 0 {
		return nil, errors.New("vector is required")
	}
	if q.K <= 0 {
		return nil, errors.New("k must be positive")
	}

	metric, err := metricType(q.Metric)
	if err != nil {
		return nil, err
	}

	ef := q.EF
	if ef < q.K {
		ef = q.K
	}
	ef = min(ef, maxEF)
	sp, err := entity.NewIndexHNSWSearchParam(ef)
	if err != nil {
		return nil, fmt.Errorf("search param: %w", err)
	}

	field := q.VectorField
	if field == "" {
		field = "embedding"
	}

	res, err := s.client.Search(
		ctx, q.IndexName, []string{}, "", q.ReturnFields,
		[]entity.Vector{entity.FloatVector(q.Vector)}, field, metric, q.K, sp,
	)
	if err != nil {
		return nil, &db.Error{Op: db.OpMilvusSearch, Err: err}
	}

	return parseResults(res, q.ReturnFields, metric)
}

// Close releases the connection.
func (s *Store) Close() {
	_ = s.client.Close()
}

func metricType(name string) (entity.MetricType, error) {
	switch name {
	case "", "IP":
		return entity.IP, nil
	case "COSINE":
		return entity.COSINE, nil
	case "L2":
		return entity.L2, nil
	default:
		return "", fmt.Errorf("unsupported metric %q", name)
	}
}

// parseResults flattens the result sets. A failed or short result set fails
// the whole search.
func parseResults(res []client.SearchResult, fields []string, metric entity.MetricType) (*db.SearchResult, error) {
	out := &db.SearchResult{}
	for _, r := range res {
		if r.Err != nil {
			return nil, &db.Error{Op: db.OpMilvusSearch, Err: r.Err}
		}
		if len(r.Scores) < r.ResultCount {
			return nil, &db.Error{
				Op:  db.OpMilvusSearch,
				Err: fmt.Errorf("%w: %d scores for %d hits", db.ErrMalformedResponse, len(r.Scores), r.ResultCount),
			}
		}
		cols := make(map[string][]string, len(r.Fields))
		for _, c := range r.Fields {
			if vc, ok := c.(*entity.ColumnVarChar); ok {
				cols[c.Name()] = vc.Data()
			}
		}
		if len(fields) > 0 && len(cols[fields[0]]) < r.ResultCount {
			return nil, &db.Error{
				Op:  db.OpMilvusSearch,
				Err: fmt.Errorf("%w: field %q missing from results", db.ErrMalformedResponse, fields[0]),
			}
		}

		for i := 0; i < r.ResultCount; i++ {
			entry := db.SearchEntry{
				Score:  float64(r.Scores[i]),
				Fields: make(map[string]string, len(fields)),
			}
			if metric == entity.L2 {
				entry.Score = -entry.Score
			}
			for _, f := range fields {
				if data := cols[f]; i < len(data) {
					entry.Fields[f] = data[i]
				}
			}
			if len(fields) > 0 {
				entry.Key = entry.Fields[fields[0]]
			}
			out.Entries = append(out.Entries, entry)
		}
	}
	out.Total = len(out.Entries)
	return out, nil
}
