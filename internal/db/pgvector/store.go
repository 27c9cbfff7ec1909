package pgvector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/kfsearch/internal/db"
)

// Compile-time checks.
var (
	_ db.VectorSearcher = (*Store)(nil)
	_ db.Pinger         = (*Store)(nil)
)

// querier is the subset of *pgxpool.Pool used by the store.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close()
}

// Config holds Postgres pool parameters.
type Config struct {
	URL      string
	MaxConns int32
}

// Store runs KNN searches over keyframe embeddings stored in Postgres tables.
// IndexName is the table, VectorField the vector column and ReturnFields are
// read back as text.
type Store struct {
	pool querier
}

// NewStore opens a pool and verifies connectivity.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, errors.New("url is required")
	}
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// SearchKNN orders rows by vector distance. COSINE scores are 1 - distance,
// IP scores the inner product and L2 the negated distance, so higher is always closer.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, errors.New("table is required")
	}
	if len(q.Vector) == 0 {
		return nil, errors.New("vector is required")
	}
	if q.K <= 0 {
		return nil, errors.New("k must be positive")
	}
	if len(q.ReturnFields) == 0 {
		return nil, errors.New("at least one return field is required")
	}

	sql, err := buildKNNQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, sql, pgvector.NewVector(q.Vector), q.K)
	if err != nil {
		return nil, &db.Error{Op: db.OpPgQuery, Err: err}
	}
	defer rows.Close()

	out := &db.SearchResult{}
	values := make([]*string, len(q.ReturnFields))
	dest := make([]any, len(q.ReturnFields)+1)
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		var score float64
		dest[len(dest)-1] = &score
		if err := rows.Scan(dest...); err != nil {
			return nil, &db.Error{Op: db.OpPgQuery, Err: fmt.Errorf("scan: %w", err)}
		}

		entry := db.SearchEntry{Score: score, Fields: make(map[string]string, len(values))}
		for i, v := range values {
			if v != nil {
				entry.Fields[q.ReturnFields[i]] = *v
			}
		}
		entry.Key = entry.Fields[q.ReturnFields[0]]
		out.Entries = append(out.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpPgQuery, Err: err}
	}

	out.Total = len(out.Entries)
	return out, nil
}

func buildKNNQuery(q *db.KNNQuery) (string, error) {
	field := q.VectorField
	if field == "" {
		field = "embedding"
	}
	col := pgx.Identifier{field}.Sanitize()

	var op, score string
	switch q.Metric {
	case "", "COSINE":
		op, score = "<=>", "1 - (%s %s $1)"
	case "IP":
		// <#> yields the negative inner product
		op, score = "<#>", "-(%s %s $1)"
	case "L2":
		op, score = "<->", "-(%s %s $1)"
	default:
		return "", fmt.Errorf("unsupported metric %q", q.Metric)
	}

	cols := make([]string, 0, len(q.ReturnFields)+1)
	for _, f := range q.ReturnFields {
		cols = append(cols, pgx.Identifier{f}.Sanitize()+"::text")
	}
	cols = append(cols, fmt.Sprintf(score, col, op)+" AS score")

	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s %s $1 LIMIT $2",
		strings.Join(cols, ", "),
		pgx.Identifier(strings.Split(q.IndexName, ".")).Sanitize(),
		col, op,
	), nil
}
