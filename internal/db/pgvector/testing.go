package pgvector

// NewStoreForTest creates a Store around a fake pool (test-only).
func NewStoreForTest(q querier) *Store {
	return &Store{pool: q}
}
