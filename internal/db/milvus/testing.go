package milvus

// NewStoreForTest creates a Store around a fake Milvus client (test-only).
func NewStoreForTest(c milvusClient) *Store {
	return &Store{client: c}
}
