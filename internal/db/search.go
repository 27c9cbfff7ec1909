package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	// IndexName is the FT index, Milvus collection or Postgres table.
	IndexName    string
	VectorField  string
	Vector       []float32
	K            int
	ReturnFields []string
	// Metric selects the Milvus metric type (IP, COSINE, L2).
	Metric string
	// EF is the HNSW search breadth; 0 lets the driver choose.
	EF int
}

// TextQuery is the input for full-text search.
type TextQuery struct {
	IndexName    string
	Field        string
	Query        string
	TopK         int
	Fuzzy        bool
	ReturnFields []string
}

// SearchResult is the output of a search operation. Entries keep backend order.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
