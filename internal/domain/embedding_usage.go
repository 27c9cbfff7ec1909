package domain

import "context"

type embeddingUsageKey struct{}

// EmbeddingUsage collects query-embedding usage for a single HTTP request.
// The handler installs it before calling the service and reads it for response headers.
type EmbeddingUsage struct {
	TotalTokens int
	Calls       int
	CacheHits   int
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// Record adds one embedding call to the collector.
func (u *EmbeddingUsage) Record(res EmbeddingResult) {
	if u == nil {
		return
	}
	u.Calls++
	u.TotalTokens += res.TotalTokens
	if res.Cached {
		u.CacheHits++
	}
}
