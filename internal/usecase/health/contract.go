package health

import "context"

// Pinger checks backend availability. The text store, vector stores and the
// frame store all implement it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CheckFunc adapts a plain function to both Pinger and EmbeddingChecker.
type CheckFunc func(ctx context.Context) error

// Ping implements Pinger.
func (f CheckFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthCheck implements EmbeddingChecker.
func (f CheckFunc) HealthCheck(ctx context.Context) error { return f(ctx) }
