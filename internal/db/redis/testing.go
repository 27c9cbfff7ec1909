package redis

import "github.com/redis/rueidis"

// NewStoreForTest creates a Store with the provided rueidis client (test-only).
// Full-text search is enabled, as on Redis 8+.
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{client: c, textSearch: true}
}
