package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/kfsearch/internal/domain"
	"github.com/kailas-cloud/kfsearch/internal/domain/search/mode"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length in bytes.
	MaxQueryLength = 4096
	DefaultK       = 500
	MaxK           = 2000
)

// Limits bounds the k parameter.
type Limits struct {
	DefaultK int
	MaxK     int
}

// DefaultLimits returns the built-in k bounds.
func DefaultLimits() Limits {
	return Limits{DefaultK: DefaultK, MaxK: MaxK}
}

// Request is a validated search query.
type Request struct {
	query      string
	searchMode mode.Mode
	k          int
	model      string
	fuzzy      *bool
}

// New validates and normalizes search parameters.
// k == 0 selects limits.DefaultK. fuzzy == nil keeps the source's configured default.
func New(query string, m mode.Mode, k int, model string, fuzzy *bool, limits Limits) (Request, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d bytes)", domain.ErrInvalidRequest, MaxQueryLength)
	}
	if m == "" {
		m = mode.Default
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("%w: %q", domain.ErrUnknownMode, m)
	}
	if limits.DefaultK <= 0 {
		limits.DefaultK = DefaultK
	}
	if limits.MaxK <= 0 {
		limits.MaxK = MaxK
	}
	if k == 0 {
		k = limits.DefaultK
	}
	if k < 0 || k > limits.MaxK {
		return Request{}, fmt.Errorf("%w: k must be between 1 and %d", domain.ErrInvalidRequest, limits.MaxK)
	}
	if model != "" && m.IsKeyword() {
		return Request{}, fmt.Errorf("%w: model applies to dense modes only", domain.ErrInvalidRequest)
	}

	return Request{query: query, searchMode: m, k: k, model: model, fuzzy: fuzzy}, nil
}

// Query returns the trimmed query text.
func (r *Request) Query() string { return r.query }

// Mode returns the requested mode.
func (r *Request) Mode() mode.Mode { return r.searchMode }

// K returns the number of candidates requested from the backend.
func (r *Request) K() int { return r.k }

// Model returns the dense model override, or "" for the mode's default.
func (r *Request) Model() string { return r.model }

// Fuzzy returns the fuzzy-matching override for keyword modes.
func (r *Request) Fuzzy() (bool, bool) {
	if r.fuzzy == nil {
		return false, false
	}
	return *r.fuzzy, true
}

// State resolves the dispatch state for this request.
func (r *Request) State() mode.State {
	return mode.Resolve(r.searchMode, r.query)
}
