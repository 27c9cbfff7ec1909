package kfsearch

import "github.com/kailas-cloud/kfsearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidRequest         = domain.ErrInvalidRequest
	ErrUnknownMode            = domain.ErrUnknownMode
	ErrModeNotConfigured      = domain.ErrModeNotConfigured
	ErrUnknownModel           = domain.ErrUnknownModel
	ErrBackendUnavailable     = domain.ErrBackendUnavailable
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
)
