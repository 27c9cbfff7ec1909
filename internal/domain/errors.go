package domain

import "errors"

var (
	// ErrInvalidRequest signals a malformed search request (missing query, bad k).
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnknownMode signals a mode string outside the supported set.
	ErrUnknownMode = errors.New("unknown mode")
	// ErrModeNotConfigured signals a valid mode with no backend wired for it.
	ErrModeNotConfigured = errors.New("mode not configured")
	// ErrUnknownModel signals a dense model name that has no configured collection.
	ErrUnknownModel = errors.New("unknown model")
	// ErrInvalidInput signals an operation called on input it cannot handle (e.g. empty scores).
	ErrInvalidInput = errors.New("invalid input")
	// ErrBackendUnavailable signals a candidate source or frame store failure.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// IsClientError reports whether err was caused by the request itself.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrUnknownMode) ||
		errors.Is(err, ErrModeNotConfigured) ||
		errors.Is(err, ErrUnknownModel)
}
