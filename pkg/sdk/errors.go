package litmap

import "github.com/kailas-cloud/litmap/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrValidation     = domain.ErrValidation
	ErrOutOfRange     = domain.ErrOutOfRange
	ErrProvider       = domain.ErrProvider
	ErrCut            = domain.ErrCut
	ErrNoSearchResult = domain.ErrNoSearchResult
	ErrSuperseded     = domain.ErrSuperseded
	ErrNotFound       = domain.ErrNotFound
)
