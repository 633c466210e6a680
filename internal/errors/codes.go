// Package errors provides structured error handling for the retrieval engine.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (cache file read/write)
//   - 3XX: Provider errors (embedding / reranking services)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates cache file I/O errors.
	CategoryIO Category = "IO"
	// CategoryProvider indicates external provider errors.
	CategoryProvider Category = "PROVIDER"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Error codes organized by category.
const (
	// Config errors (100-199). Raised at configuration time, never at
	// query time.
	ErrCodeConfigInvalid = "ERR_101_CONFIG_INVALID"

	// IO errors (200-299). Always recoverable by a full rebuild.
	ErrCodeCacheIO     = "ERR_201_CACHE_IO"
	ErrCodeCacheDecode = "ERR_202_CACHE_DECODE"

	// Provider errors (300-399).
	ErrCodeEmbedProvider  = "ERR_301_EMBED_PROVIDER"
	ErrCodeRerankProvider = "ERR_302_RERANK_PROVIDER"

	// Validation errors (400-499).
	ErrCodeDimensionMismatch = "ERR_401_DIMENSION_MISMATCH"

	// Internal errors (500-599).
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode extracts the category from an error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryProvider
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// isRetryableCode reports whether an operation failing with this code
// may be retried. Only provider calls are transient.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEmbedProvider, ErrCodeRerankProvider:
		return true
	default:
		return false
	}
}
