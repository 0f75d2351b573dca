// Package errors provides structured error handling for ragdocs.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage errors (fingerprint cache, index files)
//   - 3XX: Connection errors (vector store, embedder)
//   - 4XX: Validation errors
//   - 5XX: Schema errors (collection/index creation)
//   - 6XX: Parse errors (frontmatter, corrupt cache entries)
//   - 7XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates cache or index I/O errors.
	// Fatal to the calling operation, logged and propagated.
	CategoryStorage Category = "STORAGE"
	// CategoryConnection indicates the vector store or embedder is unreachable.
	CategoryConnection Category = "CONNECTION"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategorySchema indicates collection or index creation errors.
	CategorySchema Category = "SCHEMA"
	// CategoryParse indicates malformed structured data that is recovered
	// locally with an empty/default value and never propagated.
	CategoryParse Category = "PARSE"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Storage errors (200-299)
	ErrCodeCacheWrite     = "ERR_201_CACHE_WRITE"
	ErrCodeStoreIO        = "ERR_202_STORE_IO"
	ErrCodeFileUnreadable = "ERR_203_FILE_UNREADABLE"
	ErrCodeCorruptIndex   = "ERR_204_CORRUPT_INDEX"

	// Connection errors (300-399)
	ErrCodeStoreUnreachable    = "ERR_301_STORE_UNREACHABLE"
	ErrCodeEmbedderUnreachable = "ERR_302_EMBEDDER_UNREACHABLE"
	ErrCodeRequestTimeout      = "ERR_303_REQUEST_TIMEOUT"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeInvalidFilter     = "ERR_403_INVALID_FILTER"
	ErrCodeQueryEmpty        = "ERR_404_QUERY_EMPTY"

	// Schema errors (500-599)
	ErrCodeSchemaCreate = "ERR_501_SCHEMA_CREATE"
	ErrCodeIndexCreate  = "ERR_502_INDEX_CREATE"

	// Parse errors (600-699)
	ErrCodeFrontmatterInvalid = "ERR_601_FRONTMATTER_INVALID"
	ErrCodeCacheCorrupt       = "ERR_602_CACHE_CORRUPT"

	// Internal errors (700-799)
	ErrCodeInternal        = "ERR_701_INTERNAL"
	ErrCodeEmbeddingFailed = "ERR_702_EMBEDDING_FAILED"
	ErrCodeSearchFailed    = "ERR_703_SEARCH_FAILED"
	ErrCodeSyncFailed      = "ERR_704_SYNC_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Leading digit of the numeric portion (e.g. '2' in "ERR_201_CACHE_WRITE").
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryConnection
	case '4':
		return CategoryValidation
	case '5':
		return CategorySchema
	case '6':
		return CategoryParse
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptIndex:
		return SeverityFatal
	case ErrCodeFrontmatterInvalid, ErrCodeCacheCorrupt, ErrCodeFileUnreadable:
		// Recovered locally; surfaced for logging only.
		return SeverityWarning
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
// The core performs no silent retry; callers may re-invoke sync/search,
// which is safe because both are idempotent over current state.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeRequestTimeout, ErrCodeEmbedderUnreachable:
		return true
	}
	return false
}
