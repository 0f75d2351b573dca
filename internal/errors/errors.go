package errors

import (
	"fmt"
)

// RagError is the structured error type for ragdocs.
// It provides rich context for error handling, logging, and user presentation.
type RagError struct {
	// Code is the unique error code (e.g., "ERR_201_CACHE_WRITE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Storage, Connection, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *RagError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *RagError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with RagError.
func (e *RagError) Is(target error) bool {
	if t, ok := target.(*RagError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *RagError) WithDetail(key, value string) *RagError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new RagError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *RagError {
	return &RagError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a RagError from an existing error.
// The error's message becomes the RagError message.
func Wrap(code string, err error) *RagError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// StorageError creates a storage-related error (cache or index I/O).
// Fatal to the calling operation: logged and propagated.
func StorageError(message string, cause error) *RagError {
	return New(ErrCodeStoreIO, message, cause)
}

// CacheWriteError creates an error for a failed fingerprint cache persist.
func CacheWriteError(message string, cause error) *RagError {
	return New(ErrCodeCacheWrite, message, cause)
}

// ParseError creates a parse-related error (malformed frontmatter or
// corrupted cache entry). Callers recover with an empty/default value;
// these are logged but never propagated.
func ParseError(message string, cause error) *RagError {
	return New(ErrCodeFrontmatterInvalid, message, cause)
}

// ConnectionError creates an error for an unreachable vector store.
func ConnectionError(message string, cause error) *RagError {
	return New(ErrCodeStoreUnreachable, message, cause)
}

// SchemaError creates an error for failed collection or index creation.
// Fatal: aborts the sync.
func SchemaError(message string, cause error) *RagError {
	return New(ErrCodeSchemaCreate, message, cause)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *RagError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *RagError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *RagError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a RagError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if re, ok := err.(*RagError); ok {
		return re.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if re, ok := err.(*RagError); ok {
		return re.Severity == SeverityFatal
	}
	return false
}

// IsCategory checks if an error belongs to the given category.
func IsCategory(err error, cat Category) bool {
	if err == nil {
		return false
	}
	if re, ok := err.(*RagError); ok {
		return re.Category == cat
	}
	return false
}

// GetCode extracts the error code from a RagError.
// Returns empty string if not a RagError.
func GetCode(err error) string {
	if re, ok := err.(*RagError); ok {
		return re.Code
	}
	return ""
}
