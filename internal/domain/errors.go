package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodeCorruptedData = "CORRUPTED_DATA"
	ErrCodeUnavailable   = "PROVIDER_UNAVAILABLE"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrEmptyContent  = NewDomainError(ErrCodeValidation, "content is empty")
	ErrEmptyQuery    = NewDomainError(ErrCodeValidation, "query is empty")
	ErrInvalidLimit  = NewDomainError(ErrCodeValidation, "limit must not be negative")
	ErrInvalidMaxAge = NewDomainError(ErrCodeValidation, "max age must not be negative")
	ErrInvalidCursor = NewDomainError(ErrCodeValidation, "invalid pagination cursor")
)

// Not found errors
var (
	ErrRecordNotFound = NewDomainError(ErrCodeNotFound, "knowledge record not found")
)

// Already exists errors
var (
	ErrDuplicateRecord = NewDomainError(ErrCodeAlreadyExists, "knowledge record already exists")
)

// Authorization errors
var (
	ErrInvalidToken = NewDomainError(ErrCodeUnauthorized, "invalid api token")
)

// Configuration errors, fatal at construction or insert time
var (
	ErrDimensionMismatch = NewDomainError(ErrCodeConfiguration, "embedding dimensions do not match store configuration")
	ErrUnknownBackend    = NewDomainError(ErrCodeConfiguration, "unknown storage backend")
)

// Data and provider errors
var (
	ErrCorruptedVector      = NewDomainError(ErrCodeCorruptedData, "stored vector bytes are corrupted")
	ErrEmbeddingUnavailable = NewDomainError(ErrCodeUnavailable, "embedding provider unavailable")
)
