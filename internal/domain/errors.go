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
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeParse             = "PARSE_ERROR"
	ErrCodeStorageUpload     = "STORAGE_UPLOAD_ERROR"
	ErrCodeDescription       = "DESCRIPTION_ERROR"
	ErrCodeEmbedding         = "EMBEDDING_ERROR"
	ErrCodeWrite             = "WRITE_ERROR"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// Pipeline errors. Storage upload and description failures degrade (the
// image continues without a URL or description); the rest abort the file.
var (
	ErrUnsupportedFormat = NewDomainError(ErrCodeUnsupportedFormat, "no parser registered for this file format")
	ErrFileNotFound      = NewDomainError(ErrCodeNotFound, "file not found in source store")
	ErrEmptyTenantID     = NewDomainError(ErrCodeValidation, "tenant id is required")
	ErrEmptyFileID       = NewDomainError(ErrCodeValidation, "file id is required")
)

// NewParseError wraps a parser failure for one file.
func NewParseError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeParse, "failed to parse document", err)
}

// NewStorageUploadError wraps an image upload failure.
func NewStorageUploadError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeStorageUpload, "failed to upload image to storage", err)
}

// NewDescriptionError wraps a vision description failure.
func NewDescriptionError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeDescription, "failed to describe image", err)
}

// NewEmbeddingError wraps an embedding provider failure.
func NewEmbeddingError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeEmbedding, "failed to generate embeddings", err)
}

// NewWriteError wraps a vector store write failure.
func NewWriteError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeWrite, "failed to write to vector store", err)
}
