package service

import (
	"errors"
	"fmt"
)

var (
	// ErrMaterialNotFound indicates the validation material does not exist.
	ErrMaterialNotFound = errors.New("material not found")
	// ErrDownloadFailed indicates the stored file could not be retrieved.
	ErrDownloadFailed = errors.New("file download failed")
	// ErrFileTooLarge indicates the stored file exceeds the configured limit.
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUnsupportedExtension indicates the stored path has an extension outside the allow-list.
	ErrUnsupportedExtension = errors.New("unsupported file extension")
	// ErrContentMismatch indicates the file bytes do not match the declared extension.
	ErrContentMismatch = errors.New("file content does not match extension")
	// ErrInferenceFailed indicates the inference service rejected or failed the request.
	ErrInferenceFailed = errors.New("ai validation failed")
	// ErrInferenceTimeout indicates the inference call exceeded its deadline.
	ErrInferenceTimeout = errors.New("ai validation timed out")
	// ErrVerifierUnavailable indicates no inference credential was configured.
	ErrVerifierUnavailable = errors.New("ai verifier unavailable")
	// ErrValidationInProgress indicates another run holds the material.
	ErrValidationInProgress = errors.New("validation already in progress")
)

// ValidationFailure carries the human-readable diagnostic persisted on the material
// together with the sentinel describing its kind.
type ValidationFailure struct {
	Kind    error
	Message string
}

func (f *ValidationFailure) Error() string {
	return f.Message
}

func (f *ValidationFailure) Unwrap() error {
	return f.Kind
}

func newFailure(kind error, format string, args ...interface{}) *ValidationFailure {
	return &ValidationFailure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func failureLabel(kind error) string {
	switch {
	case errors.Is(kind, ErrDownloadFailed):
		return "download"
	case errors.Is(kind, ErrFileTooLarge):
		return "size"
	case errors.Is(kind, ErrUnsupportedExtension):
		return "extension"
	case errors.Is(kind, ErrContentMismatch):
		return "content"
	case errors.Is(kind, ErrInferenceTimeout):
		return "timeout"
	case errors.Is(kind, ErrInferenceFailed):
		return "inference"
	default:
		return "other"
	}
}
