package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes of a run.
// Use errors.Is() to check against these.
var (
	ErrConfig     = errors.New("configuration error")
	ErrAuth       = errors.New("authentication failed")
	ErrNotFound   = errors.New("not found")
	ErrInvalid    = errors.New("invalid request")
	ErrConflict   = errors.New("version conflict")
	ErrExtraction = errors.New("missing response field")
	ErrUpstream   = errors.New("upstream error")
)

// APIError represents a structured error from the platform API.
// Implements error interface and supports unwrapping.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"` // HTTP status, not serialized
	Err        error  `json:"-"` // Wrapped error, not serialized
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewConfigError creates an error for a missing or invalid configuration value.
func NewConfigError(field, reason string) *APIError {
	return &APIError{
		Code:    "CONFIG_ERROR",
		Message: fmt.Sprintf("%s: %s", field, reason),
		Err:     ErrConfig,
	}
}

// NewAuthError creates a 401 error for token endpoint or credential failures.
func NewAuthError(reason string) *APIError {
	return &APIError{
		Code:       "AUTH_ERROR",
		Message:    reason,
		StatusCode: 401,
		Err:        ErrAuth,
	}
}

// NewNotFoundError creates a 404 error for missing resources.
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: 404,
		Err:        ErrNotFound,
	}
}

// NewValidationError creates a 400 error for requests the platform rejects.
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:       "VALIDATION_ERROR",
		Message:    reason,
		StatusCode: 400,
		Err:        ErrInvalid,
	}
}

// NewConflictError creates a 409 error for stale-version rejections.
// The platform enforces optimistic concurrency: every mutation must carry
// the version most recently observed for the resource.
func NewConflictError(resource string, current int64) *APIError {
	msg := fmt.Sprintf("%s version is stale", resource)
	if current > 0 {
		msg = fmt.Sprintf("%s version is stale, current is %d", resource, current)
	}
	return &APIError{
		Code:       "CONCURRENT_MODIFICATION",
		Message:    msg,
		StatusCode: 409,
		Err:        ErrConflict,
	}
}

// NewExtractionError creates an error for a response missing an expected field.
// Treated the same as an API failure: fatal to the run.
func NewExtractionError(field string) *APIError {
	return &APIError{
		Code:    "EXTRACTION_ERROR",
		Message: fmt.Sprintf("response is missing %s", field),
		Err:     ErrExtraction,
	}
}

// NewUpstreamError creates a 502 error for transport-level failures.
func NewUpstreamError(service string, err error) *APIError {
	return &APIError{
		Code:       "UPSTREAM_ERROR",
		Message:    fmt.Sprintf("%s request failed", service),
		StatusCode: 502,
		Err:        fmt.Errorf("%w: %v", ErrUpstream, err),
	}
}
