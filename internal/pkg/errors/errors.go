// Package errors provides the API error type and the mapping from domain
// errors to HTTP statuses.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/Aranthus/erc-721-hyperliquid/internal/blocks"
	"github.com/Aranthus/erc-721-hyperliquid/internal/nft"
	"github.com/Aranthus/erc-721-hyperliquid/internal/throughput"
)

// APIError represents a standardized API error response.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Details    any    `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// WithDetails returns a copy of the error with additional details.
func (e *APIError) WithDetails(details any) *APIError {
	c := *e
	c.Details = details
	return &c
}

// WithMessage returns a copy of the error with a custom message.
func (e *APIError) WithMessage(message string) *APIError {
	c := *e
	c.Message = message
	return &c
}

var (
	ErrNotFound = &APIError{
		Code:       "not_found",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrBadRequest = &APIError{
		Code:       "bad_request",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	// ErrUpstream is returned when the chain RPC could not be read.
	ErrUpstream = &APIError{
		Code:       "upstream_unavailable",
		Message:    "Chain RPC request failed",
		StatusCode: http.StatusBadGateway,
	}

	// ErrUnprocessable is returned when a computation has no meaningful result.
	ErrUnprocessable = &APIError{
		Code:       "unprocessable",
		Message:    "Request cannot be processed",
		StatusCode: http.StatusUnprocessableEntity,
	}

	ErrInternal = &APIError{
		Code:       "internal_error",
		Message:    "An internal error occurred",
		StatusCode: http.StatusInternalServerError,
	}
)

// NewValidationError creates a validation error for a specific field.
func NewValidationError(field, message string) *APIError {
	return &APIError{
		Code:       "validation_error",
		Message:    fmt.Sprintf("Validation failed: %s", message),
		StatusCode: http.StatusBadRequest,
		Details: map[string]string{
			"field": field,
			"error": message,
		},
	}
}

// NewNotFoundError creates a not found error for a specific resource type.
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:       "not_found",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

// AsAPIError converts err to an APIError. Domain errors map to their status;
// anything else becomes ErrInternal.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case stderrors.Is(err, blocks.ErrBlockNotFound):
		return ErrNotFound.WithMessage(err.Error())
	case stderrors.Is(err, nft.ErrNotDeployed):
		return NewNotFoundError("Deployment info")
	case stderrors.Is(err, blocks.ErrTransientRead):
		return ErrUpstream.WithMessage(err.Error())
	case stderrors.Is(err, blocks.ErrInvalidSample):
		return ErrUpstream.WithMessage(err.Error())
	case stderrors.Is(err, throughput.ErrDegenerateEstimate):
		return ErrUnprocessable.WithMessage(err.Error())
	default:
		return ErrInternal
	}
}
