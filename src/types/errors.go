package types

import (
	"errors"
	"net/http"
)

type ErrorKind string

const (
	ERR_INVALID_INPUT     ErrorKind = "invalid_input"
	ERR_NOT_FOUND         ErrorKind = "not_found"
	ERR_SPOT_UNAVAILABLE  ErrorKind = "spot_unavailable"
	ERR_PAYMENT_REQUIRED  ErrorKind = "payment_required"
	ERR_ALREADY_PROCESSED ErrorKind = "already_processed"
	ERR_UPSTREAM_FAILURE  ErrorKind = "upstream_failure"
)

// APIError is the structured result every engine operation reports on failure.
// Cause is kept for diagnostics only and is never serialized to clients.
type APIError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.Cause }

func NewAPIError(kind ErrorKind, message string) *APIError {
	return &APIError{Kind: kind, Message: message}
}

// WrapUpstream hides a storage or collaborator error behind an
// upstream-failure result while keeping the original cause attached.
func WrapUpstream(message string, cause error) *APIError {
	return &APIError{Kind: ERR_UPSTREAM_FAILURE, Message: message, Cause: cause}
}

func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ERR_UPSTREAM_FAILURE
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case ERR_INVALID_INPUT:
		return http.StatusBadRequest
	case ERR_NOT_FOUND:
		return http.StatusNotFound
	case ERR_SPOT_UNAVAILABLE, ERR_ALREADY_PROCESSED:
		return http.StatusConflict
	case ERR_PAYMENT_REQUIRED:
		return http.StatusPaymentRequired
	default:
		return http.StatusBadGateway
	}
}
