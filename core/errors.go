package core

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes carried on every rich error produced by this module. Packages
// build their own *goerrors.Error values locally (see the helpers in
// codec/errors.go or dispatch/errors.go) but always choose a text code from this set so a
// client can branch on a stable string instead of an HTTP status alone.
const (
	ServiceErrorBadInput        = "bad_input"
	ServiceErrorUnauthorized    = "unauthorized"
	ServiceErrorForbidden       = "forbidden"
	ServiceErrorNotFound        = "not_found"
	ServiceErrorConflict        = "conflict"
	ServiceErrorRateLimited     = "rate_limited"
	ServiceErrorOperationFailed = "operation_failed"
	ServiceErrorExternalFailure = "external_failure"
	ServiceErrorInternal        = "internal"
)

// Codec-specific text codes, reused verbatim as error envelope names (§4.1).
const (
	ServiceErrorDepthExceeded   = "depth_exceeded"
	ServiceErrorSizeLimit       = "size_limit"
	ServiceErrorNeedsAsync      = "needs_async"
	ServiceErrorMalformedTag    = "malformed_tag"
	ServiceErrorBadBase64       = "bad_base64"
	ServiceErrorUnknownTag      = "unknown_tag"
	ServiceErrorNoContext       = "no_context"
	ServiceErrorSessionRejected = "session_rejected"
)

// DefaultServiceTextCode maps a goerrors category to the text code a caller
// should expect when no more specific code applies.
func DefaultServiceTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ServiceErrorBadInput
	case goerrors.CategoryAuth:
		return ServiceErrorUnauthorized
	case goerrors.CategoryAuthz:
		return ServiceErrorForbidden
	case goerrors.CategoryNotFound:
		return ServiceErrorNotFound
	case goerrors.CategoryConflict:
		return ServiceErrorConflict
	case goerrors.CategoryRateLimit:
		return ServiceErrorRateLimited
	case goerrors.CategoryExternal:
		return ServiceErrorExternalFailure
	case goerrors.CategoryOperation:
		return ServiceErrorOperationFailed
	default:
		return ServiceErrorInternal
	}
}

// ServiceHTTPStatus maps a goerrors category to the HTTP status the
// dispatcher and auth frontend surface for it (§7).
func ServiceHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	case goerrors.CategoryOperation, goerrors.CategoryInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func newCoreError(message string, category goerrors.Category, metadata map[string]any) error {
	err := goerrors.New(message, category).
		WithCode(ServiceHTTPStatus(category)).
		WithTextCode(DefaultServiceTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func newCoreValidationError(field string, message string) error {
	return goerrors.NewValidation("core: validation failed", goerrors.FieldError{
		Field:   field,
		Message: message,
	}).
		WithCode(http.StatusBadRequest).
		WithTextCode(ServiceErrorBadInput)
}
