package dispatch

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-poto/core"
)

// dispatchError and dispatchWrapError follow the teacher's
// inboundError/inboundWrapError shape (transport/inbound packages): every
// raised error names its category, HTTP status, and text code explicitly
// at the call site rather than deriving them, since the Dispatcher's
// failure modes (§4.4) are a fixed, small set that doesn't need the
// text-code-to-category derivation codec's richError and session's wrap
// helpers perform.
func dispatchError(message string, category goerrors.Category, code int, textCode string, metadata map[string]any) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func dispatchWrapError(source error, category goerrors.Category, message string, code int, textCode string, metadata map[string]any) error {
	if source == nil {
		return dispatchError(message, category, code, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func errUnknownHandler(handlerName string) error {
	return dispatchError(
		"dispatch: unknown handler",
		goerrors.CategoryNotFound,
		http.StatusNotFound,
		core.ServiceErrorNotFound,
		map[string]any{"handler": handlerName},
	)
}

func errUnknownMethod(handlerName, methodName string) error {
	return dispatchError(
		"dispatch: unknown method",
		goerrors.CategoryNotFound,
		http.StatusNotFound,
		core.ServiceErrorNotFound,
		map[string]any{"handler": handlerName, "method": methodName},
	)
}

func errMalformedArguments(source error, handlerName, methodName string) error {
	return dispatchWrapError(
		source,
		goerrors.CategoryBadInput,
		"dispatch: malformed arguments",
		http.StatusBadRequest,
		core.ServiceErrorBadInput,
		map[string]any{"handler": handlerName, "method": methodName},
	)
}

func errTooFewArguments(handlerName, methodName string, got, want int) error {
	return dispatchError(
		"dispatch: too few arguments",
		goerrors.CategoryBadInput,
		http.StatusBadRequest,
		core.ServiceErrorBadInput,
		map[string]any{"handler": handlerName, "method": methodName, "got": got, "want": want},
	)
}

func errUnauthenticated(handlerName, methodName string, requiredRoles []string) error {
	return dispatchError(
		"dispatch: authentication required",
		goerrors.CategoryAuth,
		http.StatusUnauthorized,
		core.ServiceErrorUnauthorized,
		map[string]any{"handler": handlerName, "method": methodName, "required_roles": requiredRoles},
	)
}

func errForbidden(handlerName, methodName string, requiredRoles []string) error {
	return dispatchError(
		"dispatch: principal lacks required role",
		goerrors.CategoryAuthz,
		http.StatusForbidden,
		core.ServiceErrorForbidden,
		map[string]any{"handler": handlerName, "method": methodName, "required_roles": requiredRoles},
	)
}

func errHandlerFailed(source error, handlerName, methodName string) error {
	return dispatchWrapError(
		source,
		goerrors.CategoryOperation,
		"dispatch: handler failed",
		http.StatusInternalServerError,
		core.ServiceErrorOperationFailed,
		map[string]any{"handler": handlerName, "method": methodName},
	)
}
