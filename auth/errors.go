package auth

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-poto/core"
)

// authError follows dispatch.dispatchError's shape: each Auth Frontend
// failure mode (§4.5, §7) names its category/status/text code at the call
// site.
func authError(message string, category goerrors.Category, code int, textCode string) *goerrors.Error {
	return goerrors.New(message, category).WithCode(code).WithTextCode(textCode)
}

func errAuthUnavailable() error {
	return authError(
		"auth: principal store is not configured",
		goerrors.CategoryInternal,
		http.StatusInternalServerError,
		core.ServiceErrorInternal,
	)
}

func errStoreFailure(source error) error {
	return goerrors.Wrap(source, goerrors.CategoryExternal, "auth: principal store failed").
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.ServiceErrorExternalFailure)
}

// errInvalidCredentials matches §7's "short text body naming the cause"
// rule, without confirming to the caller whether userID itself exists.
func errInvalidCredentials(userID string) error {
	return authError(
		"Unauthorized. User id or password did not match.",
		goerrors.CategoryAuth,
		http.StatusUnauthorized,
		core.ServiceErrorUnauthorized,
	).WithMetadata(map[string]any{"userId": userID})
}

func errTokenIssuance(source error) error {
	return goerrors.Wrap(source, goerrors.CategoryInternal, "auth: token issuance failed").
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.ServiceErrorInternal)
}

func errAuthRouteNotFound(path string) error {
	return authError("auth: unknown route", goerrors.CategoryNotFound, http.StatusNotFound, core.ServiceErrorNotFound).
		WithMetadata(map[string]any{"path": path})
}

func errAuthMethodNotAllowed(method string) error {
	return authError("auth: method not allowed", goerrors.CategoryBadInput, http.StatusMethodNotAllowed, core.ServiceErrorBadInput).
		WithMetadata(map[string]any{"method": method})
}

func errMalformedLoginBody(source error) error {
	return goerrors.Wrap(source, goerrors.CategoryBadInput, "auth: malformed request body").
		WithCode(http.StatusBadRequest).
		WithTextCode(core.ServiceErrorBadInput)
}
