package session

import (
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-poto/core"
)

// ErrNoContext mirrors carrier.ErrNoContext under this package's own
// sentinel so callers can errors.Is against session without importing
// carrier directly (§4.3's get_session/set_session/delete_session).
var ErrNoContext = errors.New("session: no carrier bound to context")

// ErrSizeLimit is this package's size-limit sentinel. No Store operation
// returns it: MemoryStore applies no size ceiling, and CookieStore.SetSession
// reports a string or binary value over the codec limits with the codec's
// own codec.ErrSizeLimit.
var ErrSizeLimit = errors.New("session: record exceeds size limit")

func wrap(sentinel error, textCode string, metadata map[string]any) error {
	category := goerrors.CategoryBadInput
	code := http.StatusBadRequest
	if textCode == core.ServiceErrorNoContext {
		code = http.StatusInternalServerError
	}
	err := goerrors.Wrap(sentinel, category, sentinel.Error()).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func errNoContext() error {
	return wrap(ErrNoContext, core.ServiceErrorNoContext, nil)
}

func errSizeLimit(metadata map[string]any) error {
	return wrap(ErrSizeLimit, core.ServiceErrorSizeLimit, metadata)
}
