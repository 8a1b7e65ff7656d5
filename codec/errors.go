package codec

import (
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-poto/core"
)

// Sentinel failure modes named in §4.1. Compare with errors.Is; every
// raised error is a *goerrors.Error wrapping its sentinel and carrying the
// matching text code
// (core.ServiceErrorDepthExceeded and friends) so HTTP framing can branch
// without re-deriving the category.
var (
	ErrDepth        = errors.New("codec: maximum depth exceeded")
	ErrSizeLimit    = errors.New("codec: size limit exceeded")
	ErrNeedsAsync   = errors.New("codec: blob value requires asynchronous encoding")
	ErrMalformedTag = errors.New("codec: malformed tag object")
	ErrBadBase64    = errors.New("codec: invalid base64 payload")
	ErrUnknownTag   = errors.New("codec: unknown tag")
)

func richError(sentinel error, textCode string, metadata map[string]any) error {
	category := goerrors.CategoryBadInput
	code := http.StatusBadRequest
	if textCode == core.ServiceErrorNeedsAsync {
		category = goerrors.CategoryOperation
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

func errDepth(metadata map[string]any) error {
	return richError(ErrDepth, core.ServiceErrorDepthExceeded, metadata)
}

func errSizeLimit(metadata map[string]any) error {
	return richError(ErrSizeLimit, core.ServiceErrorSizeLimit, metadata)
}

func errNeedsAsync(metadata map[string]any) error {
	return richError(ErrNeedsAsync, core.ServiceErrorNeedsAsync, metadata)
}

func errMalformedTag(metadata map[string]any) error {
	return richError(ErrMalformedTag, core.ServiceErrorMalformedTag, metadata)
}

func errBadBase64(metadata map[string]any) error {
	return richError(ErrBadBase64, core.ServiceErrorBadBase64, metadata)
}

func errUnknownTag(metadata map[string]any) error {
	return richError(ErrUnknownTag, core.ServiceErrorUnknownTag, metadata)
}
