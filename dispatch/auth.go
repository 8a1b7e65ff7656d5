package dispatch

import (
	"context"

	"github.com/goliatone/go-poto/core"
)

// Authenticator resolves the Authorization header (possibly empty, for an
// unauthenticated visitor request) to a principal. The Dispatcher depends
// on this interface rather than the auth package directly, mirroring the
// teacher's own Verifier interface in inbound/dispatcher.go — the
// Dispatcher knows nothing about bearer tokens, visitor identifiers, or
// how either is issued.
type Authenticator interface {
	Authenticate(ctx context.Context, authorizationHeader string) (*core.Principal, error)
}

// AuthenticatorFunc adapts a plain function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, authorizationHeader string) (*core.Principal, error)

func (f AuthenticatorFunc) Authenticate(ctx context.Context, authorizationHeader string) (*core.Principal, error) {
	return f(ctx, authorizationHeader)
}
