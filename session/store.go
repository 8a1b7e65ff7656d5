package session

import (
	"context"
	"time"

	"github.com/goliatone/go-poto/carrier"
	"github.com/goliatone/go-poto/core"
)

// Store is the Session Store contract (§4.3's operations table). Every
// operation except cleanup_older_than takes the principal identifier from
// the Context Carrier rather than an explicit argument.
type Store interface {
	GetSession(ctx context.Context) (*core.SessionRecord, error)
	SetSession(ctx context.Context, record core.SessionRecord) error
	DeleteSession(ctx context.Context) error
	GetValue(ctx context.Context, key string) ([]byte, bool, error)
	SetValue(ctx context.Context, key string, value []byte) error
	CleanupOlderThan(ctx context.Context, age time.Duration) (int, error)

	// Stats reports enumeration/global stats where the backend supports it.
	// The cookie backend always returns the zero value: it cannot enumerate
	// principals by construction (§4.3).
	Stats(ctx context.Context) (core.SessionStats, error)
}

// principalID resolves the carrier's bound principal into the identifier
// the store keys records by, returning ErrNoContext if no carrier is bound
// and core.RoleVisitor-style anonymous requests simply carry no principal
// (GetSession on such a request always reports absent, never an error).
func principalID(ctx context.Context) (string, bool, error) {
	principal, err := carrier.Principal(ctx)
	if err != nil {
		return "", false, errNoContext()
	}
	if principal == nil {
		return "", false, nil
	}
	return principal.ID(), true, nil
}
