package carrier

import (
	"context"
	"errors"
	"net/http"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-poto/core"
)

// ErrNoContext is returned by any carrier-dependent operation invoked
// outside a bound scope (§4.3's get_session/set_session/delete_session).
var ErrNoContext = errors.New("carrier: no carrier bound to context")

type contextKey struct{}

// Carrier is the {principal, request_ref, response_headers} triple bound
// to a request's task lineage. The zero value is not useful; build one
// with NewContext.
type Carrier struct {
	requestRef string

	mu             sync.Mutex
	principal      *core.Principal
	headers        http.Header
	requestCookies map[string]string
}

// NewContext enters a scope for req, returning a child of parent carrying
// the bound triple and a cancel function the caller must invoke when the
// request is fully written, to release the binding and any cancellation
// listeners (§4.2 invariant 4). principal may be nil for an unauthenticated
// visitor request classified as such by the Dispatcher.
func NewContext(parent context.Context, principal *core.Principal, requestRef string) (context.Context, context.CancelFunc) {
	c := &Carrier{
		requestRef: requestRef,
		principal:  principal,
		headers:    http.Header{},
	}
	ctx, cancel := context.WithCancel(parent)
	return context.WithValue(ctx, contextKey{}, c), cancel
}

// FromContext returns the carrier bound to ctx, if any. Every helper
// spawned with ctx (or a descendant of it) observes the same carrier
// instance — this is what gives continuity across yields and spawned
// helpers (§4.2 invariants 2 and 3).
func FromContext(ctx context.Context) (*Carrier, bool) {
	c, ok := ctx.Value(contextKey{}).(*Carrier)
	return c, ok
}

func require(ctx context.Context) (*Carrier, error) {
	c, ok := FromContext(ctx)
	if !ok {
		return nil, noContextError()
	}
	return c, nil
}

func noContextError() error {
	return goerrors.Wrap(ErrNoContext, goerrors.CategoryBadInput, ErrNoContext.Error()).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.ServiceErrorNoContext)
}

// Principal returns the triple's principal, or nil if the request is an
// unauthenticated visitor request. It returns ErrNoContext if ctx carries
// no carrier at all.
func Principal(ctx context.Context) (*core.Principal, error) {
	c, err := require(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.principal, nil
}

// BindPrincipal attaches a principal to the carrier after the fact — used
// by the bearer/visitor auth frontend once a request that started
// unauthenticated resolves to a concrete principal.
func BindPrincipal(ctx context.Context, principal *core.Principal) error {
	c, err := require(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.principal = principal
	return nil
}

// RequestRef returns the opaque request identifier the Dispatcher assigned
// when it entered the scope.
func RequestRef(ctx context.Context) (string, error) {
	c, err := require(ctx)
	if err != nil {
		return "", err
	}
	return c.requestRef, nil
}

// SetHeader sets a back-channel response header (§4.4's back-channel
// headers) on the carrier shared by every descendant of this request.
// Only headers set before the Dispatcher reads them (see Headers) reach the
// response.
func SetHeader(ctx context.Context, key, value string) error {
	c, err := require(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers.Set(key, value)
	return nil
}

// AddHeader appends a back-channel response header instead of replacing it.
func AddHeader(ctx context.Context, key, value string) error {
	c, err := require(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers.Add(key, value)
	return nil
}

// Headers returns a snapshot copy of the back-channel headers accumulated
// so far. The Dispatcher calls this once, just before it writes the first
// byte of the response (for a streamed result, before production starts);
// headers set after that call are not sent.
func Headers(ctx context.Context) (http.Header, error) {
	c, err := require(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := make(http.Header, len(c.headers))
	for k, v := range c.headers {
		snapshot[k] = append([]string(nil), v...)
	}
	return snapshot, nil
}

// BindRequestCookies attaches the inbound request's cookie jar to the
// carrier, so the signed-cookie session backend can read the session
// cookie without threading *http.Request through every call (§4.3's
// "cookie header on the request/response pair held by the Context
// Carrier"). The Dispatcher calls this once, right after NewContext,
// before invoking the handler.
func BindRequestCookies(ctx context.Context, cookies map[string]string) error {
	c, err := require(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestCookies = cookies
	return nil
}

// RequestCookie returns the named inbound cookie's value, if present.
func RequestCookie(ctx context.Context, name string) (string, bool, error) {
	c, err := require(ctx)
	if err != nil {
		return "", false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.requestCookies[name]
	return value, ok, nil
}

// Cancelled reports whether the transport has signalled client
// disconnection (§4.2 invariant 5). Because the carrier's context is the
// same context.Context propagated to every descendant, cancellation is
// already observable through the host runtime's own ctx.Done() channel;
// this helper just names the check at call sites that don't otherwise
// need the raw context.
func Cancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
