// Package poto is the module's root package: it wires the four core
// subsystems (Typed Codec, Context Carrier, Session Store, Method
// Dispatcher) and the Auth Frontend into a single runnable server, the
// way the teacher's root-level services.go re-exports core.Service
// behind a small facade instead of making callers reach into internal
// packages themselves.
package poto

import (
	"fmt"
	"net/http"

	"github.com/goliatone/go-poto/auth"
	"github.com/goliatone/go-poto/codec"
	"github.com/goliatone/go-poto/core"
	"github.com/goliatone/go-poto/dispatch"
	"github.com/goliatone/go-poto/identity"
	"github.com/goliatone/go-poto/session"
)

// Config is the teacher's Config = core.Config aliasing idiom: the root
// package re-exports the subsystem type callers configure instead of
// requiring an import of core directly.
type Config = core.Config

// DefaultConfig mirrors services.DefaultConfig.
func DefaultConfig() core.Config {
	return core.DefaultConfig()
}

// Server bundles the Method Dispatcher with the Auth Frontend mounted
// alongside it, the way the teacher's Facade bundles a CommandQueryService
// with its Commands/Queries groupings.
type Server struct {
	Config    core.Config
	Registry  *dispatch.Registry
	Auth      *auth.Service
	Session   session.Store
	Dispatch  *dispatch.Dispatcher
	AuthPages *auth.Handler
}

// NewServer builds a Server from a Config and a principal store. Pass
// identity.NewMemoryPrincipalStore() for an in-process deployment or a
// *sqlstore.PrincipalStore / *sqlstore.CachedPrincipalStore for one backed
// by a database (see store/sql).
func NewServer(cfg core.Config, principals core.PrincipalStore) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if principals == nil {
		return nil, fmt.Errorf("poto: principal store is required")
	}

	authService := auth.NewService(principals, cfg.JWTSecret, 0)

	registry := dispatch.NewRegistry()
	disp := dispatch.NewDispatcher(registry, authService)
	disp.CodecOptions = codec.NewOptions(
		codec.WithMaxDepth(cfg.MaxDepth),
		codec.WithMaxStringLen(cfg.MaxStringLen),
		codec.WithMaxBlobBytes(cfg.MaxBlobBytes),
	)

	store, err := newSessionStore(cfg, disp.CodecOptions)
	if err != nil {
		return nil, err
	}

	return &Server{
		Config:    cfg,
		Registry:  registry,
		Auth:      authService,
		Session:   store,
		Dispatch:  disp,
		AuthPages: auth.NewHandler(authService),
	}, nil
}

func newSessionStore(cfg core.Config, codecOptions codec.Options) (session.Store, error) {
	switch cfg.SessionBackend {
	case core.SessionBackendCookie:
		return session.NewCookieStore(cfg.Secret, cfg.SessionMaxAge(), true, codecOptions)
	default:
		return session.NewMemoryStore(), nil
	}
}

// Register exposes the underlying Registry's RegisterStruct for callers
// wiring in their own handler types, e.g. srv.Register("Counter",
// &CounterHandler{}, nil).
func (s *Server) Register(handlerName string, target any, roles map[string][]string) error {
	return dispatch.RegisterStruct(s.Registry, handlerName, target, roles)
}

// Mux mounts the Dispatcher and the Auth Frontend's login routes on a
// fresh *http.ServeMux, the plain stdlib routing the teacher and the
// wider example pool both reach for.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/login/visitor", s.AuthPages)
	mux.Handle("/login", s.AuthPages)
	mux.Handle("/", s.Dispatch)
	return mux
}

// NewMemoryServer is a convenience constructor for tests and local runs:
// an in-memory principal store, in-memory session backend.
func NewMemoryServer(cfg core.Config) (*Server, error) {
	cfg.SessionBackend = core.SessionBackendMemory
	return NewServer(cfg, identity.NewMemoryPrincipalStore())
}
