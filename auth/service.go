// Package auth implements the Auth Frontend (§4.5): visitor and password
// login, bearer-token issuance and verification, wired to a
// core.PrincipalStore through the same capability-interface boundary the
// core exposes for session and secret storage.
package auth

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-poto/core"
	"github.com/goliatone/go-poto/dispatch"
	"github.com/goliatone/go-poto/identity"
)

// Service satisfies dispatch.Authenticator directly: the Dispatcher can be
// wired with a *Service with no adapter in between.
var _ dispatch.Authenticator = (*Service)(nil)

const maxVisitorIDCollisionRetries = 5

// Service issues and verifies bearer credentials against a
// core.PrincipalStore (§6's capability interface).
type Service struct {
	Store    core.PrincipalStore
	Secret   string
	TokenTTL time.Duration
}

// NewService builds a Service. secret is the process's jwtSecret
// (core.Config.JWTSecret); ttl <= 0 uses DefaultTokenTTL.
func NewService(store core.PrincipalStore, secret string, ttl time.Duration) *Service {
	return &Service{Store: store, Secret: secret, TokenTTL: ttl}
}

// VisitorLoginResult is the §4.5/§6 {userId, token, password} response
// shape. Password is empty when the caller supplied existing credentials
// (it is only returned once, at creation time).
type VisitorLoginResult struct {
	UserID   string
	Token    string
	Password string
}

// LoginVisitor implements §4.5's visitor-login flow. When visitorID is
// empty, it registers a brand-new visitor principal — atomically, via
// core.PrincipalStore.AddPrincipal — and returns its generated password.
// Otherwise it verifies visitorID/visitorPassword against a stored visitor
// principal and issues a fresh token.
func (s *Service) LoginVisitor(ctx context.Context, visitorID, visitorPassword string) (VisitorLoginResult, error) {
	if s == nil || s.Store == nil {
		return VisitorLoginResult{}, errAuthUnavailable()
	}
	if strings.TrimSpace(visitorID) == "" {
		return s.registerVisitor(ctx)
	}

	principal, err := s.Store.FindPrincipal(ctx, visitorID)
	if err != nil {
		return VisitorLoginResult{}, errStoreFailure(err)
	}
	if principal == nil || !principal.IsVisitor() || !identity.VerifyPassword(principal.CredentialHash(), visitorPassword) {
		return VisitorLoginResult{}, errInvalidCredentials(visitorID)
	}
	token, err := issueToken(principal.ID(), s.Secret, s.TokenTTL)
	if err != nil {
		return VisitorLoginResult{}, errTokenIssuance(err)
	}
	return VisitorLoginResult{UserID: principal.ID(), Token: token}, nil
}

// registerVisitor generates a fresh identifier and password and persists
// the principal. AddPrincipal's atomicity means a collision on the
// generated id (astronomically unlikely, but possible under concurrent
// registration) is detected rather than silently overwriting an existing
// principal; the loop retries with a new identifier instead.
func (s *Service) registerVisitor(ctx context.Context) (VisitorLoginResult, error) {
	for attempt := 0; attempt < maxVisitorIDCollisionRetries; attempt++ {
		visitorID, err := identity.NewVisitorID()
		if err != nil {
			return VisitorLoginResult{}, errTokenIssuance(err)
		}
		password, err := identity.NewRandomPassword()
		if err != nil {
			return VisitorLoginResult{}, errTokenIssuance(err)
		}
		hash, err := identity.HashPassword(password)
		if err != nil {
			return VisitorLoginResult{}, errTokenIssuance(err)
		}

		principal := core.NewPrincipal(visitorID, hash, []string{core.RoleVisitor}, time.Now())
		inserted, err := s.Store.AddPrincipal(ctx, principal)
		if err != nil {
			return VisitorLoginResult{}, errStoreFailure(err)
		}
		if !inserted {
			continue
		}

		token, err := issueToken(visitorID, s.Secret, s.TokenTTL)
		if err != nil {
			return VisitorLoginResult{}, errTokenIssuance(err)
		}
		return VisitorLoginResult{UserID: visitorID, Token: token, Password: password}, nil
	}
	return VisitorLoginResult{}, errStoreFailure(goerrors.New("identifier collisions exhausted retry budget", goerrors.CategoryConflict))
}

// Login implements §6's POST /login: password verification against a
// stored principal's credential hash, returning a fresh bearer token.
func (s *Service) Login(ctx context.Context, userID, password string) (string, error) {
	if s == nil || s.Store == nil {
		return "", errAuthUnavailable()
	}
	principal, err := s.Store.FindPrincipal(ctx, userID)
	if err != nil {
		return "", errStoreFailure(err)
	}
	if principal == nil || !identity.VerifyPassword(principal.CredentialHash(), password) {
		return "", errInvalidCredentials(userID)
	}
	token, err := issueToken(principal.ID(), s.Secret, s.TokenTTL)
	if err != nil {
		return "", errTokenIssuance(err)
	}
	return token, nil
}

// Authenticate implements dispatch.Authenticator: it extracts the bearer
// token, verifies it, and looks up the principal it names. Per §4.5, an
// absent or invalid header leaves the carrier's principal unset rather than
// failing the request outright — that decision belongs to the method's
// required-role check, not to authentication itself.
func (s *Service) Authenticate(ctx context.Context, authorizationHeader string) (*core.Principal, error) {
	if s == nil || s.Store == nil {
		return nil, nil
	}
	token := bearerToken(authorizationHeader)
	if token == "" {
		return nil, nil
	}
	claims, err := verifyToken(token, s.Secret)
	if err != nil {
		return nil, nil
	}
	principal, err := s.Store.FindPrincipal(ctx, claims.UserID)
	if err != nil || principal == nil {
		return nil, nil
	}
	return principal, nil
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
