package core

import "context"

// PrincipalStore is the capability interface the core consumes from an
// external collaborator (§6): credential verification and principal lookup
// are deliberately out of scope for this module, but the Auth Frontend
// depends on this shape to look up and register principals.
type PrincipalStore interface {
	// FindPrincipal returns the principal for userID, or nil if none exists.
	FindPrincipal(ctx context.Context, userID string) (*Principal, error)
	// AddPrincipal inserts principal if no principal with the same ID
	// exists yet. It reports true when newly inserted and MUST be atomic
	// under concurrent callers (§4.5).
	AddPrincipal(ctx context.Context, principal Principal) (bool, error)
}

// SecretProvider encrypts and decrypts opaque byte payloads under a
// provider-managed key; see security.AppKeySecretProvider for the reference
// implementation. The session cookie backend does not use one: it derives
// its own keys from the configured secret with scrypt.
type SecretProvider interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// MetricsRecorder is an optional observability sink. The core never
// requires one; a nil recorder (or NopMetricsRecorder) is always safe.
type MetricsRecorder interface {
	IncCounter(name string, tags map[string]string, value float64)
	ObserveHistogram(name string, tags map[string]string, value float64)
}
