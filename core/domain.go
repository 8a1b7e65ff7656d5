package core

import (
	"sort"
	"time"
)

// RoleVisitor is the role tag every visitor principal carries (§3).
const RoleVisitor = "visitor"

// Principal is the authenticated identity performing a request. Immutable
// after construction: Roles returns a defensive copy and there are no
// exported setters.
type Principal struct {
	id             string
	credentialHash string
	roles          []string
	createdAt      time.Time
}

// NewPrincipal builds a Principal with a sorted, de-duplicated role set.
func NewPrincipal(id string, credentialHash string, roles []string, createdAt time.Time) Principal {
	return Principal{
		id:             id,
		credentialHash: credentialHash,
		roles:          normalizeRoles(roles),
		createdAt:      createdAt,
	}
}

func (p Principal) ID() string             { return p.id }
func (p Principal) CredentialHash() string { return p.credentialHash }
func (p Principal) CreatedAt() time.Time   { return p.createdAt }

// Roles returns a copy of the principal's role tags; callers cannot mutate
// the principal's internal slice through it.
func (p Principal) Roles() []string {
	out := make([]string, len(p.roles))
	copy(out, p.roles)
	return out
}

// HasRole reports whether the principal carries the given role tag.
func (p Principal) HasRole(role string) bool {
	for _, candidate := range p.roles {
		if candidate == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the principal carries at least one of the
// given role tags. An empty required set is always satisfied (§4.4: a
// method with no required roles is public).
func (p Principal) HasAnyRole(required []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, role := range required {
		if p.HasRole(role) {
			return true
		}
	}
	return false
}

// IsVisitor reports whether this principal was created by anonymous login.
func (p Principal) IsVisitor() bool { return p.HasRole(RoleVisitor) }

func normalizeRoles(roles []string) []string {
	if len(roles) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	sort.Strings(out)
	return out
}

// BearerClaims is the decoded payload of a signed bearer token (§4.5):
// {userId, exp}.
type BearerClaims struct {
	UserID    string
	ExpiresAt time.Time
}

// SessionRecord is the per-principal record the Session Store owns (§3).
// Data holds codec envelopes, one per key, so the session backend never has
// to understand the value shapes it stores.
type SessionRecord struct {
	PrincipalID  string
	CreatedAt    time.Time
	LastActivity time.Time
	Data         map[string][]byte
}

// Clone returns a deep copy so callers can mutate the result without
// corrupting the store's copy (the in-memory backend hands out clones under
// its single store-wide lock; it keeps no per-principal lock).
func (r SessionRecord) Clone() SessionRecord {
	out := SessionRecord{
		PrincipalID:  r.PrincipalID,
		CreatedAt:    r.CreatedAt,
		LastActivity: r.LastActivity,
	}
	if len(r.Data) > 0 {
		out.Data = make(map[string][]byte, len(r.Data))
		for key, value := range r.Data {
			cloned := make([]byte, len(value))
			copy(cloned, value)
			out.Data[key] = cloned
		}
	}
	return out
}

// SessionStats is returned by backends that can enumerate active principals.
// Backends that cannot (the cookie backend, by construction) report the
// zero value: ActiveSessions 0, PrincipalIDs nil.
type SessionStats struct {
	ActiveSessions int
	PrincipalIDs   []string
}
