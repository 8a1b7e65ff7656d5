package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-poto/core"
)

const (
	jwtAlgHS256 = "HS256"

	// DefaultTokenTTL is the bearer token expiry §4.5 names when a caller
	// does not override it.
	DefaultTokenTTL = time.Hour
)

type jwtClaims struct {
	UserID    string `json:"userId"`
	ExpiresAt int64  `json:"exp"`
}

// issueToken builds a JWT carrying {userId, exp}, signed HS256 with secret
// (§4.5's token format). ttl <= 0 falls back to DefaultTokenTTL.
func issueToken(userID string, secret string, ttl time.Duration) (string, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", fmt.Errorf("auth: jwt signing secret is required")
	}
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("auth: user id is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	header := map[string]any{"alg": jwtAlgHS256, "typ": "JWT"}
	headerRaw, err := json.Marshal(header)
	if err != nil {
		return "", fmt.Errorf("auth: marshal jwt header: %w", err)
	}
	claimsRaw, err := json.Marshal(jwtClaims{
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl).Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("auth: marshal jwt claims: %w", err)
	}

	signingInput := base64.RawURLEncoding.EncodeToString(headerRaw) + "." +
		base64.RawURLEncoding.EncodeToString(claimsRaw)
	return signingInput + "." + signHS256(secret, signingInput), nil
}

// verifyToken checks signature and expiry and returns the decoded claims as
// a core.BearerClaims (§4.5's bearer verification step).
func verifyToken(token string, secret string) (core.BearerClaims, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return core.BearerClaims{}, fmt.Errorf("auth: jwt signing secret is required")
	}
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 {
		return core.BearerClaims{}, fmt.Errorf("auth: malformed token")
	}
	signingInput := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(signHS256(secret, signingInput)), []byte(parts[2])) {
		return core.BearerClaims{}, fmt.Errorf("auth: signature mismatch")
	}

	claimsRaw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return core.BearerClaims{}, fmt.Errorf("auth: decode claims: %w", err)
	}
	var claims jwtClaims
	if err := json.Unmarshal(claimsRaw, &claims); err != nil {
		return core.BearerClaims{}, fmt.Errorf("auth: unmarshal claims: %w", err)
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return core.BearerClaims{}, fmt.Errorf("auth: token carries no user id")
	}
	expiresAt := time.Unix(claims.ExpiresAt, 0)
	if time.Now().After(expiresAt) {
		return core.BearerClaims{}, fmt.Errorf("auth: token expired")
	}
	return core.BearerClaims{UserID: claims.UserID, ExpiresAt: expiresAt}, nil
}

func signHS256(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
