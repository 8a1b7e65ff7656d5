package auth

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"
)

func TestIssueTokenRoundTripsThroughVerifyToken(t *testing.T) {
	token, err := issueToken("user-1", "shared-secret", time.Hour)
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}
	claims, err := verifyToken(token, "shared-secret")
	if err != nil {
		t.Fatalf("verifyToken: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("expected userId user-1, got %q", claims.UserID)
	}
	if !claims.ExpiresAt.After(time.Now()) {
		t.Fatalf("expected expiry in the future, got %v", claims.ExpiresAt)
	}
}

func TestIssueTokenDefaultsZeroTTL(t *testing.T) {
	before := time.Now()
	token, err := issueToken("user-1", "shared-secret", 0)
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}
	claims, err := verifyToken(token, "shared-secret")
	if err != nil {
		t.Fatalf("verifyToken: %v", err)
	}
	if claims.ExpiresAt.Before(before.Add(DefaultTokenTTL - time.Minute)) {
		t.Fatalf("expected expiry near default TTL, got %v", claims.ExpiresAt)
	}
}

func TestIssueTokenRejectsEmptySecretOrUserID(t *testing.T) {
	if _, err := issueToken("user-1", "", time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
	if _, err := issueToken("", "secret", time.Hour); err == nil {
		t.Fatalf("expected error for empty user id")
	}
}

func TestVerifyTokenRejectsTamperedSignature(t *testing.T) {
	token, err := issueToken("user-1", "shared-secret", time.Hour)
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}
	if _, err := verifyToken(token+"x", "shared-secret"); err == nil {
		t.Fatalf("expected tampered token to fail verification")
	}
}

func TestVerifyTokenRejectsExpiredToken(t *testing.T) {
	token := signedTokenWithExpiry(t, "user-1", "shared-secret", time.Now().Add(-time.Minute))
	if _, err := verifyToken(token, "shared-secret"); err == nil {
		t.Fatalf("expected expired token to fail verification")
	}
}

// signedTokenWithExpiry builds a token with an explicit expiry, bypassing
// issueToken's ttl<=0-means-default fallback so expiry edge cases can be
// exercised directly.
func signedTokenWithExpiry(t *testing.T, userID, secret string, expiresAt time.Time) string {
	t.Helper()
	header := map[string]any{"alg": jwtAlgHS256, "typ": "JWT"}
	headerRaw, err := json.Marshal(header)
	if err != nil {
		t.Fatalf("marshal header: %v", err)
	}
	claimsRaw, err := json.Marshal(jwtClaims{UserID: userID, ExpiresAt: expiresAt.Unix()})
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}
	signingInput := base64.RawURLEncoding.EncodeToString(headerRaw) + "." +
		base64.RawURLEncoding.EncodeToString(claimsRaw)
	return signingInput + "." + signHS256(secret, signingInput)
}

func TestVerifyTokenRejectsMalformedToken(t *testing.T) {
	if _, err := verifyToken("not-a-jwt", "shared-secret"); err == nil {
		t.Fatalf("expected malformed token to fail verification")
	}
}
