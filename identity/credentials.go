package identity

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// VisitorIDPrefix tags every anonymous-login identifier (§3's Visitor
// definition, §4.5's "visitor_<random>" generation rule).
const VisitorIDPrefix = "visitor_"

// NewVisitorID returns a fresh visitor_<random> identifier.
func NewVisitorID() (string, error) {
	suffix, err := randomToken(10)
	if err != nil {
		return "", fmt.Errorf("identity: generate visitor id: %w", err)
	}
	return VisitorIDPrefix + suffix, nil
}

// NewRandomPassword returns a random password for an anonymously-created
// visitor principal (§4.5: "returns {userId, token, password}").
func NewRandomPassword() (string, error) {
	password, err := randomToken(20)
	if err != nil {
		return "", fmt.Errorf("identity: generate visitor password: %w", err)
	}
	return password, nil
}

// HashPassword derives a storable credential hash from a plaintext
// password.
func HashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", fmt.Errorf("identity: password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("identity: hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches credentialHash.
func VerifyPassword(credentialHash, password string) bool {
	if credentialHash == "" || password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(credentialHash), []byte(password)) == nil
}

func randomToken(bytesLen int) (string, error) {
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf)), nil
}
