package session

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/scrypt"

	"github.com/goliatone/go-poto/carrier"
	"github.com/goliatone/go-poto/codec"
	"github.com/goliatone/go-poto/core"
)

// CookieName is the fixed session cookie name (§6).
const CookieName = "poto_session"

const (
	scryptN               = 1 << 15
	scryptR               = 8
	scryptP               = 1
	scryptKeyLen          = 32
	encryptionSaltLiteral = "encryption-salt"
	signingSaltLiteral    = "signing-salt"
)

// CookieStore is the signed-cookie Session Store backend (§4.3). The
// record never lives server-side: it's encoded via the Typed Codec,
// sealed with AES-256-GCM, wrapped with an outer HMAC-SHA256 signature,
// and round-tripped through the Context Carrier's request/response
// cookie pair.
type CookieStore struct {
	encryptionKey []byte
	signingKey    []byte
	maxAge        time.Duration
	secure        bool
	codecOptions  codec.Options
	now           func() time.Time
}

// NewCookieStore derives the encryption and signing keys from secret via
// scrypt with the fixed salts the external cookie format requires (§4.3):
// isolating the two keys means a flaw in one primitive (AEAD vs MAC)
// cannot compromise the other.
func NewCookieStore(secret string, maxAge time.Duration, secure bool, codecOptions codec.Options) (*CookieStore, error) {
	encKey, err := scrypt.Key([]byte(secret), []byte(encryptionSaltLiteral), scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, err
	}
	signKey, err := scrypt.Key([]byte(secret), []byte(signingSaltLiteral), scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, err
	}
	return &CookieStore{
		encryptionKey: encKey,
		signingKey:    signKey,
		maxAge:        maxAge,
		secure:        secure,
		codecOptions:  codecOptions,
		now:           time.Now,
	}, nil
}

func (s *CookieStore) GetSession(ctx context.Context) (*core.SessionRecord, error) {
	id, ok, err := principalID(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	raw, present, err := carrier.RequestCookie(ctx, CookieName)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	record, ok := s.open(raw)
	if !ok {
		return nil, nil
	}
	if record.PrincipalID != id {
		// A cookie whose carried principal doesn't match the carrier's
		// principal is a session-fixation attempt; reject silently.
		return nil, nil
	}
	if s.maxAge > 0 && s.now().Sub(record.CreatedAt) > s.maxAge {
		return nil, nil
	}
	cloned := record.Clone()
	return &cloned, nil
}

func (s *CookieStore) SetSession(ctx context.Context, record core.SessionRecord) error {
	id, ok, err := principalID(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errNoContext()
	}
	record.PrincipalID = id
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now()
	}
	record.LastActivity = s.now()

	sealed, err := s.seal(record)
	if err != nil {
		return err
	}
	return carrier.AddHeader(ctx, "Set-Cookie", s.cookie(sealed, s.maxAge).String())
}

func (s *CookieStore) DeleteSession(ctx context.Context) error {
	if _, ok, err := principalID(ctx); err != nil {
		return err
	} else if !ok {
		return errNoContext()
	}
	return carrier.AddHeader(ctx, "Set-Cookie", s.cookie("", -1*time.Second).String())
}

func (s *CookieStore) GetValue(ctx context.Context, key string) ([]byte, bool, error) {
	record, err := s.GetSession(ctx)
	if err != nil {
		return nil, false, err
	}
	if record == nil {
		return nil, false, nil
	}
	value, ok := record.Data[key]
	return value, ok, nil
}

// SetValue reads the current cookie-borne record, mutates it, and writes
// a replacement Set-Cookie header. There is no cross-request atomicity
// here: the contract is that the last response written wins (§4.3).
func (s *CookieStore) SetValue(ctx context.Context, key string, value []byte) error {
	record, err := s.GetSession(ctx)
	if err != nil {
		return err
	}
	if record == nil {
		record = &core.SessionRecord{}
	}
	if record.Data == nil {
		record.Data = map[string][]byte{}
	}
	record.Data[key] = value
	return s.SetSession(ctx, *record)
}

// CleanupOlderThan is not supported on the cookie backend by construction
// (§4.3): there is no server-side record to sweep.
func (s *CookieStore) CleanupOlderThan(ctx context.Context, age time.Duration) (int, error) {
	return 0, nil
}

// Stats is not supported on the cookie backend by construction (§4.3).
func (s *CookieStore) Stats(ctx context.Context) (core.SessionStats, error) {
	return core.SessionStats{}, nil
}

func (s *CookieStore) cookie(value string, maxAge time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   s.secure,
	}
	if maxAge < 0 {
		c.MaxAge = -1
	} else {
		c.MaxAge = int(maxAge.Seconds())
	}
	return c
}

// seal encodes record via the Typed Codec, encrypts it with AES-256-GCM,
// and signs iv||tag||ciphertext with HMAC-SHA256, returning the external
// "signature:iv:tag:ciphertext" cookie value (§4.3).
func (s *CookieStore) seal(record core.SessionRecord) (string, error) {
	plaintext, err := codec.Encode(recordToCodecValue(record), s.codecOptions)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	iv := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nil, iv, plaintext, nil)
	tagStart := len(sealed) - gcm.Overhead()
	ciphertext, tag := sealed[:tagStart], sealed[tagStart:]

	signature := s.sign(iv, tag, ciphertext)

	return strings.Join([]string{
		base64.StdEncoding.EncodeToString(signature),
		base64.StdEncoding.EncodeToString(iv),
		base64.StdEncoding.EncodeToString(tag),
		base64.StdEncoding.EncodeToString(ciphertext),
	}, ":"), nil
}

// open verifies and decrypts a cookie value. Any integrity failure
// (malformed framing, signature mismatch, decryption failure, or a
// malformed inner envelope) is reported as "no session" rather than an
// error, per §4.3's "rejected silently (treat as absent)" rule.
func (s *CookieStore) open(value string) (core.SessionRecord, bool) {
	parts := strings.Split(value, ":")
	if len(parts) != 4 {
		return core.SessionRecord{}, false
	}
	signature, err1 := base64.StdEncoding.DecodeString(parts[0])
	iv, err2 := base64.StdEncoding.DecodeString(parts[1])
	tag, err3 := base64.StdEncoding.DecodeString(parts[2])
	ciphertext, err4 := base64.StdEncoding.DecodeString(parts[3])
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return core.SessionRecord{}, false
	}

	if !hmac.Equal(signature, s.sign(iv, tag, ciphertext)) {
		return core.SessionRecord{}, false
	}

	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return core.SessionRecord{}, false
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return core.SessionRecord{}, false
	}
	sealed := append(append([]byte{}, ciphertext...), tag...)
	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return core.SessionRecord{}, false
	}

	decoded, err := codec.Decode(plaintext, s.codecOptions)
	if err != nil {
		return core.SessionRecord{}, false
	}
	record, ok := codecValueToRecord(decoded)
	if !ok {
		return core.SessionRecord{}, false
	}
	return record, true
}

func (s *CookieStore) sign(iv, tag, ciphertext []byte) []byte {
	mac := hmac.New(sha256.New, s.signingKey)
	mac.Write(iv)
	mac.Write(tag)
	mac.Write(ciphertext)
	return mac.Sum(nil)
}

func recordToCodecValue(record core.SessionRecord) *codec.Object {
	obj := codec.NewObject()
	obj.Set("principalId", record.PrincipalID)
	obj.Set("createdAt", record.CreatedAt)
	obj.Set("lastActivity", record.LastActivity)
	data := codec.NewObject()
	for key, value := range record.Data {
		data.Set(key, value)
	}
	obj.Set("data", data)
	return obj
}

func codecValueToRecord(value any) (core.SessionRecord, bool) {
	obj, ok := value.(*codec.Object)
	if !ok {
		return core.SessionRecord{}, false
	}
	record := core.SessionRecord{}
	if v, ok := obj.Get("principalId"); ok {
		record.PrincipalID, _ = v.(string)
	}
	if v, ok := obj.Get("createdAt"); ok {
		if dv, ok := v.(codec.DateValue); ok && dv.Valid {
			record.CreatedAt = dv.Time
		}
	}
	if v, ok := obj.Get("lastActivity"); ok {
		if dv, ok := v.(codec.DateValue); ok && dv.Valid {
			record.LastActivity = dv.Time
		}
	}
	if v, ok := obj.Get("data"); ok {
		if dataObj, ok := v.(*codec.Object); ok {
			record.Data = map[string][]byte{}
			for _, key := range dataObj.Keys {
				raw, _ := dataObj.Values[key]
				switch rv := raw.(type) {
				case codec.ArrayBuffer:
					record.Data[key] = rv.Data
				case []byte:
					record.Data[key] = rv
				}
			}
		}
	}
	return record, true
}

var _ Store = (*CookieStore)(nil)
