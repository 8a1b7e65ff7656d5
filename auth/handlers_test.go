package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-poto/core"
	"github.com/goliatone/go-poto/identity"
)

func newTestHandler() *Handler {
	return NewHandler(NewService(identity.NewMemoryPrincipalStore(), "test-secret", time.Hour))
}

func TestServeLoginVisitorRegistersOnEmptyBody(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/login/visitor", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body visitorLoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.UserID == "" || body.Token == "" || body.Password == "" {
		t.Fatalf("expected userId/token/password populated, got %+v", body)
	}
}

func TestServeLoginVisitorRejectsWrongPassword(t *testing.T) {
	h := newTestHandler()

	registerReq := httptest.NewRequest(http.MethodPost, "/login/visitor", strings.NewReader("{}"))
	registerRec := httptest.NewRecorder()
	h.ServeHTTP(registerRec, registerReq)
	var registered visitorLoginResponse
	if err := json.Unmarshal(registerRec.Body.Bytes(), &registered); err != nil {
		t.Fatalf("decode register response: %v", err)
	}

	badBody, err := json.Marshal(visitorLoginRequest{VisitorID: registered.UserID, VisitorPassword: "wrong"})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/login/visitor", strings.NewReader(string(badBody)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestServeLoginRejectsGet(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestServeLoginSucceedsForSeededPrincipal(t *testing.T) {
	h := newTestHandler()

	hash, err := identity.HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	principal := core.NewPrincipal("alice", hash, []string{"user"}, time.Now())
	if inserted, err := h.Service.Store.AddPrincipal(context.Background(), principal); err != nil || !inserted {
		t.Fatalf("seed principal: inserted=%v err=%v", inserted, err)
	}

	reqBody, err := json.Marshal(loginRequest{UserID: "alice", Password: "s3cret"})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(string(reqBody)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Token == "" {
		t.Fatalf("expected a token")
	}
}

func TestServeHTTPUnknownPathIsNotFound(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/login/somewhere-else", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}
