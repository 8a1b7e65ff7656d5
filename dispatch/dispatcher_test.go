package dispatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-poto/codec"
	"github.com/goliatone/go-poto/core"
)

func TestParseMethodName(t *testing.T) {
	cases := []struct {
		name     string
		wantVerb string
		wantPath string
		wantOK   bool
	}{
		{"postIncrement_", "POST", "increment", true},
		{"getProfile_", "GET", "profile", true},
		{"deleteSession_", "DELETE", "session", true},
		{"putConfig_", "PUT", "config", true},
		{"patchRecord_", "PATCH", "record", true},
		{"sync_", "POST", "sync", true},
		{"helperNoUnderscore", "", "", false},
		{"_", "", "", false},
	}
	for _, tc := range cases {
		verb, path, ok := ParseMethodName(tc.name)
		if ok != tc.wantOK || verb != tc.wantVerb || path != tc.wantPath {
			t.Errorf("ParseMethodName(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.name, verb, path, ok, tc.wantVerb, tc.wantPath, tc.wantOK)
		}
	}
}

// counterHandler grounds spec §8 scenario 3.
type counterHandler struct{}

func (counterHandler) PostIncrement_(ctx context.Context, args []any) (any, error) {
	n, ok := args[0].(int64)
	if !ok {
		return nil, errMalformedArguments(nil, "counter", "increment")
	}
	return n + 1, nil
}

func newCounterRegistry(t *testing.T) *Registry {
	t.Helper()
	registry := NewRegistry()
	spec := MethodSpec{
		Verb:    "POST",
		MinArgs: 1,
		Handler: HandlerFunc(counterHandler{}.PostIncrement_),
	}
	if err := registry.Register("counter", "increment", spec); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return registry
}

func TestDispatchCounterIncrementSucceeds(t *testing.T) {
	registry := newCounterRegistry(t)
	d := NewDispatcher(registry, nil)

	req := httptest.NewRequest(http.MethodPost, "/counter/increment", strings.NewReader("[41]"))
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if strings.TrimSpace(rec.Body.String()) != "42" {
		t.Fatalf("expected body 42, got %s", rec.Body.String())
	}
}

func TestDispatchCounterIncrementRejectsMissingArgs(t *testing.T) {
	registry := newCounterRegistry(t)
	d := NewDispatcher(registry, nil)

	req := httptest.NewRequest(http.MethodPost, "/counter/increment", strings.NewReader("[]"))
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

// tickerSequence grounds spec §8 scenario 4: a streaming handler yielding
// {i} for i in 0..count, then a terminal __done frame.
type tickerSequence struct {
	count  int64
	cursor int64
	closed bool
}

func (s *tickerSequence) Next(ctx context.Context) (any, bool, error) {
	if s.cursor >= s.count {
		return nil, false, nil
	}
	obj := codec.NewObject().Set("i", s.cursor)
	s.cursor++
	return obj, true, nil
}

func (s *tickerSequence) Close() error {
	s.closed = true
	return nil
}

// tickerHandler returns a Sequence value; the dispatcher's classify()
// picks it up via the Sequence interface, not any concrete type.
type tickerHandler struct {
	produced *tickerSequence
}

func (h *tickerHandler) PostTick_(ctx context.Context, args []any) (any, error) {
	n, _ := args[0].(int64)
	h.produced = &tickerSequence{count: n}
	return h.produced, nil
}

func TestDispatchTickerStreamsSSEFrames(t *testing.T) {
	handler := &tickerHandler{}
	registry := NewRegistry()
	spec := MethodSpec{
		Verb:    "POST",
		MinArgs: 1,
		Handler: HandlerFunc(handler.PostTick_),
	}
	if err := registry.Register("ticker", "tick", spec); err != nil {
		t.Fatalf("Register: %v", err)
	}
	d := NewDispatcher(registry, nil)

	req := httptest.NewRequest(http.MethodPost, "/ticker/tick", strings.NewReader("[3]"))
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected text/event-stream, got %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{`"i":0`, `"i":1`, `"i":2`, `"__done": true`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected body to contain %q, got %s", want, body)
		}
	}
	if handler.produced == nil || !handler.produced.closed {
		t.Fatal("expected sequence Close to have been called")
	}
}

func TestDispatchUnknownHandlerIs404(t *testing.T) {
	d := NewDispatcher(NewRegistry(), nil)
	req := httptest.NewRequest(http.MethodPost, "/nope/method", strings.NewReader("[]"))
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDispatchAuthorizationRequiresPrincipal(t *testing.T) {
	registry := NewRegistry()
	spec := MethodSpec{
		Verb:          "POST",
		RequiredRoles: []string{"admin"},
		Handler: HandlerFunc(func(ctx context.Context, args []any) (any, error) {
			return "ok", nil
		}),
	}
	if err := registry.Register("admin", "action", spec); err != nil {
		t.Fatalf("Register: %v", err)
	}

	d := NewDispatcher(registry, nil)
	req := httptest.NewRequest(http.MethodPost, "/admin/action", strings.NewReader("[]"))
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDispatchAuthorizationRejectsMissingRole(t *testing.T) {
	registry := NewRegistry()
	spec := MethodSpec{
		Verb:          "POST",
		RequiredRoles: []string{"admin"},
		Handler: HandlerFunc(func(ctx context.Context, args []any) (any, error) {
			return "ok", nil
		}),
	}
	if err := registry.Register("admin", "action", spec); err != nil {
		t.Fatalf("Register: %v", err)
	}

	principal := core.NewPrincipal("p1", "", []string{"member"}, time.Now())
	auth := AuthenticatorFunc(func(ctx context.Context, header string) (*core.Principal, error) {
		return &principal, nil
	})
	d := NewDispatcher(registry, auth)
	req := httptest.NewRequest(http.MethodPost, "/admin/action", strings.NewReader("[]"))
	req.Header.Set("Authorization", "Bearer whatever")
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}
