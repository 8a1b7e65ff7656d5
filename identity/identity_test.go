package identity

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-poto/core"
)

func TestMemoryPrincipalStoreFindAbsentIsNotAnError(t *testing.T) {
	store := NewMemoryPrincipalStore()
	principal, err := store.FindPrincipal(context.Background(), "missing")
	if err != nil {
		t.Fatalf("FindPrincipal: %v", err)
	}
	if principal != nil {
		t.Fatalf("expected no principal, got %+v", principal)
	}
}

func TestMemoryPrincipalStoreAddAndFind(t *testing.T) {
	store := NewMemoryPrincipalStore()
	ctx := context.Background()
	p := core.NewPrincipal("u1", "hash", []string{core.RoleVisitor}, time.Now())

	inserted, err := store.AddPrincipal(ctx, p)
	if err != nil || !inserted {
		t.Fatalf("AddPrincipal: inserted=%v err=%v", inserted, err)
	}

	found, err := store.FindPrincipal(ctx, "u1")
	if err != nil || found == nil {
		t.Fatalf("FindPrincipal after add: %+v, %v", found, err)
	}
	if found.ID() != "u1" || found.CredentialHash() != "hash" {
		t.Fatalf("unexpected principal: %+v", found)
	}
}

func TestMemoryPrincipalStoreAddRejectsDuplicateID(t *testing.T) {
	store := NewMemoryPrincipalStore()
	ctx := context.Background()
	first := core.NewPrincipal("dup", "hash-a", nil, time.Now())
	second := core.NewPrincipal("dup", "hash-b", nil, time.Now())

	inserted, err := store.AddPrincipal(ctx, first)
	if err != nil || !inserted {
		t.Fatalf("first AddPrincipal: inserted=%v err=%v", inserted, err)
	}
	inserted, err = store.AddPrincipal(ctx, second)
	if err != nil {
		t.Fatalf("second AddPrincipal: %v", err)
	}
	if inserted {
		t.Fatalf("expected duplicate id to be rejected")
	}

	found, err := store.FindPrincipal(ctx, "dup")
	if err != nil || found == nil {
		t.Fatalf("FindPrincipal: %+v, %v", found, err)
	}
	if found.CredentialHash() != "hash-a" {
		t.Fatalf("expected original principal to survive, got hash %q", found.CredentialHash())
	}
}

// TestMemoryPrincipalStoreConcurrentAddIsExactlyOnce exercises §4.5's
// atomic-registration requirement directly: many goroutines racing to
// register the same id must see exactly one success.
func TestMemoryPrincipalStoreConcurrentAddIsExactlyOnce(t *testing.T) {
	store := NewMemoryPrincipalStore()
	ctx := context.Background()
	const attempts = 50

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := core.NewPrincipal("race", "hash", nil, time.Now())
			inserted, err := store.AddPrincipal(ctx, p)
			if err != nil {
				t.Errorf("AddPrincipal: %v", err)
				return
			}
			if inserted {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one successful registration, got %d", successes)
	}
}

func TestNewVisitorIDHasPrefix(t *testing.T) {
	id, err := NewVisitorID()
	if err != nil {
		t.Fatalf("NewVisitorID: %v", err)
	}
	if !strings.HasPrefix(id, VisitorIDPrefix) {
		t.Fatalf("expected prefix %q, got %q", VisitorIDPrefix, id)
	}
	other, err := NewVisitorID()
	if err != nil {
		t.Fatalf("NewVisitorID: %v", err)
	}
	if id == other {
		t.Fatalf("expected distinct visitor ids, got %q twice", id)
	}
}

func TestNewRandomPasswordIsDistinctEachCall(t *testing.T) {
	a, err := NewRandomPassword()
	if err != nil {
		t.Fatalf("NewRandomPassword: %v", err)
	}
	b, err := NewRandomPassword()
	if err != nil {
		t.Fatalf("NewRandomPassword: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct passwords, got %q twice", a)
	}
	if a == "" {
		t.Fatalf("expected non-empty password")
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	if _, err := HashPassword("   "); err == nil {
		t.Fatalf("expected error for blank password")
	}
}

func TestVerifyPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword(hash, "correct horse battery staple") {
		t.Fatalf("expected matching password to verify")
	}
	if VerifyPassword(hash, "wrong password") {
		t.Fatalf("expected mismatched password to fail verification")
	}
}

func TestVerifyPasswordRejectsEmptyInputs(t *testing.T) {
	if VerifyPassword("", "anything") {
		t.Fatalf("expected empty hash to fail verification")
	}
	if VerifyPassword("somehash", "") {
		t.Fatalf("expected empty password to fail verification")
	}
}
