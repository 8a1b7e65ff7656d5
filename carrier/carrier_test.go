package carrier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-poto/core"
)

func TestFromContextMissing(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("expected no carrier bound to a bare background context")
	}
	if _, err := Principal(context.Background()); !errors.Is(err, ErrNoContext) {
		t.Fatalf("expected ErrNoContext, got %v", err)
	}
}

func TestIsolationBetweenConcurrentRequests(t *testing.T) {
	a := core.NewPrincipal("a", "hash-a", nil, time.Now())
	b := core.NewPrincipal("b", "hash-b", nil, time.Now())

	ctxA, cancelA := NewContext(context.Background(), &a, "req-a")
	defer cancelA()
	ctxB, cancelB := NewContext(context.Background(), &b, "req-b")
	defer cancelB()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = SetHeader(ctxA, "X-Principal", "a")
	}()
	go func() {
		defer wg.Done()
		_ = SetHeader(ctxB, "X-Principal", "b")
	}()
	wg.Wait()

	principalA, err := Principal(ctxA)
	if err != nil || principalA.ID() != "a" {
		t.Fatalf("request A observed wrong principal: %+v, %v", principalA, err)
	}
	principalB, err := Principal(ctxB)
	if err != nil || principalB.ID() != "b" {
		t.Fatalf("request B observed wrong principal: %+v, %v", principalB, err)
	}

	headersA, err := Headers(ctxA)
	if err != nil {
		t.Fatalf("Headers(ctxA): %v", err)
	}
	if headersA.Get("X-Principal") != "a" {
		t.Fatalf("request A's headers leaked request B's write: %v", headersA)
	}
}

func TestContinuityAcrossSpawnedHelper(t *testing.T) {
	principal := core.NewPrincipal("p1", "hash", nil, time.Now())
	ctx, cancel := NewContext(context.Background(), &principal, "req-1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ref, err := RequestRef(ctx)
		if err != nil || ref != "req-1" {
			t.Errorf("helper observed wrong request ref: %q, %v", ref, err)
		}
	}()
	<-done
}

func TestCancellation(t *testing.T) {
	ctx, cancel := NewContext(context.Background(), nil, "req-1")
	if Cancelled(ctx) {
		t.Fatal("expected not cancelled before cancel is called")
	}
	cancel()
	if !Cancelled(ctx) {
		t.Fatal("expected cancelled after cancel is called")
	}
}

func TestBindPrincipalAfterUnauthenticatedStart(t *testing.T) {
	ctx, cancel := NewContext(context.Background(), nil, "req-1")
	defer cancel()

	if p, err := Principal(ctx); err != nil || p != nil {
		t.Fatalf("expected nil principal for unauthenticated start, got %+v, %v", p, err)
	}

	visitor := core.NewPrincipal("visitor_xyz", "", []string{core.RoleVisitor}, time.Now())
	if err := BindPrincipal(ctx, &visitor); err != nil {
		t.Fatalf("BindPrincipal: %v", err)
	}
	p, err := Principal(ctx)
	if err != nil || p.ID() != "visitor_xyz" {
		t.Fatalf("expected bound visitor principal, got %+v, %v", p, err)
	}
}
