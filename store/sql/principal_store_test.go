package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/mattn/go-sqlite3"

	"github.com/goliatone/go-poto/core"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:sqlstore-test-%s?mode=memory&cache=shared", t.Name())
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db := bun.NewDB(sqlDB, sqlitedialect.New())
	if _, err := db.NewCreateTable().Model((*principalRecord)(nil)).IfNotExists().Exec(context.Background()); err != nil {
		t.Fatalf("create principals table: %v", err)
	}
	return db
}

func TestPrincipalStoreFindAbsentIsNotAnError(t *testing.T) {
	store, err := NewPrincipalStore(newTestDB(t))
	if err != nil {
		t.Fatalf("NewPrincipalStore: %v", err)
	}

	principal, err := store.FindPrincipal(context.Background(), "missing")
	if err != nil {
		t.Fatalf("FindPrincipal: %v", err)
	}
	if principal != nil {
		t.Fatalf("expected no principal, got %+v", principal)
	}
}

func TestPrincipalStoreAddAndFind(t *testing.T) {
	store, err := NewPrincipalStore(newTestDB(t))
	if err != nil {
		t.Fatalf("NewPrincipalStore: %v", err)
	}
	ctx := context.Background()

	p := core.NewPrincipal("u1", "hash", []string{"user", core.RoleVisitor}, time.Now().UTC())
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
	if !found.HasRole("user") || !found.IsVisitor() {
		t.Fatalf("expected roles to round trip, got %+v", found.Roles())
	}
}

func TestPrincipalStoreAddRejectsDuplicateID(t *testing.T) {
	store, err := NewPrincipalStore(newTestDB(t))
	if err != nil {
		t.Fatalf("NewPrincipalStore: %v", err)
	}
	ctx := context.Background()

	first := core.NewPrincipal("dup", "hash-a", nil, time.Now().UTC())
	second := core.NewPrincipal("dup", "hash-b", nil, time.Now().UTC())

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

func TestIsUniqueViolationMatchesBothDialects(t *testing.T) {
	cases := []struct {
		message string
		want    bool
	}{
		{"UNIQUE constraint failed: principals.id", true},
		{`pq: duplicate key value violates unique constraint "principals_pkey"`, true},
		{"connection refused", false},
	}
	for _, tc := range cases {
		if got := isUniqueViolation(errors.New(tc.message)); got != tc.want {
			t.Errorf("isUniqueViolation(%q) = %v, want %v", tc.message, got, tc.want)
		}
	}
}
