package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-poto/core"
)

// PrincipalStore is the bun-backed reference core.PrincipalStore
// implementation (§4.5, SPEC_FULL's DOMAIN STACK), grounded directly on the
// teacher's ConnectionStore: a thin wrapper over repository.Repository.
type PrincipalStore struct {
	db   *bun.DB
	repo repository.Repository[*principalRecord]
}

// NewPrincipalStore builds a PrincipalStore over an already-open *bun.DB.
func NewPrincipalStore(db *bun.DB) (*PrincipalStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*principalRecord](db, principalHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid principal repository wiring: %w", err)
		}
	}
	return &PrincipalStore{db: db, repo: repo}, nil
}

func (s *PrincipalStore) FindPrincipal(ctx context.Context, userID string) (*core.Principal, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: principal store is not configured")
	}
	record, err := s.repo.GetByID(ctx, normalizedID(userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	principal := core.NewPrincipal(record.ID, record.CredentialHash, record.Roles, record.CreatedAt)
	return &principal, nil
}

// AddPrincipal inserts principal unless its ID already exists. It issues a
// single Create with no prior lookup; atomicity comes from the table's
// primary key constraint on id: a duplicate Create, concurrent or not,
// fails with a conflict, which this method
// treats as "already registered" rather than an error, satisfying §4.5's
// "exactly once" requirement under concurrent callers.
func (s *PrincipalStore) AddPrincipal(ctx context.Context, principal core.Principal) (bool, error) {
	if s == nil || s.repo == nil {
		return false, fmt.Errorf("sqlstore: principal store is not configured")
	}
	record := &principalRecord{
		ID:             normalizedID(principal.ID()),
		CredentialHash: principal.CredentialHash(),
		Roles:          principal.Roles(),
		CreatedAt:      principal.CreatedAt(),
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	if _, err := s.repo.Create(ctx, record); err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// isUniqueViolation matches the driver-level wording both of this module's
// SQL dialects (lib/pq for postgres, mattn/go-sqlite3 for sqlite) use for a
// primary-key conflict, since bun surfaces the driver error as-is rather
// than a typed conflict error.
func isUniqueViolation(err error) bool {
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}

var _ core.PrincipalStore = (*PrincipalStore)(nil)
