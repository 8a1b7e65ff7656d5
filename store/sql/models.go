// Package sqlstore is the bun-backed reference core.PrincipalStore (§4.5,
// §6), grounded on the teacher's store/sql package: one bun model per
// table, a ModelHandlers adapter per model, and a thin store type wrapping
// a repository.Repository.
package sqlstore

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// principalRecord maps the principals table. Roles are stored as a jsonb
// string array the way the teacher stores RequestedScopes/GrantedScopes on
// credentialRecord.
type principalRecord struct {
	bun.BaseModel `bun:"table:principals,alias:pr"`

	ID             string    `bun:"id,pk"`
	CredentialHash string    `bun:"credential_hash,notnull"`
	Roles          []string  `bun:"roles,type:jsonb,notnull"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func normalizedID(id string) string {
	return strings.TrimSpace(id)
}
