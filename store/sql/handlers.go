package sqlstore

import (
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// principalIDNamespace derives a stable repository-internal UUID from an
// arbitrary principal ID string (visitor_<random> or caller-supplied
// userId) the way the teacher's handlers derive GetID from a genuine UUID
// column — principal IDs here are free-form, so GetID/SetID key off a
// deterministic SHA1 UUID rather than parsing the ID itself as a UUID.
var principalIDNamespace = uuid.NameSpaceOID

func principalHandlers() repository.ModelHandlers[*principalRecord] {
	return repository.ModelHandlers[*principalRecord]{
		NewRecord: func() *principalRecord {
			return &principalRecord{}
		},
		GetID: func(record *principalRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return uuid.NewSHA1(principalIDNamespace, []byte(normalizedID(record.ID)))
		},
		SetID: func(record *principalRecord, _ uuid.UUID) {
			// The id column carries the caller-facing principal ID, not the
			// repository's internal UUID; nothing to set here.
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *principalRecord) string {
			if record == nil {
				return ""
			}
			return normalizedID(record.ID)
		},
	}
}
