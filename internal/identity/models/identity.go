package models

import (
	"time"

	"idgov/pkg/domain"
	pstrings "idgov/pkg/platform/strings"
)

// Free-text values the engine interprets. Comparisons are case-insensitive
// and ignore surrounding whitespace.
const (
	StatusActive   = "Ativo"
	StatusInactive = "Inativo"
	ProfileAdmin   = "Admin"
)

// Identity is one account record inside a partition.
//
// Invariants:
//   - (SourceSystem, IdentityID) is unique within the store
//   - IdentityID is the cross-system join key and matches exactly
//   - Records are replaced wholesale per partition, never edited in place
type Identity struct {
	SourceSystem domain.SystemName `json:"sourceSystem"`
	IdentityID   string            `json:"identityId"`
	Name         string            `json:"name"`
	Email        string            `json:"email"`
	CPF          string            `json:"cpf"`
	Status       string            `json:"status"`
	UserType     string            `json:"userType"`
	Profile      string            `json:"profile,omitempty"`
	Extra        ExtraData         `json:"extra"`
}

// ExtraData carries the attributes that do not have a dedicated column.
// LastLogin is nil when the source value was absent or unparseable.
type ExtraData struct {
	LastLogin  *time.Time        `json:"lastLogin,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

func (i Identity) IsActive() bool {
	return pstrings.EqualFold(i.Status, StatusActive)
}

func (i Identity) IsInactive() bool {
	return pstrings.EqualFold(i.Status, StatusInactive)
}

// IsAdmin reports whether the record carries the privileged Admin profile.
func (i Identity) IsAdmin() bool {
	return pstrings.EqualFold(i.Profile, ProfileAdmin)
}

// IsHR reports whether the record belongs to the authoritative partition.
func (i Identity) IsHR() bool {
	return i.SourceSystem.IsHR()
}

// DedupeByIdentityID keeps the last occurrence of every IdentityID, preserving
// the position of its first appearance, and returns the IDs that repeated.
func DedupeByIdentityID(records []Identity) ([]Identity, []string) {
	index := make(map[string]int, len(records))
	out := make([]Identity, 0, len(records))
	var dupes []string
	for _, rec := range records {
		if pos, ok := index[rec.IdentityID]; ok {
			out[pos] = rec
			dupes = append(dupes, rec.IdentityID)
			continue
		}
		index[rec.IdentityID] = len(out)
		out = append(out, rec)
	}
	return out, dupes
}
