package models

import "idgov/pkg/domain"

// Snapshot is a consistent read of the whole store: every record visible at
// one Generation, split into the authoritative HR set and the target sets.
type Snapshot struct {
	Generation int64
	HR         []Identity
	Targets    []Identity
}

// TargetsFor returns the target records belonging to system.
func (s *Snapshot) TargetsFor(system domain.SystemName) []Identity {
	var out []Identity
	for _, rec := range s.Targets {
		if rec.SourceSystem.Equal(system) {
			out = append(out, rec)
		}
	}
	return out
}

// SystemSummary describes one partition in the store.
type SystemSummary struct {
	System        domain.SystemName `json:"system"`
	Records       int               `json:"records"`
	Authoritative bool              `json:"authoritative"`
}

// Catalog lists the partitions visible at Generation.
type Catalog struct {
	Generation int64           `json:"generation"`
	Systems    []SystemSummary `json:"systems"`
}
