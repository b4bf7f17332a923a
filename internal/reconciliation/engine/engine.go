// Package engine reconciles target-system identities against the authoritative
// HR feed. It is pure: callers hand it immutable slices and an evaluation
// instant, and every call is safe to run concurrently.
package engine

import (
	"sort"
	"time"

	"idgov/internal/identity/models"
	"idgov/pkg/domain"
)

// DormancyDays is the number of whole days without login an active account may
// reach before it counts as dormant.
const DormancyDays = 90

// Finding is the classification of one in-scope target identity.
type Finding struct {
	Identity models.Identity
	Flags    Flags
	Dormant  bool
	// Privileged is set when an Admin record carries any divergence.
	Privileged bool
}

// Gap is an active HR identity absent from a target system.
type Gap struct {
	System domain.SystemName
	HR     models.Identity
}

// Privileged reports whether the missing HR identity holds the Admin profile.
func (g Gap) Privileged() bool {
	return g.HR.IsAdmin()
}

// Result is the outcome of one reconciliation run.
type Result struct {
	Scope    Scope
	Now      time.Time
	Findings []Finding
	Gaps     []Gap
}

// Count returns how many records raised d. Access-not-granted counts gap
// entries, which in the global scope sums one per missing system.
func (r *Result) Count(d Divergence) int {
	if d == DivergenceAccessNotGranted {
		return len(r.Gaps)
	}
	n := 0
	for _, f := range r.Findings {
		if f.Flags.Has(d) {
			n++
		}
	}
	return n
}

// TotalUniqueDivergent counts distinct divergent target identities plus gap
// entries. The two sets are disjoint: one is keyed by target record, the other
// by an HR identity missing from a system.
func (r *Result) TotalUniqueDivergent() int {
	type recordKey struct{ system, id string }
	seen := make(map[recordKey]struct{})
	for _, f := range r.Findings {
		if f.Flags.Any() {
			seen[recordKey{f.Identity.SourceSystem.Key(), f.Identity.IdentityID}] = struct{}{}
		}
	}
	return len(seen) + len(r.Gaps)
}

// PrivilegedAtRisk returns the sorted, de-duplicated identityIds that are both
// Admin and divergent, from target findings and from gaps alike.
func (r *Result) PrivilegedAtRisk() []string {
	seen := make(map[string]struct{})
	for _, f := range r.Findings {
		if f.Privileged {
			seen[f.Identity.IdentityID] = struct{}{}
		}
	}
	for _, g := range r.Gaps {
		if g.Privileged() {
			seen[g.HR.IdentityID] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Reconcile classifies every in-scope target identity against hr and computes
// coverage gaps per target system. Targets outside scope and any HR-partition
// records in targets are ignored.
func Reconcile(scope Scope, hr, targets []models.Identity, now time.Time) *Result {
	lookup := make(map[string]*models.Identity, len(hr))
	for i := range hr {
		if _, exists := lookup[hr[i].IdentityID]; !exists {
			lookup[hr[i].IdentityID] = &hr[i]
		}
	}

	result := &Result{Scope: scope, Now: now}

	// Partition in first-seen order so gap output is deterministic.
	var order []string
	bySystem := make(map[string][]models.Identity)
	names := make(map[string]domain.SystemName)
	for _, rec := range targets {
		if !scope.Includes(rec.SourceSystem) {
			continue
		}
		key := rec.SourceSystem.Key()
		if _, ok := bySystem[key]; !ok {
			order = append(order, key)
			names[key] = rec.SourceSystem
		}
		bySystem[key] = append(bySystem[key], rec)
		result.Findings = append(result.Findings, classify(rec, lookup, now))
	}

	for _, key := range order {
		result.Gaps = append(result.Gaps, coverageGaps(names[key], hr, bySystem[key])...)
	}
	return result
}

func classify(rec models.Identity, lookup map[string]*models.Identity, now time.Time) Finding {
	f := Finding{Identity: rec, Dormant: isDormant(rec, now)}

	ref, ok := lookup[rec.IdentityID]
	if !ok {
		f.Flags = f.Flags.With(DivergenceNotFound)
	} else {
		if rec.IsActive() && ref.IsInactive() {
			f.Flags = f.Flags.With(DivergenceCritical)
		}
		if cpfDiffers(rec.CPF, ref.CPF) {
			f.Flags = f.Flags.With(DivergenceCPF)
		}
		if textDiffers(rec.Name, ref.Name) {
			f.Flags = f.Flags.With(DivergenceName)
		}
		if textDiffers(rec.Email, ref.Email) {
			f.Flags = f.Flags.With(DivergenceEmail)
		}
	}

	f.Privileged = rec.IsAdmin() && f.Flags.Any()
	return f
}

// isDormant compares whole elapsed days: exactly DormancyDays is not dormant.
func isDormant(rec models.Identity, now time.Time) bool {
	if !rec.IsActive() || rec.Extra.LastLogin == nil {
		return false
	}
	elapsed := now.Sub(*rec.Extra.LastLogin)
	if elapsed < 0 {
		return false
	}
	return int64(elapsed/(24*time.Hour)) > DormancyDays
}

// coverageGaps returns active HR identities with no record in system. A system
// with no records yields no gaps.
func coverageGaps(system domain.SystemName, hr, records []models.Identity) []Gap {
	if len(records) == 0 {
		return nil
	}
	present := make(map[string]struct{}, len(records))
	for _, rec := range records {
		present[rec.IdentityID] = struct{}{}
	}
	var gaps []Gap
	seen := make(map[string]struct{})
	for _, ref := range hr {
		if !ref.IsActive() {
			continue
		}
		if _, ok := present[ref.IdentityID]; ok {
			continue
		}
		if _, dup := seen[ref.IdentityID]; dup {
			continue
		}
		seen[ref.IdentityID] = struct{}{}
		gaps = append(gaps, Gap{System: system, HR: ref})
	}
	return gaps
}
