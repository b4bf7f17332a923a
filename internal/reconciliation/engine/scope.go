package engine

import (
	"idgov/pkg/domain"
	dErrors "idgov/pkg/domain-errors"
)

// Scope selects which target partitions a reconciliation covers: one named
// system, or every target system at once.
type Scope struct {
	global bool
	system domain.SystemName
}

// SingleSystem scopes a run to one target partition.
func SingleSystem(name domain.SystemName) Scope {
	return Scope{system: name}
}

// Global scopes a run to every target partition.
func Global() Scope {
	return Scope{global: true}
}

// ParseScope maps a dashboard path value to a Scope. "Geral" selects the
// global view; the HR partition cannot be reconciled against itself.
func ParseScope(raw string) (Scope, error) {
	name, err := domain.ParseSystemName(raw)
	if err != nil {
		return Scope{}, err
	}
	if name.IsGlobal() {
		return Global(), nil
	}
	if name.IsHR() {
		return Scope{}, dErrors.New(dErrors.CodeBadRequest, "the HR partition is the reference and cannot be reconciled")
	}
	return SingleSystem(name), nil
}

func (s Scope) IsGlobal() bool {
	return s.global
}

// System returns the scoped partition; empty for the global scope.
func (s Scope) System() domain.SystemName {
	return s.system
}

// Includes reports whether a record from system belongs to the scope.
func (s Scope) Includes(system domain.SystemName) bool {
	if system.IsHR() {
		return false
	}
	return s.global || s.system.Equal(system)
}

// Kind is a low-cardinality label for metrics.
func (s Scope) Kind() string {
	if s.global {
		return "global"
	}
	return "system"
}

// Key is the case-folded identity of the scope, stable across spellings.
func (s Scope) Key() string {
	if s.global {
		return domain.GlobalScope.Key()
	}
	return s.system.Key()
}

func (s Scope) String() string {
	if s.global {
		return domain.GlobalScope.String()
	}
	return s.system.String()
}
