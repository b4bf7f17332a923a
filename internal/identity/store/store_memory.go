package store

import (
	"context"
	"sort"
	"sync"

	"idgov/internal/identity/models"
	"idgov/pkg/domain"
)

// InMemoryStore keeps every partition in process memory. A single RWMutex
// guards both the partitions and the generation, so Snapshot always observes
// a whole import or none of it.
type InMemoryStore struct {
	mu         sync.RWMutex
	partitions map[string]*partition
	generation int64
}

type partition struct {
	name    domain.SystemName
	records []models.Identity
}

// NewInMemory creates an empty in-memory identity store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		partitions: make(map[string]*partition),
	}
}

// ReplaceSystem swaps the whole partition for system and returns the new generation.
// An empty record set removes the partition.
func (s *InMemoryStore) ReplaceSystem(_ context.Context, system domain.SystemName, records []models.Identity) (int64, error) {
	deduped, _ := models.DedupeByIdentityID(records)
	copied := make([]models.Identity, len(deduped))
	for i, rec := range deduped {
		rec.SourceSystem = system
		copied[i] = rec
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	if len(copied) == 0 {
		delete(s.partitions, system.Key())
		return s.generation, nil
	}
	s.partitions[system.Key()] = &partition{name: system, records: copied}
	return s.generation, nil
}

// Snapshot returns every record visible at the current generation.
func (s *InMemoryStore) Snapshot(_ context.Context) (*models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &models.Snapshot{Generation: s.generation}
	for _, key := range s.sortedKeys() {
		p := s.partitions[key]
		if p.name.IsHR() {
			snap.HR = append(snap.HR, p.records...)
			continue
		}
		snap.Targets = append(snap.Targets, p.records...)
	}
	return snap, nil
}

// Generation returns the current store generation.
func (s *InMemoryStore) Generation(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation, nil
}

// ListSystems describes every partition, ordered by case-folded name.
func (s *InMemoryStore) ListSystems(_ context.Context) (*models.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	catalog := &models.Catalog{Generation: s.generation, Systems: []models.SystemSummary{}}
	for _, key := range s.sortedKeys() {
		p := s.partitions[key]
		catalog.Systems = append(catalog.Systems, models.SystemSummary{
			System:        p.name,
			Records:       len(p.records),
			Authoritative: p.name.IsHR(),
		})
	}
	return catalog, nil
}

// Ping always succeeds for the in-memory store.
func (s *InMemoryStore) Ping(context.Context) error {
	return nil
}

func (s *InMemoryStore) sortedKeys() []string {
	keys := make([]string, 0, len(s.partitions))
	for k := range s.partitions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
