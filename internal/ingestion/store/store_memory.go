package store

import (
	"context"
	"sort"
	"sync"

	"idgov/internal/ingestion/models"
	"idgov/pkg/domain"
	"idgov/pkg/platform/sentinel"
)

// InMemoryStore keeps import runs in process memory, newest first on read.
type InMemoryStore struct {
	mu   sync.RWMutex
	runs []models.ImportRun
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Save(_ context.Context, run *models.ImportRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.runs {
		if existing.ID == run.ID {
			return sentinel.ErrConflict
		}
	}
	stored := *run
	stored.Warnings = append([]string(nil), run.Warnings...)
	s.runs = append(s.runs, stored)
	return nil
}

// List returns runs for system, or every run when system is empty, newest
// first and capped at limit when limit > 0.
func (s *InMemoryStore) List(_ context.Context, system domain.SystemName, limit int) ([]models.ImportRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ImportRun, 0, len(s.runs))
	for _, run := range s.runs {
		if system != "" && !run.SourceSystem.Equal(system) {
			continue
		}
		run.Warnings = append([]string(nil), run.Warnings...)
		out = append(out, run)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
