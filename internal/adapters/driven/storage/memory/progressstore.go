package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/custodia-labs/vivenu-sync/internal/core/domain"
	"github.com/custodia-labs/vivenu-sync/internal/core/ports/driven"
)

// Ensure ProgressStore implements the interface.
var _ driven.ProgressStore = (*ProgressStore)(nil)

// ProgressStore is an in-memory implementation of driven.ProgressStore.
// Documents are stored encoded so callers never share state with the store.
type ProgressStore struct {
	mu    sync.RWMutex
	docs  map[string][]byte
	saves int
}

// NewProgressStore creates a new in-memory progress store.
func NewProgressStore() *ProgressStore {
	return &ProgressStore{
		docs: make(map[string][]byte),
	}
}

// Load returns a copy of the stored progress, or an empty document.
func (s *ProgressStore) Load(_ context.Context, region string) (*domain.SyncProgress, error) {
	s.mu.RLock()
	data, ok := s.docs[domain.NormaliseRegion(region)]
	s.mu.RUnlock()

	if !ok {
		return domain.NewSyncProgress(), nil
	}
	var p domain.SyncProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding progress: %w", err)
	}
	p.Backfill()
	return &p, nil
}

// Save replaces the stored progress for region.
func (s *ProgressStore) Save(_ context.Context, region string, progress *domain.SyncProgress) error {
	if progress == nil {
		return fmt.Errorf("%w: progress is nil", domain.ErrInvalidInput)
	}
	data, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("encoding progress: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[domain.NormaliseRegion(region)] = data
	s.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (s *ProgressStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
