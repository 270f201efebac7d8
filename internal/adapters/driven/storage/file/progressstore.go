package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/vivenu-sync/internal/core/domain"
	"github.com/custodia-labs/vivenu-sync/internal/core/ports/driven"
)

// FilePrefix starts every progress file name.
const FilePrefix = "historical_sync_progress_"

// Ensure ProgressStore implements the interface.
var _ driven.ProgressStore = (*ProgressStore)(nil)

// ProgressStore persists progress as one JSON document per region.
type ProgressStore struct {
	mu  sync.Mutex
	dir string
}

// NewProgressStore creates a store writing into dir. If dir is empty the
// current working directory is used.
func NewProgressStore(dir string) (*ProgressStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating progress directory: %w", err)
	}
	return &ProgressStore{dir: dir}, nil
}

// Path returns the progress file for region.
func (s *ProgressStore) Path(region string) string {
	return filepath.Join(s.dir, FilePrefix+domain.NormaliseRegion(region)+".json")
}

// Load reads the progress for region, returning an empty document when none
// was saved yet.
func (s *ProgressStore) Load(_ context.Context, region string) (*domain.SyncProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path(region))
	if errors.Is(err, os.ErrNotExist) {
		return domain.NewSyncProgress(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading progress: %w", err)
	}

	var p domain.SyncProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding progress %s: %w", s.Path(region), err)
	}
	p.Backfill()
	return &p, nil
}

// Save atomically replaces the progress for region.
func (s *ProgressStore) Save(_ context.Context, region string, progress *domain.SyncProgress) error {
	if progress == nil {
		return fmt.Errorf("%w: progress is nil", domain.ErrInvalidInput)
	}
	data, err := json.MarshalIndent(progress, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding progress: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(region)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("writing progress: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("syncing progress: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("closing progress: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		cleanup()
		return fmt.Errorf("chmod progress: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replacing progress: %w", err)
	}
	return nil
}
