package driven

import (
	"context"

	"github.com/custodia-labs/vivenu-sync/internal/core/domain"
)

// ProgressStore persists sync checkpoints, one document per region.
type ProgressStore interface {
	// Load returns the stored progress for region. When nothing is stored it
	// returns an empty document, never domain.ErrNotFound. Sub-structures
	// missing from older documents are back-filled.
	Load(ctx context.Context, region string) (*domain.SyncProgress, error)

	// Save replaces the stored progress for region atomically: after a crash
	// either the previous or the new document is readable, never a mix.
	Save(ctx context.Context, region string, progress *domain.SyncProgress) error
}
