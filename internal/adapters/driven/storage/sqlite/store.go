package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/vivenu-sync/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/vivenu-sync/internal/core/domain"
	"github.com/custodia-labs/vivenu-sync/internal/core/ports/driven"
)

// Store is a SQLite database holding sync progress.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.vivenu-sync/data/progress.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".vivenu-sync", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "progress.db")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ProgressStore returns a ProgressStore interface backed by this store.
func (s *Store) ProgressStore() driven.ProgressStore {
	return &progressStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_progress.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Progress Store ====================

// progressStore implements driven.ProgressStore.
type progressStore struct {
	store *Store
}

var _ driven.ProgressStore = (*progressStore)(nil)

// Load returns the stored progress for region, or an empty document.
func (s *progressStore) Load(ctx context.Context, region string) (*domain.SyncProgress, error) {
	var document string
	err := s.store.db.QueryRowContext(ctx,
		"SELECT document FROM sync_progress WHERE region = ?",
		domain.NormaliseRegion(region),
	).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewSyncProgress(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying progress: %w", err)
	}

	var p domain.SyncProgress
	if err := json.Unmarshal([]byte(document), &p); err != nil {
		return nil, fmt.Errorf("unmarshalling progress: %w", err)
	}
	p.Backfill()
	return &p, nil
}

// Save replaces the stored progress for region in one statement.
func (s *progressStore) Save(ctx context.Context, region string, progress *domain.SyncProgress) error {
	if progress == nil {
		return fmt.Errorf("%w: progress is nil", domain.ErrInvalidInput)
	}
	document, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("marshalling progress: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO sync_progress (region, document, tickets_sent, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(region) DO UPDATE SET
			document = excluded.document,
			tickets_sent = excluded.tickets_sent,
			updated_at = excluded.updated_at
	`, domain.NormaliseRegion(region), string(document), progress.TicketsSent)
	if err != nil {
		return fmt.Errorf("saving progress: %w", err)
	}
	return nil
}
