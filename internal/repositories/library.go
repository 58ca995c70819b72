// package repositories persists library and session snapshots in SQLite.
//
// The library is stored as one JSON snapshot per slot; the session table
// holds at most one row.
package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/librec/internal/models"
	"github.com/desertthunder/librec/internal/shared"
)

// DefaultSlot is the slot the application reads and writes by default.
const DefaultSlot = "current"

// LibraryRepository stores library snapshots keyed by slot name.
type LibraryRepository struct {
	db *sql.DB
}

// NewLibraryRepository creates a LibraryRepository with the given database connection.
func NewLibraryRepository(db *sql.DB) *LibraryRepository {
	return &LibraryRepository{db: db}
}

// Save upserts the library snapshot for the slot.
func (r *LibraryRepository) Save(slot string, lib *models.Library) error {
	snapshot, err := json.Marshal(lib)
	if err != nil {
		return fmt.Errorf("failed to encode library snapshot: %w", err)
	}

	query := `
		INSERT INTO libraries (id, slot, snapshot)
		VALUES (?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			snapshot = excluded.snapshot,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := r.db.Exec(query, shared.GenerateID(), slot, string(snapshot)); err != nil {
		return fmt.Errorf("failed to save library snapshot: %w", err)
	}
	return nil
}

// Load returns the library snapshot stored in the slot.
func (r *LibraryRepository) Load(slot string) (*models.Library, error) {
	var snapshot string
	err := r.db.QueryRow("SELECT snapshot FROM libraries WHERE slot = ?", slot).Scan(&snapshot)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no library snapshot in slot %q", shared.ErrNotFound, slot)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load library snapshot: %w", err)
	}
	return models.ParseLibrary([]byte(snapshot))
}

// Clear removes the slot's snapshot.
func (r *LibraryRepository) Clear(slot string) error {
	if _, err := r.db.Exec("DELETE FROM libraries WHERE slot = ?", slot); err != nil {
		return fmt.Errorf("failed to clear library snapshot: %w", err)
	}
	return nil
}
