package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/librec/internal/models"
	"github.com/desertthunder/librec/internal/shared"
)

// SessionRepository stores the single persisted session.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a SessionRepository with the given database connection.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Save replaces the stored session.
func (r *SessionRepository) Save(session models.Session) error {
	query := `
		INSERT INTO sessions (id, token, expires_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			expires_at = excluded.expires_at
	`
	_, err := r.db.Exec(query, session.Token, session.ExpiresAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load returns the stored session, if any.
func (r *SessionRepository) Load() (models.Session, error) {
	var token, expiresAt string
	err := r.db.QueryRow("SELECT token, expires_at FROM sessions WHERE id = 1").Scan(&token, &expiresAt)
	if err == sql.ErrNoRows {
		return models.Session{}, fmt.Errorf("%w: no stored session", shared.ErrNotFound)
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to load session: %w", err)
	}

	expiry, err := time.Parse(time.RFC3339Nano, expiresAt)
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to parse session expiry: %w", err)
	}
	return models.Session{Token: token, ExpiresAt: expiry}, nil
}

// Clear removes the stored session.
func (r *SessionRepository) Clear() error {
	if _, err := r.db.Exec("DELETE FROM sessions WHERE id = 1"); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
