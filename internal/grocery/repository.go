package grocery

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository handles persistence of per-session grocery lists.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new grocery list repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Save replaces the stored list of a session.
func (r *Repository) Save(ctx context.Context, sessionID string, list List) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to marshal grocery list: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO grocery_lists (session_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		sessionID, string(data), time.Now().UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return fmt.Errorf("failed to save grocery list for session %s: %w", sessionID, err)
	}
	return nil
}

// Load retrieves the list of a session. A session without a stored list is
// reported as nil, nil.
func (r *Repository) Load(ctx context.Context, sessionID string) (*List, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM grocery_lists WHERE session_id = ?`, sessionID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load grocery list for session %s: %w", sessionID, err)
	}

	var list List
	if err := json.Unmarshal([]byte(data), &list); err != nil {
		return nil, fmt.Errorf("failed to unmarshal grocery list: %w", err)
	}
	return &list, nil
}

// Delete removes the stored list of a session.
func (r *Repository) Delete(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM grocery_lists WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete grocery list for session %s: %w", sessionID, err)
	}
	return nil
}
