package telegram

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

// Chat states.
const (
	StateIdle       = "idle"
	StateAwaitPaste = "await_paste"
	StateAwaitPhoto = "await_photo"
	StateAwaitURL   = "await_url"
)

// ChatState is what the bot expects next from a user.
type ChatState struct {
	UserID      string
	State       string
	ContextData ChatContext
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// ChatContext holds structured data stored in the context_data JSON field.
type ChatContext struct {
	Date     string `json:"date,omitempty"`
	MealType string `json:"meal_type,omitempty"`
}

// ChatStateRepository provides access to chat state persistence operations.
type ChatStateRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewChatStateRepository creates a new ChatStateRepository instance.
func NewChatStateRepository(db *sql.DB) *ChatStateRepository {
	return &ChatStateRepository{db: db, now: time.Now}
}

// Set stores the state of a user, replacing the previous one.
func (r *ChatStateRepository) Set(ctx context.Context, userID, state string, data ChatContext, ttl time.Duration) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal chat context: %w", err)
	}
	now := r.now().UTC()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO chat_sessions (user_id, state, context_data, expires_at, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET state = excluded.state, context_data = excluded.context_data,
			expires_at = excluded.expires_at, created_at = excluded.created_at`,
		userID, state, string(jsonData), now.Add(ttl).Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to save chat state: %w", err)
	}
	return nil
}

// GetActive retrieves the non-expired state of a user, or nil.
func (r *ChatStateRepository) GetActive(ctx context.Context, userID string) (*ChatState, error) {
	var (
		cs                   ChatState
		data                 string
		expiresAt, createdAt any
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, state, context_data, expires_at, created_at FROM chat_sessions
		WHERE user_id = ? AND expires_at > ?`,
		userID, r.now().UTC().Format(timeLayout)).Scan(&cs.UserID, &cs.State, &data, &expiresAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get chat state: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &cs.ContextData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chat context: %w", err)
	}
	cs.ExpiresAt = scanTime(expiresAt)
	cs.CreatedAt = scanTime(createdAt)
	return &cs, nil
}

// scanTime reads a DATETIME column, which the driver may hand back either
// parsed or as stored text.
func scanTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		parsed, _ := time.Parse(timeLayout, t)
		return parsed
	case []byte:
		parsed, _ := time.Parse(timeLayout, string(t))
		return parsed
	}
	return time.Time{}
}

// Delete removes the state of a user.
func (r *ChatStateRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete chat state: %w", err)
	}
	return nil
}

// CleanupExpired removes all expired states.
func (r *ChatStateRepository) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE expires_at <= ?`, r.now().UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to clean up chat states: %w", err)
	}
	return res.RowsAffected()
}
