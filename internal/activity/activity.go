// Package activity keeps a per-user log of account actions. Writes are
// best-effort: handlers log failures and move on.
package activity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Actions recorded by handlers.
const (
	ActionLogin        = "login"
	ActionLogout       = "logout"
	ActionSendBlocked  = "send_blocked"
	ActionConfigSaved  = "config_saved"
	ActionScheduled    = "schedule_created"
	ActionUserUpdated  = "user_updated"
	ActionPasswordSet  = "password_set"
	ActionConfigRemove = "config_deleted"
)

// Record is one logged action.
type Record struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	IPAddress   string    `json:"ip_address,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Service reads and writes the activity log.
type Service struct {
	db *sql.DB
}

// NewService creates an activity service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Log inserts one record.
func (s *Service) Log(ctx context.Context, r Record) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_logs (id, user_id, action, description, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.UserID, r.Action, r.Description, r.IPAddress, r.UserAgent,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting activity record: %w", err)
	}
	return nil
}

// ListByUser returns a user's recent activity, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]Record, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, action, description, ip_address, user_agent, created_at
		FROM activity_logs
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var records []Record
	for rows.Next() {
		var r Record
		var createdAt string
		if err := rows.Scan(&r.ID, &r.UserID, &r.Action, &r.Description, &r.IPAddress, &r.UserAgent, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning activity record: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			r.CreatedAt = t
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
