// Package audit persists the append-only send history. Destination URLs
// are stored only as SHA-256 hashes so the secret-bearing URL never
// reaches disk.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry is one dispatch attempt. Entries are written once and never
// mutated or deleted by the send flow.
type Entry struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	URLHash        string    `json:"webhook_url_hash"`
	Status         string    `json:"status"`
	StatusCode     *int      `json:"status_code,omitempty"`
	ErrorMessage   *string   `json:"error_message,omitempty"`
	ContentPreview string    `json:"content_preview"`
	Username       string    `json:"username,omitempty"`
	EmbedSnapshot  string    `json:"embed_snapshot,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ListParams filters a history query.
type ListParams struct {
	Limit  int
	Offset int
	Status string // "", "all", or an outcome value
	Search string // matches content preview or display username
}

// Normalize clamps paging values to sane bounds.
func (p *ListParams) Normalize() {
	if p.Limit <= 0 || p.Limit > 200 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Status == "all" {
		p.Status = ""
	}
}

// Service reads and writes send history.
type Service struct {
	db *sql.DB
}

// NewService creates an audit service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Record inserts one entry.
func (s *Service) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO webhook_sends
			(id, user_id, webhook_url_hash, status, status_code, error_message,
			 content_preview, username, embed_snapshot, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.UserID, e.URLHash, e.Status, e.StatusCode, e.ErrorMessage,
		e.ContentPreview, e.Username, nullIfEmpty(e.EmbedSnapshot),
		e.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting send record: %w", err)
	}
	return nil
}

// ListByUser returns a user's send history, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string, p ListParams) ([]Entry, error) {
	p.Normalize()

	query := `
		SELECT id, user_id, webhook_url_hash, status, status_code, error_message,
		       content_preview, username, embed_snapshot, created_at
		FROM webhook_sends
		WHERE user_id = ?`
	args := []any{userID}

	if p.Status != "" {
		query += " AND status = ?"
		args = append(args, p.Status)
	}
	if p.Search != "" {
		query += " AND (content_preview LIKE ? OR username LIKE ?)"
		like := "%" + p.Search + "%"
		args = append(args, like, like)
	}

	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, p.Limit, p.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing send history: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// DayCount is the number of sends on one calendar day (UTC).
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Stats aggregates send history for the admin dashboard.
type Stats struct {
	TotalSends  int            `json:"total_sends"`
	ByStatus    map[string]int `json:"by_status"`
	PerDay      []DayCount     `json:"per_day"`
	ActiveUsers int            `json:"active_users"`
}

// GlobalStats computes aggregate statistics over the trailing window.
func (s *Service) GlobalStats(ctx context.Context, days int) (*Stats, error) {
	if days <= 0 || days > 365 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)

	stats := &Stats{ByStatus: map[string]int{}}

	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM webhook_sends
		WHERE created_at >= ?
		GROUP BY status
	`, since)
	if err != nil {
		return nil, fmt.Errorf("counting sends by status: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		stats.ByStatus[status] = n
		stats.TotalSends += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	dayRows, err := s.db.QueryContext(ctx, `
		SELECT substr(created_at, 1, 10) AS day, COUNT(*)
		FROM webhook_sends
		WHERE created_at >= ?
		GROUP BY day
		ORDER BY day DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("counting sends per day: %w", err)
	}
	defer dayRows.Close() //nolint:errcheck
	for dayRows.Next() {
		var dc DayCount
		if err := dayRows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, fmt.Errorf("scanning day count: %w", err)
		}
		stats.PerDay = append(stats.PerDay, dc)
	}
	if err := dayRows.Err(); err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT user_id) FROM webhook_sends WHERE created_at >= ?
	`, since).Scan(&stats.ActiveUsers)
	if err != nil {
		return nil, fmt.Errorf("counting active users: %w", err)
	}

	return stats, nil
}

func scanEntry(rows *sql.Rows) (*Entry, error) {
	var e Entry
	var statusCode sql.NullInt64
	var errorMessage, embedSnapshot sql.NullString
	var createdAt string

	err := rows.Scan(&e.ID, &e.UserID, &e.URLHash, &e.Status, &statusCode,
		&errorMessage, &e.ContentPreview, &e.Username, &embedSnapshot, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("scanning send record: %w", err)
	}

	if statusCode.Valid {
		code := int(statusCode.Int64)
		e.StatusCode = &code
	}
	if errorMessage.Valid {
		msg := errorMessage.String
		e.ErrorMessage = &msg
	}
	e.EmbedSnapshot = embedSnapshot.String

	t, err := time.Parse(time.RFC3339, strings.TrimSpace(createdAt))
	if err == nil {
		e.CreatedAt = t
	}
	return &e, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
