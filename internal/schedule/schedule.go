// Package schedule manages deferred webhook sends. A schedule is a saved
// message plus a fire time; delivery is best-effort and at-most-once,
// with no retry and no catch-up after downtime.
package schedule

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hookboard/hookboard/internal/dispatch"
	"github.com/hookboard/hookboard/internal/encryption"
	"github.com/hookboard/hookboard/internal/sendconfig"
)

// ErrNotFound is returned when a schedule does not exist or belongs to
// another user.
var ErrNotFound = errors.New("schedule not found")

// Schedule statuses.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusPaused  = "paused"
)

// Repeat types.
const (
	RepeatNone    = "none"
	RepeatDaily   = "daily"
	RepeatWeekly  = "weekly"
	RepeatMonthly = "monthly"
)

// Schedule is one deferred send.
type Schedule struct {
	ID         string          `json:"id"`
	UserID     string          `json:"-"`
	Name       string          `json:"name"`
	WebhookURL string          `json:"webhook_url"`
	Body       sendconfig.Body `json:"body"`
	NextRun    time.Time       `json:"next_run"`
	RepeatType string          `json:"repeat_type"`
	Status     string          `json:"status"`
	LastError  string          `json:"last_error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Service provides schedule CRUD and the due-record query the runner uses.
type Service struct {
	db        *sql.DB
	encryptor *encryption.Encryptor
}

// NewService creates a schedule service.
func NewService(db *sql.DB, encryptor *encryption.Encryptor) *Service {
	return &Service{db: db, encryptor: encryptor}
}

// Create inserts a new pending schedule.
func (s *Service) Create(ctx context.Context, sc *Schedule) error {
	if sc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if sc.WebhookURL == "" {
		return fmt.Errorf("webhook url is required")
	}
	if err := dispatch.ValidateURL(sc.WebhookURL); err != nil {
		return err
	}
	if sc.NextRun.IsZero() {
		return fmt.Errorf("scheduled time is required")
	}
	switch sc.RepeatType {
	case "":
		sc.RepeatType = RepeatNone
	case RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly:
	default:
		return fmt.Errorf("invalid repeat type %q", sc.RepeatType)
	}

	now := time.Now().UTC()
	sc.ID = uuid.New().String()
	sc.Status = StatusPending
	sc.CreatedAt = now
	sc.UpdatedAt = now

	urlEnc, err := s.encryptor.Encrypt(sc.WebhookURL)
	if err != nil {
		return fmt.Errorf("encrypting webhook url: %w", err)
	}
	bodyJSON, err := json.Marshal(sc.Body)
	if err != nil {
		return fmt.Errorf("marshaling schedule body: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scheduled_webhooks
			(id, user_id, name, webhook_url_enc, config, next_run, repeat_type, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sc.ID, sc.UserID, sc.Name, urlEnc, string(bodyJSON),
		sc.NextRun.UTC().Format(time.RFC3339), sc.RepeatType, sc.Status,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting schedule: %w", err)
	}
	return nil
}

// ListByUser returns the user's schedules, soonest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Schedule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, webhook_url_enc, config, next_run, repeat_type, status, last_error, created_at, updated_at
		FROM scheduled_webhooks
		WHERE user_id = ?
		ORDER BY next_run
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing schedules: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	return s.collect(rows)
}

// Due returns pending schedules whose fire time has passed.
func (s *Service) Due(ctx context.Context, now time.Time) ([]Schedule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, webhook_url_enc, config, next_run, repeat_type, status, last_error, created_at, updated_at
		FROM scheduled_webhooks
		WHERE status = ? AND next_run <= ?
		ORDER BY next_run
	`, StatusPending, now.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("querying due schedules: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	return s.collect(rows)
}

// MarkSent records a successful fire. Repeating schedules stay pending
// with next_run advanced; one-shot schedules become sent.
func (s *Service) MarkSent(ctx context.Context, sc *Schedule) error {
	now := time.Now().UTC()

	if sc.RepeatType != RepeatNone {
		next := NextRun(sc.NextRun, sc.RepeatType, now)
		_, err := s.db.ExecContext(ctx, `
			UPDATE scheduled_webhooks
			SET next_run = ?, last_error = NULL, updated_at = ?
			WHERE id = ?
		`, next.Format(time.RFC3339), now.Format(time.RFC3339), sc.ID)
		if err != nil {
			return fmt.Errorf("advancing schedule: %w", err)
		}
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_webhooks
		SET status = ?, last_error = NULL, updated_at = ?
		WHERE id = ?
	`, StatusSent, now.Format(time.RFC3339), sc.ID)
	if err != nil {
		return fmt.Errorf("marking schedule sent: %w", err)
	}
	return nil
}

// MarkFailed records a failed fire. There is no retry: the schedule stops.
func (s *Service) MarkFailed(ctx context.Context, id, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_webhooks
		SET status = ?, last_error = ?, updated_at = ?
		WHERE id = ?
	`, StatusFailed, errMsg, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("marking schedule failed: %w", err)
	}
	return nil
}

// SetPaused pauses or resumes one of the user's schedules. Only pending
// schedules can be paused and only paused ones resumed.
func (s *Service) SetPaused(ctx context.Context, userID, id string, paused bool) error {
	from, to := StatusPending, StatusPaused
	if !paused {
		from, to = StatusPaused, StatusPending
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_webhooks
		SET status = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND status = ?
	`, to, time.Now().UTC().Format(time.RFC3339), id, userID, from)
	if err != nil {
		return fmt.Errorf("updating schedule status: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes one of the user's schedules.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM scheduled_webhooks WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting schedule: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// NextRun advances a fire time past now by whole repeat intervals, so a
// schedule that was due while the process was down fires once, not once
// per missed interval.
func NextRun(last time.Time, repeatType string, now time.Time) time.Time {
	next := last
	for !next.After(now) {
		switch repeatType {
		case RepeatDaily:
			next = next.AddDate(0, 0, 1)
		case RepeatWeekly:
			next = next.AddDate(0, 0, 7)
		case RepeatMonthly:
			next = next.AddDate(0, 1, 0)
		default:
			return next
		}
	}
	return next
}

func (s *Service) collect(rows *sql.Rows) ([]Schedule, error) {
	var schedules []Schedule
	for rows.Next() {
		sc, err := s.scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *sc)
	}
	return schedules, rows.Err()
}

func (s *Service) scanSchedule(rows *sql.Rows) (*Schedule, error) {
	var sc Schedule
	var urlEnc, bodyJSON, nextRun, createdAt, updatedAt string
	var lastError sql.NullString

	err := rows.Scan(&sc.ID, &sc.UserID, &sc.Name, &urlEnc, &bodyJSON, &nextRun,
		&sc.RepeatType, &sc.Status, &lastError, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("scanning schedule: %w", err)
	}

	url, err := s.encryptor.Decrypt(urlEnc)
	if err != nil {
		return nil, fmt.Errorf("decrypting webhook url: %w", err)
	}
	sc.WebhookURL = url

	if err := json.Unmarshal([]byte(bodyJSON), &sc.Body); err != nil {
		return nil, fmt.Errorf("unmarshaling schedule body: %w", err)
	}
	sc.LastError = lastError.String
	sc.NextRun = parseTime(nextRun)
	sc.CreatedAt = parseTime(createdAt)
	sc.UpdatedAt = parseTime(updatedAt)
	return &sc, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
