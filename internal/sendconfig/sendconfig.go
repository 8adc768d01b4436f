// Package sendconfig manages saved webhook configurations. The
// destination URL is encrypted at rest; the message body is stored as a
// JSON blob alongside it.
package sendconfig

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
)

// ErrNotFound is returned when a config does not exist or belongs to
// another user.
var ErrNotFound = errors.New("config not found")

// Body is the reusable message portion of a saved configuration.
type Body struct {
	Content   string           `json:"content,omitempty"`
	Username  string           `json:"username,omitempty"`
	AvatarURL string           `json:"avatar_url,omitempty"`
	Embeds    []dispatch.Embed `json:"embeds,omitempty"`
}

// Config is a named, per-user webhook configuration.
type Config struct {
	ID         string    `json:"id"`
	UserID     string    `json:"-"`
	Name       string    `json:"name"`
	WebhookURL string    `json:"webhook_url"`
	Body       Body      `json:"body"`
	IsFavorite bool      `json:"is_favorite"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Service provides saved-configuration CRUD scoped to the owning user.
type Service struct {
	db        *sql.DB
	encryptor *encryption.Encryptor
}

// NewService creates a sendconfig service.
func NewService(db *sql.DB, encryptor *encryption.Encryptor) *Service {
	return &Service{db: db, encryptor: encryptor}
}

// Create inserts a new configuration for the user.
func (s *Service) Create(ctx context.Context, c *Config) error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.WebhookURL == "" {
		return fmt.Errorf("webhook url is required")
	}

	now := time.Now().UTC()
	c.ID = uuid.New().String()
	c.CreatedAt = now
	c.UpdatedAt = now

	urlEnc, err := s.encryptor.Encrypt(c.WebhookURL)
	if err != nil {
		return fmt.Errorf("encrypting webhook url: %w", err)
	}
	bodyJSON, err := json.Marshal(c.Body)
	if err != nil {
		return fmt.Errorf("marshaling config body: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO webhook_configs (id, user_id, name, webhook_url_enc, config, is_favorite, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.UserID, c.Name, urlEnc, string(bodyJSON), boolToInt(c.IsFavorite),
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting config: %w", err)
	}
	return nil
}

// GetByID returns one of the user's configurations.
func (s *Service) GetByID(ctx context.Context, userID, id string) (*Config, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, webhook_url_enc, config, is_favorite, created_at, updated_at
		FROM webhook_configs WHERE id = ? AND user_id = ?
	`, id, userID)
	return s.scanConfig(row)
}

// ListByUser returns the user's configurations, favorites first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Config, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, webhook_url_enc, config, is_favorite, created_at, updated_at
		FROM webhook_configs
		WHERE user_id = ?
		ORDER BY is_favorite DESC, created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing configs: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var configs []Config
	for rows.Next() {
		c, err := s.scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *c)
	}
	return configs, rows.Err()
}

// Update modifies an existing configuration owned by the user.
func (s *Service) Update(ctx context.Context, c *Config) error {
	c.UpdatedAt = time.Now().UTC()

	urlEnc, err := s.encryptor.Encrypt(c.WebhookURL)
	if err != nil {
		return fmt.Errorf("encrypting webhook url: %w", err)
	}
	bodyJSON, err := json.Marshal(c.Body)
	if err != nil {
		return fmt.Errorf("marshaling config body: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE webhook_configs
		SET name = ?, webhook_url_enc = ?, config = ?, is_favorite = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, c.Name, urlEnc, string(bodyJSON), boolToInt(c.IsFavorite),
		c.UpdatedAt.Format(time.RFC3339), c.ID, c.UserID)
	if err != nil {
		return fmt.Errorf("updating config: %w", err)
	}

	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes one of the user's configurations.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM webhook_configs WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting config: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// scanner interface for both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func (s *Service) scanConfig(sc scanner) (*Config, error) {
	var c Config
	var urlEnc, bodyJSON, createdAt, updatedAt string
	var favorite int

	err := sc.Scan(&c.ID, &c.UserID, &c.Name, &urlEnc, &bodyJSON, &favorite, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning config: %w", err)
	}

	url, err := s.encryptor.Decrypt(urlEnc)
	if err != nil {
		return nil, fmt.Errorf("decrypting webhook url: %w", err)
	}
	c.WebhookURL = url

	if err := json.Unmarshal([]byte(bodyJSON), &c.Body); err != nil {
		return nil, fmt.Errorf("unmarshaling config body: %w", err)
	}
	c.IsFavorite = favorite != 0
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
