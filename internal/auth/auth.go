// Package auth provides local account authentication and session management.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hookboard/hookboard/internal/user"
)

const sessionDuration = 24 * time.Hour

// ErrInvalidCredentials is returned for unknown users and wrong passwords alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service provides authentication operations.
type Service struct {
	db *sql.DB
}

// NewService creates an auth service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Setup creates the initial admin account if no users exist.
// Returns true if a new account was created.
func (s *Service) Setup(ctx context.Context, username, password string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return false, fmt.Errorf("counting users: %w", err)
	}

	if count > 0 {
		return false, nil
	}

	hash, err := bcrypt.GenerateFromPassword(prehashPassword(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hashing password: %w", err)
	}

	id := uuid.New().String()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, username, string(hash), user.RoleAdmin, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return false, fmt.Errorf("creating admin user: %w", err)
	}

	return true, nil
}

// Login authenticates a local account and returns a session token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	var id string
	var hash sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, password_hash FROM users WHERE username = ?
	`, username).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("querying user: %w", err)
	}
	if !hash.Valid {
		// Discord-only account with no local password.
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash.String), prehashPassword(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.CreateSession(ctx, id)
}

// CreateSession issues a session token for an already-authenticated user.
// Used by both password login and the OAuth callback.
func (s *Service) CreateSession(ctx context.Context, userID string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}

	expiresAt := time.Now().Add(sessionDuration).UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, expires_at)
		VALUES (?, ?, ?)
	`, token, userID, expiresAt)
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}

	return token, nil
}

// ValidateSession checks if a session token is valid and returns the user ID.
func (s *Service) ValidateSession(ctx context.Context, token string) (string, error) {
	var userID, expiresAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, expires_at FROM sessions WHERE id = ?
	`, token).Scan(&userID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errors.New("invalid session")
	}
	if err != nil {
		return "", fmt.Errorf("querying session: %w", err)
	}

	expires, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		return "", fmt.Errorf("parsing expiry: %w", err)
	}

	if time.Now().UTC().After(expires) {
		_ = s.Logout(ctx, token)
		return "", errors.New("session expired")
	}

	return userID, nil
}

// Logout deletes a session.
func (s *Service) Logout(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", token)
	return err
}

// CleanExpiredSessions removes all expired sessions.
func (s *Service) CleanExpiredSessions(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE expires_at < ?
	`, time.Now().UTC().Format(time.RFC3339))
	return err
}

// ResetPassword sets a new password for the named local account and
// invalidates its sessions.
func (s *Service) ResetPassword(ctx context.Context, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword(prehashPassword(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ? WHERE username = ?
	`, string(hash), username)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("no user named %q", username)
	}

	_, err = s.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE user_id = (SELECT id FROM users WHERE username = ?)
	`, username)
	return err
}

// prehashPassword hashes the password with SHA-256 before bcrypt to support
// passwords longer than bcrypt's 72-byte limit. The hex-encoded SHA-256
// digest is 64 bytes, safely within the limit.
func prehashPassword(password string) []byte {
	h := sha256.Sum256([]byte(password))
	return []byte(hex.EncodeToString(h[:]))
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
