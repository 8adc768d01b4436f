package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no user matches the lookup.
var ErrNotFound = errors.New("user not found")

// ErrProtected is returned when an update targets the super admin account.
var ErrProtected = errors.New("this user's status cannot be modified")

// Service provides user lookups and the authorization checks the rest of
// the application depends on.
type Service struct {
	db *sql.DB

	// superAdminDiscordID marks the account exempt from role and blocked
	// changes. Empty disables the protection.
	superAdminDiscordID string
}

// NewService creates a user service.
func NewService(db *sql.DB, superAdminDiscordID string) *Service {
	return &Service{db: db, superAdminDiscordID: superAdminDiscordID}
}

// GetByID returns a user by ID.
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, discord_id, avatar, role, blocked, created_at, last_login
		FROM users WHERE id = ?
	`, id)
	return scanUser(row)
}

// GetByUsername returns a user by username.
func (s *Service) GetByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, discord_id, avatar, role, blocked, created_at, last_login
		FROM users WHERE username = ?
	`, username)
	return scanUser(row)
}

// GetByDiscordID returns a user by linked Discord account ID.
func (s *Service) GetByDiscordID(ctx context.Context, discordID string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, discord_id, avatar, role, blocked, created_at, last_login
		FROM users WHERE discord_id = ?
	`, discordID)
	return scanUser(row)
}

// List returns all users ordered by creation time.
func (s *Service) List(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password_hash, discord_id, avatar, role, blocked, created_at, last_login
		FROM users ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Count returns the number of user accounts.
func (s *Service) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// IsAdmin reports whether the given user holds the admin role.
func (s *Service) IsAdmin(ctx context.Context, userID string) (bool, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.IsAdmin(), nil
}

// IsBlocked reports whether the given user is blocked from sending.
func (s *Service) IsBlocked(ctx context.Context, userID string) (bool, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.Blocked, nil
}

// SetRole changes a user's role. The super admin cannot be changed.
func (s *Service) SetRole(ctx context.Context, userID, role string) error {
	if role != RoleUser && role != RoleAdmin {
		return fmt.Errorf("invalid role %q", role)
	}
	if err := s.checkProtected(ctx, userID); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `UPDATE users SET role = ? WHERE id = ?`, role, userID)
	if err != nil {
		return fmt.Errorf("updating role: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetBlocked changes a user's blocked status. The super admin cannot be blocked.
func (s *Service) SetBlocked(ctx context.Context, userID string, blocked bool) error {
	if err := s.checkProtected(ctx, userID); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `UPDATE users SET blocked = ? WHERE id = ?`, boolToInt(blocked), userID)
	if err != nil {
		return fmt.Errorf("updating blocked status: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLastLogin records a login timestamp.
func (s *Service) TouchLastLogin(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), userID)
	return err
}

func (s *Service) checkProtected(ctx context.Context, userID string) error {
	if s.superAdminDiscordID == "" {
		return nil
	}
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.DiscordID == s.superAdminDiscordID {
		return ErrProtected
	}
	return nil
}

// scanner interface for both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(sc scanner) (*User, error) {
	var u User
	var passwordHash, discordID, avatar, lastLogin sql.NullString
	var createdAt string
	var blocked int

	err := sc.Scan(&u.ID, &u.Username, &passwordHash, &discordID, &avatar, &u.Role, &blocked, &createdAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	u.DiscordID = discordID.String
	u.Avatar = avatar.String
	u.Blocked = blocked != 0
	u.CreatedAt = parseTime(createdAt)
	if lastLogin.Valid {
		t := parseTime(lastLogin.String)
		u.LastLogin = &t
	}
	return &u, nil
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
