// Package user manages user accounts, roles, and blocked status.
package user

import "time"

// Roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an account. Local accounts have a password hash;
// Discord-linked accounts have a Discord ID. An account may have both.
type User struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	DiscordID string     `json:"discord_id,omitempty"`
	Avatar    string     `json:"avatar,omitempty"`
	Role      string     `json:"role"`
	Blocked   bool       `json:"blocked"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
