package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/hookboard/hookboard/internal/user"
)

const discordAPIBase = "https://discord.com/api"

// discordEndpoint is Discord's OAuth2 endpoint. Discord does not publish
// OIDC discovery metadata, so the endpoints are fixed here.
var discordEndpoint = oauth2.Endpoint{
	AuthURL:  "https://discord.com/oauth2/authorize",
	TokenURL: discordAPIBase + "/oauth2/token",
}

// DiscordAuth handles the Discord OAuth2 login flow and account linking.
type DiscordAuth struct {
	oauth   *oauth2.Config
	db      *sql.DB
	apiBase string
}

// NewDiscordAuth creates the OAuth2 flow handler. Returns nil if clientID
// is empty (OAuth login disabled).
func NewDiscordAuth(db *sql.DB, clientID, clientSecret, redirectURL string) *DiscordAuth {
	if clientID == "" {
		return nil
	}
	return &DiscordAuth{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"identify"},
			Endpoint:     discordEndpoint,
		},
		db:      db,
		apiBase: discordAPIBase,
	}
}

// AuthURL returns the Discord consent page URL for the given state.
func (d *DiscordAuth) AuthURL(state string) string {
	return d.oauth.AuthCodeURL(state)
}

// DiscordProfile is the subset of Discord's /users/@me response we use.
type DiscordProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// Exchange trades an authorization code for the Discord user profile.
func (d *DiscordAuth) Exchange(ctx context.Context, code string) (*DiscordProfile, error) {
	token, err := d.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.apiBase+"/users/@me", nil)
	if err != nil {
		return nil, fmt.Errorf("creating profile request: %w", err)
	}
	token.SetAuthHeader(req)

	resp, err := d.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching profile: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile request returned %d", resp.StatusCode)
	}

	var profile DiscordProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decoding profile: %w", err)
	}
	if profile.ID == "" {
		return nil, errors.New("profile missing id")
	}
	return &profile, nil
}

// UpsertUser creates or refreshes the local account linked to a Discord
// profile and returns its user ID. New accounts get the user role.
func (d *DiscordAuth) UpsertUser(ctx context.Context, profile *DiscordProfile) (string, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	var id string
	err := d.db.QueryRowContext(ctx, `SELECT id FROM users WHERE discord_id = ?`, profile.ID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		id = uuid.New().String()
		_, err = d.db.ExecContext(ctx, `
			INSERT INTO users (id, username, discord_id, avatar, role, created_at, last_login)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, profile.Username, profile.ID, profile.Avatar, user.RoleUser, now, now)
		if err != nil {
			return "", fmt.Errorf("creating discord user: %w", err)
		}
		return id, nil
	}
	if err != nil {
		return "", fmt.Errorf("querying discord user: %w", err)
	}

	_, err = d.db.ExecContext(ctx, `
		UPDATE users SET username = ?, avatar = ?, last_login = ? WHERE id = ?
	`, profile.Username, profile.Avatar, now, id)
	if err != nil {
		return "", fmt.Errorf("refreshing discord user: %w", err)
	}
	return id, nil
}

// setAPIBase overrides the Discord API base URL (for testing).
func (d *DiscordAuth) setAPIBase(base string) {
	d.apiBase = base
	d.oauth.Endpoint.TokenURL = base + "/oauth2/token"
}
