package sendconfig

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/hookboard/hookboard/internal/database"
	"github.com/hookboard/hookboard/internal/dispatch"
	"github.com/hookboard/hookboard/internal/encryption"
)

func setupTestDB(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	enc, _, err := encryption.New("")
	if err != nil {
		t.Fatal(err)
	}
	return NewService(db, enc), db
}

func insertUser(t *testing.T, db *sql.DB, id string) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO users (id, username, role, created_at) VALUES (?, ?, 'user', ?)
	`, id, "user-"+id, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		t.Fatal(err)
	}
}

func TestCreateAndGet(t *testing.T) {
	svc, db := setupTestDB(t)
	ctx := context.Background()
	insertUser(t, db, "u1")

	c := &Config{
		UserID:     "u1",
		Name:       "deploy alerts",
		WebhookURL: "https://discord.com/api/webhooks/1/secret",
		Body: Body{
			Content:  "deployed",
			Username: "deploy-bot",
			Embeds:   []dispatch.Embed{{Title: "Release", Color: "#00FF00"}},
		},
		IsFavorite: true,
	}
	if err := svc.Create(ctx, c); err != nil {
		t.Fatal(err)
	}
	if c.ID == "" {
		t.Fatal("expected generated ID")
	}

	got, err := svc.GetByID(ctx, "u1", c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.WebhookURL != c.WebhookURL {
		t.Errorf("WebhookURL = %q, want %q", got.WebhookURL, c.WebhookURL)
	}
	if got.Body.Content != "deployed" || len(got.Body.Embeds) != 1 {
		t.Errorf("Body = %+v", got.Body)
	}
	if !got.IsFavorite {
		t.Error("expected favorite flag to survive")
	}

	// The stored URL is not plaintext.
	var stored string
	if err := db.QueryRow("SELECT webhook_url_enc FROM webhook_configs WHERE id = ?", c.ID).Scan(&stored); err != nil {
		t.Fatal(err)
	}
	if stored == c.WebhookURL {
		t.Error("webhook URL stored in plaintext")
	}
}

func TestCreate_ValidationErrors(t *testing.T) {
	svc, db := setupTestDB(t)
	ctx := context.Background()
	insertUser(t, db, "u1")

	if err := svc.Create(ctx, &Config{UserID: "u1", WebhookURL: "https://x"}); err == nil {
		t.Error("expected error for missing name")
	}
	if err := svc.Create(ctx, &Config{UserID: "u1", Name: "x"}); err == nil {
		t.Error("expected error for missing URL")
	}
}

func TestGetByID_OtherUser(t *testing.T) {
	svc, db := setupTestDB(t)
	ctx := context.Background()
	insertUser(t, db, "u1")
	insertUser(t, db, "u2")

	c := &Config{UserID: "u1", Name: "mine", WebhookURL: "https://discord.com/api/webhooks/1/a"}
	if err := svc.Create(ctx, c); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.GetByID(ctx, "u2", c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListByUser_FavoritesFirst(t *testing.T) {
	svc, db := setupTestDB(t)
	ctx := context.Background()
	insertUser(t, db, "u1")

	plain := &Config{UserID: "u1", Name: "plain", WebhookURL: "https://discord.com/api/webhooks/1/a"}
	if err := svc.Create(ctx, plain); err != nil {
		t.Fatal(err)
	}
	fav := &Config{UserID: "u1", Name: "fav", WebhookURL: "https://discord.com/api/webhooks/1/b", IsFavorite: true}
	if err := svc.Create(ctx, fav); err != nil {
		t.Fatal(err)
	}

	configs, err := svc.ListByUser(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(configs) != 2 {
		t.Fatalf("configs = %d, want 2", len(configs))
	}
	if configs[0].Name != "fav" {
		t.Errorf("first = %q, want fav", configs[0].Name)
	}
}

func TestUpdate(t *testing.T) {
	svc, db := setupTestDB(t)
	ctx := context.Background()
	insertUser(t, db, "u1")

	c := &Config{UserID: "u1", Name: "before", WebhookURL: "https://discord.com/api/webhooks/1/a"}
	if err := svc.Create(ctx, c); err != nil {
		t.Fatal(err)
	}

	c.Name = "after"
	c.Body.Content = "updated"
	if err := svc.Update(ctx, c); err != nil {
		t.Fatal(err)
	}

	got, err := svc.GetByID(ctx, "u1", c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "after" || got.Body.Content != "updated" {
		t.Errorf("got %+v", got)
	}

	// Updating someone else's config reports not found.
	c.UserID = "other"
	if err := svc.Update(ctx, c); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	svc, db := setupTestDB(t)
	ctx := context.Background()
	insertUser(t, db, "u1")

	c := &Config{UserID: "u1", Name: "doomed", WebhookURL: "https://discord.com/api/webhooks/1/a"}
	if err := svc.Create(ctx, c); err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, "u1", c.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetByID(ctx, "u1", c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, "u1", c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}
