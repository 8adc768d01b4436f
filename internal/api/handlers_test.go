package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/hookboard/hookboard/internal/activity"
	"github.com/hookboard/hookboard/internal/audit"
	"github.com/hookboard/hookboard/internal/auth"
	"github.com/hookboard/hookboard/internal/database"
	"github.com/hookboard/hookboard/internal/dispatch"
	"github.com/hookboard/hookboard/internal/encryption"
	"github.com/hookboard/hookboard/internal/schedule"
	"github.com/hookboard/hookboard/internal/sendconfig"
	"github.com/hookboard/hookboard/internal/user"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

type testEnv struct {
	router  *Router
	handler http.Handler
	db      *sql.DB
	auth    *auth.Service

	// providerStatus and providerBody control the stubbed Discord response.
	providerStatus int
	providerBody   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	enc, _, err := encryption.New("")
	if err != nil {
		t.Fatalf("creating encryptor: %v", err)
	}

	env := &testEnv{db: db, providerStatus: http.StatusNoContent}

	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: env.providerStatus,
			Body:       io.NopCloser(strings.NewReader(env.providerBody)),
			Header:     make(http.Header),
			Request:    r,
		}, nil
	})}

	authService := auth.NewService(db)
	auditService := audit.NewService(db)

	env.auth = authService
	env.router = NewRouter(RouterDeps{
		AuthService:     authService,
		UserService:     user.NewService(db, "999"),
		Dispatcher:      dispatch.NewDispatcherWithHTTPClient(auditService, nil, client, logger),
		AuditService:    auditService,
		ConfigService:   sendconfig.NewService(db, enc),
		ScheduleService: schedule.NewService(db, enc),
		ActivityService: activity.NewService(db),
		Logger:          logger,
	})
	env.handler = env.router.Handler()
	return env
}

// addUser inserts an account directly and returns a live session token.
func (e *testEnv) addUser(t *testing.T, id, username, role string, blocked bool) string {
	t.Helper()
	b := 0
	if blocked {
		b = 1
	}
	_, err := e.db.Exec(`
		INSERT INTO users (id, username, role, blocked, created_at) VALUES (?, ?, ?, ?, ?)
	`, id, username, role, b, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		t.Fatal(err)
	}
	token, err := e.auth.CreateSession(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "session", Value: token})
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	decodeJSON(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestSetupAndLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/setup", "", map[string]string{
		"username": "admin",
		"password": "hunter2hunter2",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("setup status = %d: %s", rec.Code, rec.Body.String())
	}

	// Setup is one-shot.
	rec = env.do(t, http.MethodPost, "/api/v1/auth/setup", "", map[string]string{
		"username": "intruder",
		"password": "password123",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("second setup status = %d, want 409", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "admin",
		"password": "hunter2hunter2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}

	var token string
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session" {
			token = c.Value
		}
	}
	if token == "" {
		t.Fatal("expected session cookie")
	}

	rec = env.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d", rec.Code)
	}
	var me user.User
	decodeJSON(t, rec, &me)
	if me.Username != "admin" || !me.IsAdmin() {
		t.Errorf("me = %+v", me)
	}
}

func TestSetup_ShortPassword(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/setup", "", map[string]string{
		"username": "admin",
		"password": "short",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "u1", "alice", user.RoleUser, false)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	token := env.addUser(t, "u1", "alice", user.RoleUser, false)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("me after logout = %d, want 401", rec.Code)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/webhooks/send"},
		{http.MethodGet, "/api/v1/webhooks/history"},
		{http.MethodGet, "/api/v1/configs"},
		{http.MethodGet, "/api/v1/schedules"},
		{http.MethodGet, "/api/v1/activity"},
		{http.MethodGet, "/api/v1/admin/users"},
	}
	for _, p := range paths {
		rec := env.do(t, p.method, p.path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s = %d, want 401", p.method, p.path, rec.Code)
		}
	}
}
