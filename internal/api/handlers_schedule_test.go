package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/hookboard/hookboard/internal/schedule"
	"github.com/hookboard/hookboard/internal/user"
)

func TestScheduleLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.addUser(t, "u1", "alice", user.RoleUser, false)

	nextRun := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)
	rec := env.do(t, http.MethodPost, "/api/v1/schedules", token, map[string]any{
		"name":        "weekly report",
		"webhook_url": "https://discord.com/api/webhooks/1/secret",
		"body":        map[string]any{"content": "report time"},
		"next_run":    nextRun,
		"repeat_type": "weekly",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created schedule.Schedule
	decodeJSON(t, rec, &created)
	if created.ID == "" || created.Status != schedule.StatusPending {
		t.Fatalf("created = %+v", created)
	}

	// Pause, then resume.
	rec = env.do(t, http.MethodPost, "/api/v1/schedules/"+created.ID+"/pause", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pause status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodGet, "/api/v1/schedules", token, nil)
	var list []schedule.Schedule
	decodeJSON(t, rec, &list)
	if len(list) != 1 || list[0].Status != schedule.StatusPaused {
		t.Errorf("after pause = %+v", list)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/schedules/"+created.ID+"/resume", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("resume status = %d", rec.Code)
	}

	// Resuming an already-pending schedule is rejected.
	rec = env.do(t, http.MethodPost, "/api/v1/schedules/"+created.ID+"/resume", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("double resume = %d, want 404", rec.Code)
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/schedules/"+created.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/schedules", token, nil)
	list = nil
	decodeJSON(t, rec, &list)
	if len(list) != 0 {
		t.Errorf("after delete = %d, want 0", len(list))
	}
}

func TestSchedule_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.addUser(t, "u1", "alice", user.RoleUser, false)

	// Missing fire time.
	rec := env.do(t, http.MethodPost, "/api/v1/schedules", token, map[string]any{
		"name":        "no time",
		"webhook_url": "https://discord.com/api/webhooks/1/secret",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	// Unsupported repeat type.
	rec = env.do(t, http.MethodPost, "/api/v1/schedules", token, map[string]any{
		"name":        "hourly",
		"webhook_url": "https://discord.com/api/webhooks/1/secret",
		"next_run":    time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
		"repeat_type": "hourly",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	// Non-Discord destination.
	rec = env.do(t, http.MethodPost, "/api/v1/schedules", token, map[string]any{
		"name":        "wrong host",
		"webhook_url": "https://example.com/hook",
		"next_run":    time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSchedule_ScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.addUser(t, "u1", "alice", user.RoleUser, false)
	bobToken := env.addUser(t, "u2", "bob", user.RoleUser, false)

	rec := env.do(t, http.MethodPost, "/api/v1/schedules", aliceToken, map[string]any{
		"name":        "mine",
		"webhook_url": "https://discord.com/api/webhooks/1/secret",
		"next_run":    time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created schedule.Schedule
	decodeJSON(t, rec, &created)

	rec = env.do(t, http.MethodPost, "/api/v1/schedules/"+created.ID+"/pause", bobToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("cross-user pause = %d, want 404", rec.Code)
	}
	rec = env.do(t, http.MethodDelete, "/api/v1/schedules/"+created.ID, bobToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("cross-user delete = %d, want 404", rec.Code)
	}
}
