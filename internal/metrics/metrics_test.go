package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestObserveDispatchExposed(t *testing.T) {
	m := New()
	m.ObserveDispatch("success", 120*time.Millisecond)
	m.ObserveDispatch("success", 80*time.Millisecond)
	m.ObserveDispatch("failure", 50*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, `hookboard_dispatches_total{outcome="success"} 2`) {
		t.Errorf("missing success counter:\n%s", body)
	}
	if !strings.Contains(body, `hookboard_dispatches_total{outcome="failure"} 1`) {
		t.Errorf("missing failure counter:\n%s", body)
	}
	if !strings.Contains(body, "hookboard_dispatch_duration_seconds") {
		t.Errorf("missing duration histogram:\n%s", body)
	}
}
