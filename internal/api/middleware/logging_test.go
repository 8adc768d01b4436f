package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestScrubQuery(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "limit=10&offset=0", "limit=10&offset=0"},
		{"token", "token=abc123", "token=REDACTED"},
		{"oauth params", "code=xyz&state=abc", "code=REDACTED&state=REDACTED"},
		{"webhook url", "webhookUrl=https%3A%2F%2Fdiscord.com", "webhookUrl=REDACTED"},
		{"mixed", "limit=5&password=hunter2", "limit=5&password=REDACTED"},
		{"bare key", "flag&limit=1", "flag&limit=1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scrubQuery(tt.in); got != tt.want {
				t.Errorf("scrubQuery(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLogging_RecordsStatusAndScrubs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/history?search=x&token=supersecret", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	out := buf.String()
	if !strings.Contains(out, `"status":418`) {
		t.Errorf("log missing status: %s", out)
	}
	if strings.Contains(out, "supersecret") {
		t.Errorf("log leaks secret: %s", out)
	}
	if !strings.Contains(out, "token=REDACTED") {
		t.Errorf("log missing redaction: %s", out)
	}
}
