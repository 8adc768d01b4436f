package dispatch

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hookboard/hookboard/internal/audit"
)

const (
	// webhookURLPrefix is the only destination shape accepted; anything
	// else is rejected before a network call is made.
	webhookURLPrefix = "https://discord.com/api/webhooks/"

	requestTimeout = 10 * time.Second

	// maxErrorBody bounds how much of a provider error response is kept.
	maxErrorBody = 200

	// maxContentPreview bounds the message text stored in the audit log.
	maxContentPreview = 256
)

// Validation errors. These surface to the caller verbatim and are
// returned before any outbound request or audit write.
var (
	ErrInvalidURL   = errors.New("Invalid Discord Webhook URL format")
	ErrEmptyPayload = errors.New("Webhook URL and content are required")
)

// auditLog records one entry per dispatch attempt.
type auditLog interface {
	Record(ctx context.Context, e audit.Entry) error
}

// Observer receives dispatch outcome metrics.
type Observer interface {
	ObserveDispatch(outcome string, duration time.Duration)
}

// Dispatcher performs a single-attempt send of a composed message to a
// Discord webhook. There is no retry, no queue, and no shared state
// between dispatches; concurrent calls are fully independent.
type Dispatcher struct {
	auditLog   auditLog
	httpClient *http.Client
	observer   Observer
	logger     *slog.Logger

	// urlPrefix is overridden in tests to point at a local server.
	urlPrefix string
}

// NewDispatcher creates a dispatcher writing to the given audit log.
// observer may be nil.
func NewDispatcher(auditLog auditLog, observer Observer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		auditLog:   auditLog,
		httpClient: &http.Client{Timeout: requestTimeout},
		observer:   observer,
		logger:     logger.With(slog.String("component", "dispatcher")),
		urlPrefix:  webhookURLPrefix,
	}
}

// NewDispatcherWithHTTPClient creates a dispatcher with a custom HTTP
// client (for testing).
func NewDispatcherWithHTTPClient(auditLog auditLog, observer Observer, httpClient *http.Client, logger *slog.Logger) *Dispatcher {
	d := NewDispatcher(auditLog, observer, logger)
	d.httpClient = httpClient
	return d
}

// ValidateURL rejects destinations without the Discord webhook shape.
// Storage layers call it so a bad URL fails at save time rather than
// at fire time.
func ValidateURL(url string) error {
	if !strings.HasPrefix(url, webhookURLPrefix) {
		return ErrInvalidURL
	}
	return nil
}

// Validate checks the request shape: destination must match the Discord
// webhook prefix, and content is required unless an embed is present.
func (d *Dispatcher) Validate(req Request) error {
	if req.WebhookURL == "" || (req.Content == "" && len(req.Embeds) == 0) {
		return ErrEmptyPayload
	}
	if !strings.HasPrefix(req.WebhookURL, d.urlPrefix) {
		return ErrInvalidURL
	}
	return nil
}

// Dispatch validates req, posts it to the destination once, classifies
// the outcome, and writes exactly one audit entry for the attempt. A
// non-nil error means validation failed and nothing was sent or logged;
// provider rejections and transport failures are reported through the
// Result, not the error.
func (d *Dispatcher) Dispatch(ctx context.Context, callerID string, req Request) (*Result, error) {
	if err := d.Validate(req); err != nil {
		return nil, err
	}

	body, err := buildPayload(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := d.send(ctx, req.WebhookURL, body)

	if d.observer != nil {
		d.observer.ObserveDispatch(result.Outcome, time.Since(start))
	}

	// The audit write is mandatory on every path but its own failure must
	// not mask the dispatch outcome already determined.
	if err := d.auditLog.Record(ctx, d.buildEntry(callerID, req, result)); err != nil {
		d.logger.Error("recording send attempt", "user", callerID, "error", err)
	}

	return result, nil
}

// send issues the single POST and classifies the response.
func (d *Dispatcher) send(ctx context.Context, url string, body []byte) *Result {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &Result{
			Outcome: OutcomeError,
			Message: fmt.Sprintf("Failed to send webhook: %v", err),
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "Hookboard/1.0")

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		d.logger.Warn("webhook transport failure", "error", err)
		return &Result{
			Outcome: OutcomeError,
			Message: fmt.Sprintf("Failed to send webhook: %v", err),
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return &Result{
			Success:    true,
			Outcome:    OutcomeSuccess,
			StatusCode: resp.StatusCode,
			Message:    "Webhook sent successfully",
		}
	}

	detail := readErrorBody(resp.Body)
	return &Result{
		Outcome:    OutcomeFailure,
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("Discord API Error (%d): %s", resp.StatusCode, detail),
	}
}

// buildEntry maps an attempt to its audit record. The destination URL is
// stored only as a SHA-256 hash.
func (d *Dispatcher) buildEntry(callerID string, req Request, result *Result) audit.Entry {
	e := audit.Entry{
		UserID:         callerID,
		URLHash:        HashURL(req.WebhookURL),
		Status:         result.Outcome,
		ContentPreview: truncate(req.Content, maxContentPreview),
		Username:       req.Username,
	}
	if result.StatusCode != 0 {
		code := result.StatusCode
		e.StatusCode = &code
	}
	if result.Outcome != OutcomeSuccess {
		msg := result.Message
		e.ErrorMessage = &msg
	}
	if len(req.Embeds) > 0 {
		if snapshot, err := json.Marshal(req.Embeds); err == nil {
			e.EmbedSnapshot = string(snapshot)
		}
	}
	return e
}

// HashURL returns the hex SHA-256 of a destination URL.
func HashURL(url string) string {
	h := sha256.Sum256([]byte(url))
	return hex.EncodeToString(h[:])
}

func readErrorBody(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return ""
	}
	return string(b)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
