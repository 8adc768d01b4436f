package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/hookboard/hookboard/internal/dispatch"
)

// blockList reports whether a schedule's owner is barred from sending.
type blockList interface {
	IsBlocked(ctx context.Context, userID string) (bool, error)
}

// Runner fires due schedules on a fixed tick. Each due schedule gets one
// dispatch attempt; the outcome is recorded and never retried here.
type Runner struct {
	service    *Service
	dispatcher *dispatch.Dispatcher
	blocks     blockList
	logger     *slog.Logger
}

// NewRunner creates a schedule runner.
func NewRunner(service *Service, dispatcher *dispatch.Dispatcher, blocks blockList, logger *slog.Logger) *Runner {
	return &Runner{
		service:    service,
		dispatcher: dispatcher,
		blocks:     blocks,
		logger:     logger.With(slog.String("component", "schedule-runner")),
	}
}

// Start blocks until ctx is canceled, firing due schedules on each tick.
func (r *Runner) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		r.logger.Error("schedule runner not started: non-positive interval", "interval", interval.String())
		return
	}
	r.logger.Info("schedule runner started", "interval", interval.String())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("schedule runner stopped")
			return
		case <-ticker.C:
			r.RunDue(ctx)
		}
	}
}

// RunDue fires every schedule whose time has passed. Dispatch outcomes
// land in the owner's send history exactly as interactive sends do.
func (r *Runner) RunDue(ctx context.Context) {
	due, err := r.service.Due(ctx, time.Now())
	if err != nil {
		r.logger.Error("querying due schedules", "error", err)
		return
	}

	for i := range due {
		if ctx.Err() != nil {
			return
		}
		r.fire(ctx, &due[i])
	}
}

func (r *Runner) fire(ctx context.Context, sc *Schedule) {
	blocked, err := r.blocks.IsBlocked(ctx, sc.UserID)
	if err != nil {
		r.logger.Error("checking owner blocked status", "schedule", sc.ID, "error", err)
		return
	}
	if blocked {
		// A blocked owner's schedules must not deliver. Pausing keeps
		// them out of the due query and resumable after an unblock.
		r.logger.Warn("scheduled send skipped: owner is blocked", "schedule", sc.ID, "user", sc.UserID)
		if pauseErr := r.service.SetPaused(ctx, sc.UserID, sc.ID, true); pauseErr != nil {
			r.logger.Error("pausing blocked owner's schedule", "schedule", sc.ID, "error", pauseErr)
		}
		return
	}

	req := dispatch.Request{
		WebhookURL: sc.WebhookURL,
		Content:    sc.Body.Content,
		Username:   sc.Body.Username,
		AvatarURL:  sc.Body.AvatarURL,
		Embeds:     sc.Body.Embeds,
	}

	result, err := r.dispatcher.Dispatch(ctx, sc.UserID, req)
	if err != nil {
		// Validation failure: the stored schedule can never send.
		r.logger.Warn("scheduled send rejected", "schedule", sc.ID, "error", err)
		if markErr := r.service.MarkFailed(ctx, sc.ID, err.Error()); markErr != nil {
			r.logger.Error("marking schedule failed", "schedule", sc.ID, "error", markErr)
		}
		return
	}

	if result.Success {
		r.logger.Info("scheduled send delivered", "schedule", sc.ID, "name", sc.Name)
		if markErr := r.service.MarkSent(ctx, sc); markErr != nil {
			r.logger.Error("marking schedule sent", "schedule", sc.ID, "error", markErr)
		}
		return
	}

	r.logger.Warn("scheduled send failed", "schedule", sc.ID, "name", sc.Name, "message", result.Message)
	if markErr := r.service.MarkFailed(ctx, sc.ID, result.Message); markErr != nil {
		r.logger.Error("marking schedule failed", "schedule", sc.ID, "error", markErr)
	}
}
