// Package maintenance prunes aged rows and keeps the SQLite file compact.
package maintenance

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Policy controls what Run prunes. A zero days value disables pruning
// for that table.
type Policy struct {
	HistoryDays  int
	ActivityDays int
}

// Result reports what a maintenance run removed.
type Result struct {
	HistoryPruned  int64 `json:"history_pruned"`
	ActivityPruned int64 `json:"activity_pruned"`
}

// Service prunes old send history and activity records and runs
// routine SQLite housekeeping.
type Service struct {
	db     *sql.DB
	policy Policy
	logger *slog.Logger
}

// NewService creates a maintenance service.
func NewService(db *sql.DB, policy Policy, logger *slog.Logger) *Service {
	return &Service{
		db:     db,
		policy: policy,
		logger: logger.With(slog.String("component", "maintenance")),
	}
}

// Run prunes rows past their retention window, then optimizes the
// database file.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	res := &Result{}

	if s.policy.HistoryDays > 0 {
		n, err := s.pruneBefore(ctx, "webhook_sends", s.policy.HistoryDays)
		if err != nil {
			return nil, fmt.Errorf("pruning send history: %w", err)
		}
		res.HistoryPruned = n
	}

	if s.policy.ActivityDays > 0 {
		n, err := s.pruneBefore(ctx, "activity_logs", s.policy.ActivityDays)
		if err != nil {
			return nil, fmt.Errorf("pruning activity log: %w", err)
		}
		res.ActivityPruned = n
	}

	if err := s.optimize(ctx); err != nil {
		return nil, err
	}

	if res.HistoryPruned > 0 || res.ActivityPruned > 0 {
		s.logger.Info("maintenance pruned rows",
			slog.Int64("history", res.HistoryPruned),
			slog.Int64("activity", res.ActivityPruned))
	}
	return res, nil
}

func (s *Service) pruneBefore(ctx context.Context, table string, days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)
	// table is one of two fixed names, never user input.
	r, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE created_at < ?`, table), cutoff)
	if err != nil {
		return 0, err
	}
	return r.RowsAffected()
}

func (s *Service) optimize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("PRAGMA optimize: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("WAL checkpoint: %w", err)
	}
	return nil
}

// StartScheduler runs maintenance on a fixed interval until the context
// is canceled.
func (s *Service) StartScheduler(ctx context.Context, interval time.Duration) {
	s.logger.Info("maintenance scheduler started",
		slog.String("interval", interval.String()))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("maintenance scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.Run(ctx); err != nil {
				s.logger.Error("scheduled maintenance failed", slog.Any("error", err))
			}
		}
	}
}
