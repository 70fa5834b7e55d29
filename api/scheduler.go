/*
scheduler.go - Automated monthly settlement scheduler

PURPOSE:
  Runs the payout settlement for the previous JST calendar month on a cron
  schedule, so cast payouts are ready without an operator pressing a button.

DESIGN:
  - robfig/cron in the Asia/Tokyo zone; the default spec "0 4 1 * *" fires
    at 04:00 JST on the first of each month
  - A period that already has a run is skipped, so restarts and manual
    runs do not double-settle
  - Panics inside a job are recovered and logged by the cron chain

CONFIGURATION:
  - SETTLEMENT_SCHEDULE: cron spec (5 fields)
  - SETTLEMENT_ENABLED: whether the scheduler is started

USAGE:
  scheduler, err := NewSettlementScheduler(handler, "0 4 1 * *", logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RunSettlement endpoint (manual settlement)
  - settlement/service.go: Service.Run
*/
package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
	"github.com/warp/concierge-engine/generic"
	"github.com/warp/concierge-engine/settlement"
)

// SettlementScheduler settles the previous month on a schedule.
type SettlementScheduler struct {
	Handler *Handler
	Timeout time.Duration

	cron   *cron.Cron
	logger *slog.Logger
}

// NewSettlementScheduler registers the settlement job under spec.
func NewSettlementScheduler(h *Handler, spec string, logger *slog.Logger) (*SettlementScheduler, error) {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(
		cron.WithLocation(generic.Tokyo),
		cron.WithChain(cron.Recover(cronLogger)),
	)

	s := &SettlementScheduler{
		Handler: h,
		Timeout: 5 * time.Minute,
		cron:    c,
		logger:  logger,
	}

	if _, err := c.AddFunc(spec, s.runJob); err != nil {
		return nil, fmt.Errorf("invalid settlement schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins the scheduler.
func (s *SettlementScheduler) Start() {
	s.cron.Start()
	s.logger.Info("settlement scheduler started", "entries", len(s.cron.Entries()))
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *SettlementScheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("settlement scheduler stopped")
}

func (s *SettlementScheduler) runJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()

	if _, err := s.SettlePreviousMonth(ctx); err != nil {
		s.logger.Error("scheduled settlement failed", "error", err)
	}
}

// SettlePreviousMonth runs the settlement for the month before now, unless
// one already exists. It returns nil when the period was skipped.
func (s *SettlementScheduler) SettlePreviousMonth(ctx context.Context) (*settlement.Run, error) {
	period := generic.PreviousMonth(s.Handler.Now())

	runs, err := s.Handler.Store.ListSettlementRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlement runs: %w", err)
	}
	if lo.ContainsBy(runs, func(r settlement.RunSummary) bool { return r.Period == period }) {
		s.logger.Info("settlement already exists, skipping", "period", period.String())
		return nil, nil
	}

	run, err := s.Handler.Settlement.Run(ctx, period)
	if err != nil {
		return nil, err
	}
	s.Handler.logRun("scheduled settlement completed", run)
	return run, nil
}
