package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/warp/concierge-engine/generic"
)

// =============================================================================
// SETTLEMENT SERVICE - Loads inputs, runs the batch, persists the run
// =============================================================================

// Repository is the persistence the settlement service needs.
type Repository interface {
	ListPayoutRules(ctx context.Context) ([]PayoutRule, error)
	ListGiftSends(ctx context.Context, period generic.Period) ([]GiftSend, error)
	SaveSettlementRun(ctx context.Context, run Run) error
}

// Run is a persisted settlement batch for one period.
type Run struct {
	ID        string
	Period    generic.Period
	CreatedAt time.Time
	Result    BatchResult
}

// Service runs settlement batches.
type Service struct {
	Repo Repository
	Now  func() time.Time
}

// NewService creates a settlement service using the wall clock.
func NewService(repo Repository) *Service {
	return &Service{Repo: repo, Now: time.Now}
}

// Run computes and stores the settlement for period.
// Rules are passed to the resolver in the order the repository returns them.
func (s *Service) Run(ctx context.Context, period generic.Period) (*Run, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}

	rules, err := s.Repo.ListPayoutRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load payout rules: %w", err)
	}
	sends, err := s.Repo.ListGiftSends(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("failed to load gift sends: %w", err)
	}

	run := Run{
		ID:        uuid.NewString(),
		Period:    period,
		CreatedAt: s.Now().UTC(),
		Result:    ComputeBatch(rules, sends),
	}

	if err := s.Repo.SaveSettlementRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to save settlement run: %w", err)
	}
	return &run, nil
}

// RunSummary is a settlement run header without its lines.
type RunSummary struct {
	ID             string
	Period         generic.Period
	TotalPayout    generic.Yen
	UnmatchedCount int
	CreatedAt      time.Time
}

// Summary returns the header of a run.
func (r Run) Summary() RunSummary {
	return RunSummary{
		ID:             r.ID,
		Period:         r.Period,
		TotalPayout:    r.Result.TotalPayout(),
		UnmatchedCount: len(r.Result.Unmatched),
		CreatedAt:      r.CreatedAt,
	}
}
