package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/joseph-ayodele/receiptbox/constants"
	"github.com/joseph-ayodele/receiptbox/internal/common"
)

// PlanLookup resolves a user's subscription tier.
type PlanLookup interface {
	PlanFor(ctx context.Context, userID string) (constants.PlanTier, error)
}

// StaticPlans assigns Default to everyone except the listed overrides.
type StaticPlans struct {
	Default   constants.PlanTier
	Overrides map[string]constants.PlanTier
}

func (s StaticPlans) PlanFor(_ context.Context, userID string) (constants.PlanTier, error) {
	if tier, ok := s.Overrides[userID]; ok {
		return tier, nil
	}
	if s.Default == "" {
		return constants.PlanFree, nil
	}
	return s.Default, nil
}

// UsageCounter is the slice of the usage log quotas need.
type UsageCounter interface {
	CountSince(ctx context.Context, userID string, action constants.UsageAction, since time.Time) (int, error)
}

type Service struct {
	lookup PlanLookup
	usage  UsageCounter
	plans  *gocache.Cache
	logger *slog.Logger
}

// NewService caches resolved plans for ttl.
func NewService(lookup PlanLookup, usage UsageCounter, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{
		lookup: lookup,
		usage:  usage,
		plans:  gocache.New(ttl, 2*ttl),
		logger: logger,
	}
}

func (s *Service) PlanFor(ctx context.Context, userID string) (Plan, error) {
	if v, ok := s.plans.Get(userID); ok {
		return v.(Plan), nil
	}
	tier, err := s.lookup.PlanFor(ctx, userID)
	if err != nil {
		return Plan{}, fmt.Errorf("lookup plan: %w", err)
	}
	plan, err := PlanByTier(tier)
	if err != nil {
		return Plan{}, err
	}
	s.plans.SetDefault(userID, plan)
	return plan, nil
}

// Invalidate drops a cached plan, e.g. after an upgrade.
func (s *Service) Invalidate(userID string) {
	s.plans.Delete(userID)
}

// MonthStart is midnight UTC on the first of now's month.
func MonthStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// CheckUploadQuota counts this month's receipt_upload entries against the plan.
func (s *Service) CheckUploadQuota(ctx context.Context, userID string, now time.Time) error {
	plan, err := s.PlanFor(ctx, userID)
	if err != nil {
		return err
	}
	if plan.ReceiptsPerMonth == Unlimited {
		return nil
	}
	used, err := s.usage.CountSince(ctx, userID, constants.UsageReceiptUpload, MonthStart(now))
	if err != nil {
		return fmt.Errorf("count uploads: %w", err)
	}
	if !within(plan.ReceiptsPerMonth, used) {
		s.logger.Warn("billing.quota.exceeded", "user_id", userID, "plan", plan.Tier, "used", used, "limit", plan.ReceiptsPerMonth)
		return common.NewAppError("QUOTA_EXCEEDED",
			fmt.Sprintf("%s plan allows %d receipts per month", plan.Tier, plan.ReceiptsPerMonth),
			common.ErrQuotaExceeded)
	}
	return nil
}

// CheckSheetQuota reports whether one more sheet may be connected.
func (s *Service) CheckSheetQuota(ctx context.Context, userID string, connected int) error {
	plan, err := s.PlanFor(ctx, userID)
	if err != nil {
		return err
	}
	if !within(plan.Sheets, connected) {
		return common.NewAppError("QUOTA_EXCEEDED",
			fmt.Sprintf("%s plan allows %d connected sheets", plan.Tier, plan.Sheets),
			common.ErrQuotaExceeded)
	}
	return nil
}
