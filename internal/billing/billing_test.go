package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/joseph-ayodele/receiptbox/constants"
	"github.com/joseph-ayodele/receiptbox/internal/common"
)

func TestBilling(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Billing Suite")
}

type countingLookup struct {
	tier  constants.PlanTier
	err   error
	calls int
}

func (c *countingLookup) PlanFor(context.Context, string) (constants.PlanTier, error) {
	c.calls++
	return c.tier, c.err
}

type mockUsage struct {
	count int
	err   error
	since time.Time
}

func (m *mockUsage) CountSince(_ context.Context, _ string, action constants.UsageAction, since time.Time) (int, error) {
	Expect(action).To(Equal(constants.UsageReceiptUpload))
	m.since = since
	return m.count, m.err
}

var _ = Describe("Service", func() {
	var (
		lookup  *countingLookup
		usage   *mockUsage
		service *Service
		ctx     context.Context
		now     time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		lookup = &countingLookup{tier: constants.PlanFree}
		usage = &mockUsage{}
		now = time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC)
	})

	JustBeforeEach(func() {
		service = NewService(lookup, usage, time.Minute, nil)
	})

	Describe("PlanFor", func() {
		It("should cache the resolved plan", func() {
			for range 3 {
				plan, err := service.PlanFor(ctx, "user-1")
				Expect(err).NotTo(HaveOccurred())
				Expect(plan.ReceiptsPerMonth).To(Equal(50))
			}
			Expect(lookup.calls).To(Equal(1))

			service.Invalidate("user-1")
			_, err := service.PlanFor(ctx, "user-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(lookup.calls).To(Equal(2))
		})

		When("the lookup returns an unknown tier", func() {
			BeforeEach(func() {
				lookup.tier = "platinum"
			})

			It("should fail", func() {
				_, err := service.PlanFor(ctx, "user-1")
				Expect(err).To(MatchError(ContainSubstring("unknown plan")))
			})
		})
	})

	Describe("CheckUploadQuota", func() {
		When("the free plan has room", func() {
			BeforeEach(func() {
				usage.count = 49
			})

			It("should allow the upload and count from the start of the month", func() {
				Expect(service.CheckUploadQuota(ctx, "user-1", now)).To(Succeed())
				Expect(usage.since).To(Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
			})
		})

		When("the free plan is used up", func() {
			BeforeEach(func() {
				usage.count = 50
			})

			It("should refuse with a quota error", func() {
				err := service.CheckUploadQuota(ctx, "user-1", now)
				Expect(err).To(MatchError(common.ErrQuotaExceeded))
			})
		})

		When("the plan is unlimited", func() {
			BeforeEach(func() {
				lookup.tier = constants.PlanPro
				usage.err = errors.New("should not be called")
			})

			It("should skip counting", func() {
				Expect(service.CheckUploadQuota(ctx, "user-1", now)).To(Succeed())
			})
		})
	})

	Describe("CheckSheetQuota", func() {
		It("should allow one sheet on the free plan", func() {
			Expect(service.CheckSheetQuota(ctx, "user-1", 0)).To(Succeed())
			Expect(service.CheckSheetQuota(ctx, "user-1", 1)).To(MatchError(common.ErrQuotaExceeded))
		})
	})
})

var _ = Describe("StaticPlans", func() {
	It("should apply overrides over the default", func() {
		plans := StaticPlans{Default: constants.PlanPro, Overrides: map[string]constants.PlanTier{"vip": constants.PlanBusiness}}
		tier, err := plans.PlanFor(context.Background(), "vip")
		Expect(err).NotTo(HaveOccurred())
		Expect(tier).To(Equal(constants.PlanBusiness))
		tier, _ = plans.PlanFor(context.Background(), "anyone")
		Expect(tier).To(Equal(constants.PlanPro))
		tier, _ = StaticPlans{}.PlanFor(context.Background(), "anyone")
		Expect(tier).To(Equal(constants.PlanFree))
	})
})

var _ = Describe("Limiter", func() {
	It("should allow the burst then refuse", func() {
		l := NewLimiter(1, 2)
		Expect(l.Allow("user-1")).To(Succeed())
		Expect(l.Allow("user-1")).To(Succeed())
		Expect(l.Allow("user-1")).To(MatchError(common.ErrRateLimited))
	})

	It("should track users independently", func() {
		l := NewLimiter(1, 1)
		Expect(l.Allow("user-1")).To(Succeed())
		Expect(l.Allow("user-2")).To(Succeed())
	})

	It("should let a nil limiter through", func() {
		var l *Limiter
		Expect(l.Allow("user-1")).To(Succeed())
		Expect(l.Wait(context.Background(), "user-1")).To(Succeed())
	})

	It("should stop waiting when the context ends", func() {
		l := NewLimiter(0.001, 1)
		Expect(l.Allow("user-1")).To(Succeed())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		Expect(l.Wait(ctx, "user-1")).To(HaveOccurred())
	})
})
