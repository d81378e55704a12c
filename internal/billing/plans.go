// Package billing enforces plan quotas and per-user scan rates.
package billing

import (
	"fmt"

	"github.com/joseph-ayodele/receiptbox/constants"
)

// Unlimited marks a limit that never binds.
const Unlimited = -1

type Plan struct {
	Tier             constants.PlanTier
	ReceiptsPerMonth int
	Sheets           int
	StorageGB        int
	Users            int
}

var Plans = map[constants.PlanTier]Plan{
	constants.PlanFree:     {Tier: constants.PlanFree, ReceiptsPerMonth: 50, Sheets: 1, StorageGB: 1, Users: 1},
	constants.PlanPro:      {Tier: constants.PlanPro, ReceiptsPerMonth: Unlimited, Sheets: Unlimited, StorageGB: 10, Users: 1},
	constants.PlanFamily:   {Tier: constants.PlanFamily, ReceiptsPerMonth: Unlimited, Sheets: Unlimited, StorageGB: 50, Users: 5},
	constants.PlanBusiness: {Tier: constants.PlanBusiness, ReceiptsPerMonth: Unlimited, Sheets: Unlimited, StorageGB: Unlimited, Users: Unlimited},
}

func PlanByTier(tier constants.PlanTier) (Plan, error) {
	p, ok := Plans[tier]
	if !ok {
		return Plan{}, fmt.Errorf("unknown plan %q", tier)
	}
	return p, nil
}

func within(limit, used int) bool {
	return limit == Unlimited || used < limit
}
