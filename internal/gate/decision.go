package gate

import (
	"time"

	"github.com/gymmind/coach-api/internal/models"
	"github.com/gymmind/coach-api/internal/plan"
)

// Quota names a metered action.
type Quota string

// Metered quota names.
const (
	// QuotaPlans meters AI plan generation.
	QuotaPlans Quota = "plans"
	// QuotaPDFExports meters PDF exports.
	QuotaPDFExports Quota = "pdfExports"
)

// Denial reasons carried in Decision.Reason.
const (
	// ReasonSubscriptionInactive denies because the subscription is not active.
	ReasonSubscriptionInactive = "subscription_inactive"
	// ReasonLimitReached denies because the monthly limit is exhausted.
	ReasonLimitReached = "limit_reached"
)

// Decision is the structured outcome of a quota check. Denials are expected
// outcomes, not errors; callers build user-facing responses from the fields
// without a second round trip.
type Decision struct {
	Allowed   bool      // Whether one unit may be consumed now.
	Unlimited bool      // True when the sentinel limit applies.
	Limit     int       // Applicable monthly limit, -1 = unlimited.
	Used      int64     // Units consumed in the current window.
	Remaining int       // Units left this month; 0 when denied or unlimited.
	Reason    string    // Denial reason, empty when allowed.
	ResetDate time.Time // When the window resets; set on limit_reached.
}

// Decide evaluates whether the account may consume one unit of the named
// quota at time now. Pure: no stored state is read or written, and a positive
// decision is not a reservation — a concurrent consumer may land first.
func Decide(account *models.Account, quota Quota, now time.Time) Decision {
	if !account.IsActive || account.SubscriptionStatus != models.SubscriptionActive {
		return Decision{Reason: ReasonSubscriptionInactive}
	}

	limit := limitFor(account, quota)
	if limit == plan.Unlimited {
		return Decision{Allowed: true, Unlimited: true, Limit: limit}
	}

	w := ReconcileWindow(windowOf(account), now)
	used := usedIn(w, quota)
	remaining := limit - int(used)
	if remaining < 0 {
		remaining = 0
	}
	if remaining == 0 {
		return Decision{
			Limit:     limit,
			Used:      used,
			Reason:    ReasonLimitReached,
			ResetDate: firstDayOfNextMonth(now),
		}
	}
	return Decision{Allowed: true, Limit: limit, Used: used, Remaining: remaining}
}

// limitFor returns the stored monthly limit for the quota. Stored limits are
// authoritative: every path that writes the subscription stamps them, and a
// stored zero means zero, so an operator can cap an account all the way down.
func limitFor(account *models.Account, quota Quota) int {
	if quota == QuotaPDFExports {
		return account.PDFExportsPerMonth
	}
	return account.PlansPerMonth
}

// usedIn returns the window counter matching the quota name.
func usedIn(w Window, quota Quota) int64 {
	if quota == QuotaPDFExports {
		return w.PDFs
	}
	return w.Plans
}
