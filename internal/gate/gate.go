// Package gate owns subscription metadata, monthly usage counters and the
// login lockout state machine. Request handlers consult it before any
// quota-consuming action and after every authentication attempt.
//
// Quota checking and quota consumption are deliberately separate operations:
// middleware can show "remaining" before an expensive generation call runs,
// and the handler records consumption afterwards. Quota limits are therefore
// soft — concurrent callers may overshoot by small amounts; counters stay
// exact because all writes go through the store's atomic-delta operation.
package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/gymmind/coach-api/internal/models"
)

// Gate is the subscription and quota decision component.
type Gate struct {
	store AccountStore
	nowFn func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock overrides the Gate's clock.
func WithClock(nowFn func() time.Time) Option {
	return func(g *Gate) {
		if nowFn != nil {
			g.nowFn = nowFn
		}
	}
}

// New constructs a Gate backed by the given account store.
func New(store AccountStore, opts ...Option) *Gate {
	g := &Gate{store: store, nowFn: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CheckQuota decides whether the account may consume one unit of the named
// quota right now. The store is never written; the window is reconciled as a
// read-side step only.
func (g *Gate) CheckQuota(ctx context.Context, accountID string, quota Quota) (Decision, error) {
	account, errGet := g.store.Get(ctx, accountID)
	if errGet != nil {
		return Decision{}, errGet
	}
	return Decide(account, quota, g.nowFn()), nil
}

// ConsumeQuota atomically increments the lifetime and window counters for the
// quota, reconciling the month window as part of the same logical update. It
// does not check availability; callers run CheckQuota first.
//
// A non-empty idempotencyKey makes retried calls for the same logical action
// no-ops; with an empty key the caller is responsible for at-most-once
// invocation per action.
func (g *Gate) ConsumeQuota(ctx context.Context, accountID string, quota Quota, idempotencyKey string) error {
	account, errGet := g.store.Get(ctx, accountID)
	if errGet != nil {
		return errGet
	}

	now := g.nowFn()
	stored := windowOf(account)
	if windowStale(stored, now) {
		month, year := monthYear(now)
		// Reset window metadata first, guarded on the stale values so only
		// one concurrent caller zeroes the counts; the increment below is a
		// true delta either way, so no consumption is lost across the month
		// boundary.
		_, errReset := g.store.ApplyIf(ctx, accountID,
			map[string]any{
				FieldWindowMonth: stored.Month,
				FieldWindowYear:  stored.Year,
			},
			map[string]FieldOp{
				FieldWindowMonth: Set{month},
				FieldWindowYear:  Set{year},
				FieldWindowPlans: Set{int64(0)},
				FieldWindowPDFs:  Set{int64(0)},
			})
		if errReset != nil {
			return fmt.Errorf("reset usage window: %w", errReset)
		}
	}

	ops := map[string]FieldOp{
		totalField(quota):  Inc{1},
		windowField(quota): Inc{1},
	}
	if idempotencyKey != "" {
		// A replayed key applies nothing; retried webhooks and duplicated
		// client requests cannot double-increment.
		if _, errApply := g.store.ApplyOnce(ctx, accountID, string(quota), idempotencyKey, ops); errApply != nil {
			return fmt.Errorf("record usage: %w", errApply)
		}
		return nil
	}
	if errApply := g.store.Apply(ctx, accountID, ops); errApply != nil {
		return fmt.Errorf("record usage: %w", errApply)
	}
	return nil
}

// GetAccountState loads the account with its usage window reconciled to the
// current month. The reconciliation is not persisted; callers always see
// current-month-accurate counts.
func (g *Gate) GetAccountState(ctx context.Context, accountID string) (*models.Account, error) {
	account, errGet := g.store.Get(ctx, accountID)
	if errGet != nil {
		return nil, errGet
	}
	w := ReconcileWindow(windowOf(account), g.nowFn())
	account.WindowPlans = w.Plans
	account.WindowPDFs = w.PDFs
	account.WindowMonth = w.Month
	account.WindowYear = w.Year
	return account, nil
}

// totalField maps a quota name to its lifetime counter field path.
func totalField(quota Quota) string {
	if quota == QuotaPDFExports {
		return FieldPDFsTotal
	}
	return FieldPlansTotal
}

// windowField maps a quota name to its window counter field path.
func windowField(quota Quota) string {
	if quota == QuotaPDFExports {
		return FieldWindowPDFs
	}
	return FieldWindowPlans
}
