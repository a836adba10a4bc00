package gate

import (
	"context"
	"errors"

	"github.com/gymmind/coach-api/internal/models"
)

// ErrAccountNotFound indicates the account ID does not resolve to a document.
var ErrAccountNotFound = errors.New("gate: account not found")

// ErrStoreUnavailable indicates a transient document-store failure. The gate
// never retries internally; partial state is impossible because every update
// is a single atomic document write.
var ErrStoreUnavailable = errors.New("gate: store unavailable")

// Document field paths understood by AccountStore implementations. These are
// the nested-document paths of the account record; stores translate them to
// their native update mechanism.
const (
	FieldName    = "name"
	FieldActive  = "isActive"
	FieldDeleted = "deactivatedAt"

	FieldPlan      = "subscription.plan"
	FieldStatus    = "subscription.status"
	FieldStartDate = "subscription.startDate"
	FieldPlanLimit = "subscription.limits.plansPerMonth"
	FieldPDFLimit  = "subscription.limits.pdfExportsPerMonth"

	FieldPlansTotal  = "usage.plansGeneratedTotal"
	FieldPDFsTotal   = "usage.pdfExportsTotal"
	FieldWindowPlans = "usage.currentWindow.plans"
	FieldWindowPDFs  = "usage.currentWindow.pdfs"
	FieldWindowMonth = "usage.currentWindow.month"
	FieldWindowYear  = "usage.currentWindow.year"

	FieldLoginAttempts = "security.loginAttempts"
	FieldLockUntil     = "security.lockUntil"
	FieldLastLogin     = "lastLogin"
)

// FieldOp describes one document-store field update: either a plain value
// replacement or an atomic numeric delta.
type FieldOp interface{ isFieldOp() }

// Set replaces a field with a value.
type Set struct{ Value any }

// Inc atomically adds a delta to a numeric field without a read step.
type Inc struct{ Delta int64 }

func (Set) isFieldOp() {}
func (Inc) isFieldOp() {}

// AccountStore is the per-account document store. Implementations must make
// Inc a true additive operation (concurrent increments all apply) and return
// ErrAccountNotFound for unknown IDs.
type AccountStore interface {
	// Get loads the account document.
	Get(ctx context.Context, id string) (*models.Account, error)

	// Create inserts a new account document.
	Create(ctx context.Context, account *models.Account) error

	// Apply updates the given field paths in a single document update.
	Apply(ctx context.Context, id string, ops map[string]FieldOp) error

	// ApplyIf updates field paths only while every condition field still holds
	// its expected value. It reports whether the write applied.
	ApplyIf(ctx context.Context, id string, conds map[string]any, ops map[string]FieldOp) (bool, error)

	// ApplyOnce applies ops and records a usage event keyed by the idempotency
	// key in one atomic update. A previously seen key applies nothing and
	// reports false.
	ApplyOnce(ctx context.Context, id, quota, key string, ops map[string]FieldOp) (bool, error)
}
