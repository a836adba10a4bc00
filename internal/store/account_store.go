// Package store adapts the account document contract onto a SQL database via
// GORM. Field paths are the nested-document paths of the account record;
// atomic deltas become additive column expressions so concurrent increments
// all apply.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gymmind/coach-api/internal/gate"
	"github.com/gymmind/coach-api/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// columnFor maps document field paths to account table columns.
var columnFor = map[string]string{
	gate.FieldName:          "name",
	gate.FieldActive:        "is_active",
	gate.FieldPlan:          "plan",
	gate.FieldStatus:        "subscription_status",
	gate.FieldStartDate:     "subscription_start",
	gate.FieldPlanLimit:     "plans_per_month",
	gate.FieldPDFLimit:      "pdf_exports_per_month",
	gate.FieldPlansTotal:    "plans_generated_total",
	gate.FieldPDFsTotal:     "pdf_exports_total",
	gate.FieldWindowPlans:   "window_plans",
	gate.FieldWindowPDFs:    "window_pd_fs",
	gate.FieldWindowMonth:   "window_month",
	gate.FieldWindowYear:    "window_year",
	gate.FieldLoginAttempts: "login_attempts",
	gate.FieldLockUntil:     "lock_until",
	gate.FieldLastLogin:     "last_login",
}

// GormAccountStore persists account documents to PostgreSQL or SQLite.
type GormAccountStore struct {
	db *gorm.DB
}

// NewGormAccountStore constructs a GormAccountStore.
func NewGormAccountStore(db *gorm.DB) *GormAccountStore {
	return &GormAccountStore{db: db}
}

// Get loads an account by ID.
func (s *GormAccountStore) Get(ctx context.Context, id string) (*models.Account, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("account store: not initialized")
	}
	var account models.Account
	if errFind := s.db.WithContext(ctx).First(&account, "id = ?", id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, gate.ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: %v", gate.ErrStoreUnavailable, errFind)
	}
	return &account, nil
}

// GetByEmail loads an account by normalized email address.
func (s *GormAccountStore) GetByEmail(ctx context.Context, email string, activeOnly bool) (*models.Account, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("account store: not initialized")
	}
	q := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email)))
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var account models.Account
	if errFind := q.First(&account).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, gate.ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: %v", gate.ErrStoreUnavailable, errFind)
	}
	return &account, nil
}

// Create inserts a new account document.
func (s *GormAccountStore) Create(ctx context.Context, account *models.Account) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("account store: not initialized")
	}
	if account == nil || strings.TrimSpace(account.ID) == "" {
		return fmt.Errorf("account store: missing id")
	}
	if errCreate := s.db.WithContext(ctx).Create(account).Error; errCreate != nil {
		if IsUniqueViolation(errCreate) {
			return errCreate
		}
		return fmt.Errorf("%w: %v", gate.ErrStoreUnavailable, errCreate)
	}
	return nil
}

// Apply updates the given field paths as one document update.
func (s *GormAccountStore) Apply(ctx context.Context, id string, ops map[string]gate.FieldOp) error {
	updates, errBuild := s.buildUpdates(ops)
	if errBuild != nil {
		return errBuild
	}
	res := s.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("%w: %v", gate.ErrStoreUnavailable, res.Error)
	}
	if res.RowsAffected == 0 {
		return gate.ErrAccountNotFound
	}
	return nil
}

// ApplyIf updates field paths only while every condition column still holds
// its expected value.
func (s *GormAccountStore) ApplyIf(ctx context.Context, id string, conds map[string]any, ops map[string]gate.FieldOp) (bool, error) {
	updates, errBuild := s.buildUpdates(ops)
	if errBuild != nil {
		return false, errBuild
	}
	q := s.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id)
	for path, expected := range conds {
		column, ok := columnFor[path]
		if !ok {
			return false, fmt.Errorf("account store: unknown field path %q", path)
		}
		q = q.Where(column+" = ?", expected)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("%w: %v", gate.ErrStoreUnavailable, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ApplyOnce applies ops and records the usage event in one transaction. A
// previously recorded idempotency key applies nothing.
func (s *GormAccountStore) ApplyOnce(ctx context.Context, id, quota, key string, ops map[string]gate.FieldOp) (bool, error) {
	updates, errBuild := s.buildUpdates(ops)
	if errBuild != nil {
		return false, errBuild
	}

	applied := false
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		event := models.UsageEvent{
			AccountID:      id,
			Quota:          quota,
			IdempotencyKey: key,
			CreatedAt:      time.Now().UTC(),
		}
		if errCreate := tx.Create(&event).Error; errCreate != nil {
			if IsUniqueViolation(errCreate) {
				return nil
			}
			return errCreate
		}
		res := tx.Model(&models.Account{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gate.ErrAccountNotFound
		}
		applied = true
		return nil
	})
	if errTx != nil {
		if errors.Is(errTx, gate.ErrAccountNotFound) {
			return false, errTx
		}
		return false, fmt.Errorf("%w: %v", gate.ErrStoreUnavailable, errTx)
	}
	return applied, nil
}

// buildUpdates translates field ops into a GORM update map. Deltas become
// additive column expressions so the database applies them atomically.
func (s *GormAccountStore) buildUpdates(ops map[string]gate.FieldOp) (map[string]any, error) {
	if len(ops) == 0 {
		return nil, fmt.Errorf("account store: empty update")
	}
	updates := make(map[string]any, len(ops)+1)
	for path, op := range ops {
		column, ok := columnFor[path]
		if !ok {
			return nil, fmt.Errorf("account store: unknown field path %q", path)
		}
		switch v := op.(type) {
		case gate.Set:
			updates[column] = v.Value
		case gate.Inc:
			updates[column] = gorm.Expr(column+" + ?", v.Delta)
		default:
			return nil, fmt.Errorf("account store: unsupported op for %q", path)
		}
	}
	updates["updated_at"] = time.Now().UTC()
	return updates, nil
}

// IsUniqueViolation reports whether the error is a unique-constraint
// violation on the current dialect.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed")
}
