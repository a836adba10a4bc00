package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	dbutil "github.com/gymmind/coach-api/internal/db"
	"github.com/gymmind/coach-api/internal/gate"
	"github.com/gymmind/coach-api/internal/models"
	"github.com/gymmind/coach-api/internal/plan"
	"github.com/gymmind/coach-api/internal/store"
)

// AccountHandler manages admin endpoints for end-user accounts.
type AccountHandler struct {
	db       *gorm.DB
	accounts *store.GormAccountStore
}

// NewAccountHandler constructs an AccountHandler.
func NewAccountHandler(db *gorm.DB, accounts *store.GormAccountStore) *AccountHandler {
	return &AccountHandler{db: db, accounts: accounts}
}

// List returns accounts with optional filters.
func (h *AccountHandler) List(c *gin.Context) {
	var (
		emailQ  = strings.TrimSpace(c.Query("email"))
		planQ   = strings.TrimSpace(c.Query("plan"))
		searchQ = strings.TrimSpace(c.Query("search"))
	)

	q := h.db.WithContext(c.Request.Context()).Model(&models.Account{})
	if emailQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+emailQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "email"), pattern)
	}
	if planQ != "" {
		q = q.Where("plan = ?", planQ)
	}
	if searchQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+searchQ+"%")
		q = q.Where(
			dbutil.CaseInsensitiveLikeExpr(h.db, "email")+" OR "+
				dbutil.CaseInsensitiveLikeExpr(h.db, "name"),
			pattern,
			pattern,
		)
	}

	var rows []models.Account
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list accounts failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, accountSummary(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"accounts": out})
}

// Get returns an account by ID.
func (h *AccountHandler) Get(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var account models.Account
	if errFind := h.db.WithContext(c.Request.Context()).Where("id = ?", id).First(&account).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, accountDetail(&account))
}

// Disable deactivates an account.
func (h *AccountHandler) Disable(c *gin.Context) {
	h.setActive(c, false)
}

// Enable reactivates an account.
func (h *AccountHandler) Enable(c *gin.Context) {
	h.setActive(c, true)
}

func (h *AccountHandler) setActive(c *gin.Context, active bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Model(&models.Account{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_active": active, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// setPlanRequest defines the request body for tier changes.
type setPlanRequest struct {
	PlanID string `json:"plan_id"`
}

// SetPlan switches an account to another tier, resetting limits to the tier
// defaults. Usage counters are left untouched.
func (h *AccountHandler) SetPlan(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body setPlanRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !plan.Known(body.PlanID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown plan"})
		return
	}

	tier := plan.Resolve(body.PlanID)
	errApply := h.accounts.Apply(c.Request.Context(), id, map[string]gate.FieldOp{
		gate.FieldPlan:      gate.Set{Value: tier.Name},
		gate.FieldStatus:    gate.Set{Value: models.SubscriptionActive},
		gate.FieldStartDate: gate.Set{Value: time.Now().UTC()},
		gate.FieldPlanLimit: gate.Set{Value: tier.Limits.PlansPerMonth},
		gate.FieldPDFLimit:  gate.Set{Value: tier.Limits.PDFExportsPerMonth},
	})
	if errApply != nil {
		if errors.Is(errApply, gate.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update plan failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "plan": tier.Name})
}

// Unlock clears an account's login lockout.
func (h *AccountHandler) Unlock(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Model(&models.Account{}).
		Where("id = ?", id).
		Updates(map[string]any{"login_attempts": 0, "lock_until": nil, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unlock failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// accountSummary shapes an account row for list responses.
func accountSummary(account *models.Account) gin.H {
	return gin.H{
		"id":         account.ID,
		"email":      account.Email,
		"name":       account.Name,
		"plan":       account.Plan,
		"status":     account.SubscriptionStatus,
		"is_active":  account.IsActive,
		"is_admin":   account.IsAdmin,
		"last_login": account.LastLogin,
		"created_at": account.CreatedAt,
	}
}

// accountDetail shapes an account row for detail responses.
func accountDetail(account *models.Account) gin.H {
	out := accountSummary(account)
	out["limits"] = gin.H{
		"plans_per_month":       account.PlansPerMonth,
		"pdf_exports_per_month": account.PDFExportsPerMonth,
	}
	out["usage"] = gin.H{
		"plans_generated_total": account.PlansGeneratedTotal,
		"pdf_exports_total":     account.PDFExportsTotal,
		"current_window": gin.H{
			"plans": account.WindowPlans,
			"pdfs":  account.WindowPDFs,
			"month": account.WindowMonth,
			"year":  account.WindowYear,
		},
	}
	out["login_attempts"] = account.LoginAttempts
	out["lock_until"] = account.LockUntil
	out["updated_at"] = account.UpdatedAt
	return out
}
