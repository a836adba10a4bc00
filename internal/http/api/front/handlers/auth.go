package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gymmind/coach-api/internal/config"
	"github.com/gymmind/coach-api/internal/gate"
	"github.com/gymmind/coach-api/internal/identity"
	"github.com/gymmind/coach-api/internal/mailer"
	"github.com/gymmind/coach-api/internal/models"
	"github.com/gymmind/coach-api/internal/plan"
	"github.com/gymmind/coach-api/internal/security"
	"github.com/gymmind/coach-api/internal/store"

	log "github.com/sirupsen/logrus"
)

// AuthHandler manages account registration, login and profile endpoints.
type AuthHandler struct {
	db       *gorm.DB
	accounts *store.GormAccountStore
	gate     *gate.Gate
	provider identity.Provider
	mail     mailer.Mailer
	jwtCfg   config.JWTConfig
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, accounts *store.GormAccountStore, g *gate.Gate, provider identity.Provider, mail mailer.Mailer, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{db: db, accounts: accounts, gate: g, provider: provider, mail: mail, jwtCfg: jwtCfg}
}

// registerRequest defines the request body for account registration.
type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account on the free tier, reactivating a previously
// deactivated account with the same email instead of duplicating it.
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	email := strings.ToLower(strings.TrimSpace(body.Email))
	password := strings.TrimSpace(body.Password)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing name"})
		return
	}
	if email == "" || !strings.Contains(email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
		return
	}
	if len(password) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 6 characters"})
		return
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}

	ctx := c.Request.Context()
	existing, errGet := h.accounts.GetByEmail(ctx, email, false)
	if errGet != nil && !errors.Is(errGet, gate.ErrAccountNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup account failed"})
		return
	}
	if existing != nil {
		if existing.IsActive {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		// Reactivation keeps the account ID and usage history.
		updates := map[string]any{
			"is_active":      true,
			"name":           name,
			"password":       hash,
			"login_attempts": 0,
			"lock_until":     nil,
			"updated_at":     time.Now().UTC(),
		}
		if errUpdate := h.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", existing.ID).Updates(updates).Error; errUpdate != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "reactivate account failed"})
			return
		}
		h.respondWithToken(c, http.StatusOK, existing.ID)
		return
	}

	limits := plan.LimitsFor(models.PlanFree)
	now := time.Now().UTC()
	account := &models.Account{
		ID:                 uuid.NewString(),
		Email:              email,
		Name:               name,
		Password:           hash,
		Plan:               models.PlanFree,
		SubscriptionStatus: models.SubscriptionActive,
		SubscriptionStart:  now,
		PlansPerMonth:      limits.PlansPerMonth,
		PDFExportsPerMonth: limits.PDFExportsPerMonth,
		WindowMonth:        int(now.Month()) - 1,
		WindowYear:         now.Year(),
		IsActive:           true,
	}
	if errCreate := h.accounts.Create(ctx, account); errCreate != nil {
		if store.IsUniqueViolation(errCreate) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create account failed"})
		return
	}

	if errMail := h.mail.Send(ctx, mailer.Welcome(account)); errMail != nil {
		log.WithError(errMail).Warn("send welcome mail failed")
	}
	h.respondWithToken(c, http.StatusCreated, account.ID)
}

// loginRequest defines the request body for login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates an account, applying the failed-attempt lockout.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	ctx := c.Request.Context()
	account, credentialValid, errVerify := h.provider.VerifyCredentials(ctx, body.Email, body.Password)
	if errVerify != nil {
		if errors.Is(errVerify, identity.ErrUnknownIdentity) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	result, errLogin := h.gate.EvaluateLogin(ctx, account.ID, credentialValid)
	if errLogin != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	switch result.Outcome {
	case gate.LoginOK:
		h.respondWithToken(c, http.StatusOK, account.ID)
	case gate.LoginLocked:
		c.JSON(http.StatusLocked, gin.H{
			"error":      "account temporarily locked",
			"lock_until": result.LockUntil,
		})
	default:
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":              "invalid credentials",
			"attempts_remaining": gate.MaxLoginAttempts - result.Attempts,
		})
	}
}

// Logout acknowledges a logout. Tokens are stateless; the client discards its
// copy.
func (h *AuthHandler) Logout(c *gin.Context) {
	if id, ok := c.Get("accountID"); ok {
		log.WithField("account_id", id).Info("account logged out")
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Profile returns the authenticated account with its usage window reconciled
// to the current month.
func (h *AuthHandler) Profile(c *gin.Context) {
	account, errGet := h.gate.GetAccountState(c.Request.Context(), c.GetString("accountID"))
	if errGet != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load profile failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profilePayload(account)})
}

// updateProfileRequest defines the request body for profile updates.
type updateProfileRequest struct {
	Name string `json:"name"`
}

// UpdateProfile updates mutable profile fields.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var body updateProfileRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing name"})
		return
	}

	ctx := c.Request.Context()
	accountID := c.GetString("accountID")
	if errApply := h.accounts.Apply(ctx, accountID, map[string]gate.FieldOp{
		gate.FieldName: gate.Set{Value: name},
	}); errApply != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update profile failed"})
		return
	}

	account, errGet := h.gate.GetAccountState(ctx, accountID)
	if errGet != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load profile failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profilePayload(account)})
}

// CanGenerate reports whether the account may generate one more plan right
// now, without consuming anything.
func (h *AuthHandler) CanGenerate(c *gin.Context) {
	decision, errCheck := h.gate.CheckQuota(c.Request.Context(), c.GetString("accountID"), gate.QuotaPlans)
	if errCheck != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "quota check failed"})
		return
	}
	c.JSON(http.StatusOK, decisionPayload(decision))
}

// changePasswordRequest defines the request body for password changes.
type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword replaces the account password after verifying the current
// one.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var body changePasswordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(strings.TrimSpace(body.NewPassword)) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 6 characters"})
		return
	}

	ctx := c.Request.Context()
	account, errGet := h.accounts.Get(ctx, c.GetString("accountID"))
	if errGet != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load account failed"})
		return
	}
	if !security.CheckPassword(account.Password, body.CurrentPassword) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "current password incorrect"})
		return
	}

	hash, errHash := security.HashPassword(strings.TrimSpace(body.NewPassword))
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}
	if errUpdate := h.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", account.ID).
		Updates(map[string]any{"password": hash, "updated_at": time.Now().UTC()}).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update password failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

// Deactivate soft-deletes the authenticated account. The row and its usage
// history stay; registration with the same email reactivates it.
func (h *AuthHandler) Deactivate(c *gin.Context) {
	if errApply := h.accounts.Apply(c.Request.Context(), c.GetString("accountID"), map[string]gate.FieldOp{
		gate.FieldActive: gate.Set{Value: false},
	}); errApply != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "deactivate account failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "account deactivated"})
}

// respondWithToken issues a bearer token and returns it with the profile.
func (h *AuthHandler) respondWithToken(c *gin.Context, status int, accountID string) {
	token, errToken := security.IssueAccountToken(h.jwtCfg.Secret, h.jwtCfg.Expiry, accountID)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}
	account, errGet := h.gate.GetAccountState(c.Request.Context(), accountID)
	if errGet != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load profile failed"})
		return
	}
	c.JSON(status, gin.H{
		"token":   token,
		"profile": profilePayload(account),
	})
}

// profilePayload shapes the account document for API responses. Counters are
// the reconciled current-month values.
func profilePayload(account *models.Account) gin.H {
	return gin.H{
		"id":    account.ID,
		"name":  account.Name,
		"email": account.Email,
		"subscription": gin.H{
			"plan":       account.Plan,
			"status":     account.SubscriptionStatus,
			"start_date": account.SubscriptionStart,
			"limits": gin.H{
				"plans_per_month":       account.PlansPerMonth,
				"pdf_exports_per_month": account.PDFExportsPerMonth,
			},
		},
		"usage": gin.H{
			"plans_generated_total": account.PlansGeneratedTotal,
			"pdf_exports_total":     account.PDFExportsTotal,
			"current_window": gin.H{
				"plans": account.WindowPlans,
				"pdfs":  account.WindowPDFs,
				"month": account.WindowMonth,
				"year":  account.WindowYear,
			},
		},
		"is_admin":   account.IsAdmin,
		"last_login": account.LastLogin,
		"created_at": account.CreatedAt,
	}
}

// decisionPayload shapes a quota decision for API responses.
func decisionPayload(decision gate.Decision) gin.H {
	payload := gin.H{
		"allowed":   decision.Allowed,
		"unlimited": decision.Unlimited,
		"limit":     decision.Limit,
		"used":      decision.Used,
		"remaining": decision.Remaining,
	}
	if decision.Reason != "" {
		payload["reason"] = decision.Reason
	}
	if !decision.ResetDate.IsZero() {
		payload["reset_date"] = decision.ResetDate
	}
	return payload
}
