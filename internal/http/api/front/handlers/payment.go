package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gymmind/coach-api/internal/gate"
	"github.com/gymmind/coach-api/internal/models"
	"github.com/gymmind/coach-api/internal/plan"
	"github.com/gymmind/coach-api/internal/store"

	log "github.com/sirupsen/logrus"
)

// PaymentHandler manages the plan catalog, subscription changes and payment
// records.
type PaymentHandler struct {
	db       *gorm.DB
	accounts *store.GormAccountStore
	gate     *gate.Gate
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(db *gorm.DB, accounts *store.GormAccountStore, g *gate.Gate) *PaymentHandler {
	return &PaymentHandler{db: db, accounts: accounts, gate: g}
}

// Catalog returns the public plan catalog.
func (h *PaymentHandler) Catalog(c *gin.Context) {
	tiers := plan.Catalog()
	out := make([]gin.H, 0, len(tiers))
	for _, tier := range tiers {
		out = append(out, gin.H{
			"id":       tier.Name,
			"name":     tier.Title,
			"price":    tier.MonthPrice,
			"currency": tier.Currency,
			"features": tier.Features,
			"limits": gin.H{
				"plans_per_month":       tier.Limits.PlansPerMonth,
				"pdf_exports_per_month": tier.Limits.PDFExportsPerMonth,
			},
		})
	}
	c.JSON(http.StatusOK, gin.H{"plans": out})
}

// SubscriptionStatus returns the account's subscription plus a live
// can-generate evaluation.
func (h *PaymentHandler) SubscriptionStatus(c *gin.Context) {
	ctx := c.Request.Context()
	accountID := c.GetString("accountID")

	account, errGet := h.gate.GetAccountState(ctx, accountID)
	if errGet != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load account failed"})
		return
	}
	decision, errCheck := h.gate.CheckQuota(ctx, accountID, gate.QuotaPlans)
	if errCheck != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "quota check failed"})
		return
	}

	tier := plan.Resolve(account.Plan)
	c.JSON(http.StatusOK, gin.H{
		"plan":       tier.Name,
		"plan_name":  tier.Title,
		"status":     account.SubscriptionStatus,
		"start_date": account.SubscriptionStart,
		"limits": gin.H{
			"plans_per_month":       account.PlansPerMonth,
			"pdf_exports_per_month": account.PDFExportsPerMonth,
		},
		"can_generate": decisionPayload(decision),
	})
}

// simulatePaymentRequest defines the request body for payment simulation.
type simulatePaymentRequest struct {
	PlanID string `json:"plan_id"`
	Action string `json:"action"`
}

// SimulatePayment switches the account to a tier without a real charge. The
// checkout integration is out of scope; this is the development path the
// frontend exercises.
func (h *PaymentHandler) SimulatePayment(c *gin.Context) {
	var body simulatePaymentRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !plan.Known(body.PlanID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown plan"})
		return
	}
	if body.Action == "fail" {
		c.JSON(http.StatusOK, gin.H{
			"status": models.TransactionFailed,
			"error":  "card declined (simulated)",
		})
		return
	}

	ctx := c.Request.Context()
	accountID := c.GetString("accountID")
	tier := plan.Resolve(body.PlanID)

	if errApply := h.applyTier(ctx, h.accounts, accountID, tier); errApply != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update subscription failed"})
		return
	}

	tx := models.Transaction{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Plan:      tier.Name,
		Amount:    tier.MonthPrice,
		Currency:  tier.Currency,
		Status:    models.TransactionCompleted,
		Source:    "simulated",
	}
	if errCreate := h.db.WithContext(ctx).Create(&tx).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "record transaction failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transaction_id": tx.ID,
		"plan":           tier.Name,
		"plan_name":      tier.Title,
		"amount":         tier.MonthPrice,
		"currency":       tier.Currency,
		"status":         tx.Status,
	})
}

// webhookRequest defines the payment provider callback body.
type webhookRequest struct {
	Type      string `json:"type"`
	EventID   string `json:"event_id"`
	AccountID string `json:"account_id"`
	PlanID    string `json:"plan_id"`
}

// Webhook processes payment provider callbacks. Delivery is at-least-once;
// the transaction's unique event ID makes replays no-ops.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	var body webhookRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Type != "checkout.session.completed" {
		// Unhandled event types are acknowledged so the provider stops
		// retrying them.
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	if strings.TrimSpace(body.EventID) == "" || strings.TrimSpace(body.AccountID) == "" || !plan.Known(body.PlanID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook payload"})
		return
	}

	ctx := c.Request.Context()
	tier := plan.Resolve(body.PlanID)
	eventID := strings.TrimSpace(body.EventID)
	tx := models.Transaction{
		ID:        uuid.NewString(),
		AccountID: body.AccountID,
		Plan:      tier.Name,
		Amount:    tier.MonthPrice,
		Currency:  tier.Currency,
		Status:    models.TransactionCompleted,
		Source:    "webhook",
		EventID:   &eventID,
	}

	// The dedup row and the tier switch commit together. A failed switch rolls
	// the event ID back, so the provider's retry gets a clean attempt instead
	// of a duplicate acknowledgement for an upgrade that never happened.
	errTx := h.db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		if errCreate := txn.Create(&tx).Error; errCreate != nil {
			return errCreate
		}
		return h.applyTier(ctx, store.NewGormAccountStore(txn), body.AccountID, tier)
	})
	if errTx != nil {
		if store.IsUniqueViolation(errTx) {
			c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
			return
		}
		log.WithError(errTx).WithField("account_id", body.AccountID).Error("webhook processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "process webhook failed"})
		return
	}
	log.WithFields(log.Fields{"account_id": body.AccountID, "plan": tier.Name}).Info("subscription activated via webhook")
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// cancelRequest defines the request body for subscription cancellation.
type cancelRequest struct {
	Reason string `json:"reason"`
}

// CancelSubscription marks the subscription cancelled. Access continues per
// the cancelled-status quota rules; no proration happens here.
func (h *PaymentHandler) CancelSubscription(c *gin.Context) {
	var body cancelRequest
	_ = c.ShouldBindJSON(&body)
	reason := strings.TrimSpace(body.Reason)
	if reason == "" {
		reason = "user requested"
	}

	ctx := c.Request.Context()
	accountID := c.GetString("accountID")

	if errApply := h.accounts.Apply(ctx, accountID, map[string]gate.FieldOp{
		gate.FieldStatus: gate.Set{Value: models.SubscriptionCancelled},
	}); errApply != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cancel subscription failed"})
		return
	}
	log.WithFields(log.Fields{"account_id": accountID, "reason": reason}).Info("subscription cancelled")
	c.JSON(http.StatusOK, gin.H{"message": "subscription cancelled"})
}

// Transactions lists the account's payment records, newest first.
func (h *PaymentHandler) Transactions(c *gin.Context) {
	var rows []models.Transaction
	errFind := h.db.WithContext(c.Request.Context()).
		Where("account_id = ?", c.GetString("accountID")).
		Order("created_at DESC").Limit(100).
		Find(&rows).Error
	if errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list transactions failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":         row.ID,
			"plan":       row.Plan,
			"amount":     row.Amount,
			"currency":   row.Currency,
			"status":     row.Status,
			"source":     row.Source,
			"created_at": row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"transactions": out})
}

// applyTier writes the subscription fields for a tier switch as one document
// update. The store is a parameter so the webhook can run it inside the same
// transaction as its dedup insert.
func (h *PaymentHandler) applyTier(ctx context.Context, accounts *store.GormAccountStore, accountID string, tier plan.Tier) error {
	return accounts.Apply(ctx, accountID, map[string]gate.FieldOp{
		gate.FieldPlan:      gate.Set{Value: tier.Name},
		gate.FieldStatus:    gate.Set{Value: models.SubscriptionActive},
		gate.FieldStartDate: gate.Set{Value: time.Now().UTC()},
		gate.FieldPlanLimit: gate.Set{Value: tier.Limits.PlansPerMonth},
		gate.FieldPDFLimit:  gate.Set{Value: tier.Limits.PDFExportsPerMonth},
	})
}
