package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/gymmind/coach-api/internal/gate"
	"github.com/gymmind/coach-api/internal/generator"
	"github.com/gymmind/coach-api/internal/mailer"
	"github.com/gymmind/coach-api/internal/models"
	"github.com/gymmind/coach-api/internal/plan"
	"github.com/gymmind/coach-api/internal/renderer"

	log "github.com/sirupsen/logrus"
)

// PlanHandler manages generated diet and workout plan endpoints.
type PlanHandler struct {
	db   *gorm.DB
	gate *gate.Gate
	gen  generator.Generator
	rend renderer.Renderer
	mail mailer.Mailer
}

// NewPlanHandler constructs a PlanHandler.
func NewPlanHandler(db *gorm.DB, g *gate.Gate, gen generator.Generator, rend renderer.Renderer, mail mailer.Mailer) *PlanHandler {
	return &PlanHandler{db: db, gate: g, gen: gen, rend: rend, mail: mail}
}

// generateRequest defines the request body for plan generation.
type generateRequest struct {
	Title   string            `json:"title"`
	Profile generator.Profile `json:"profile"`
}

// GenerateDiet generates and stores a diet plan.
func (h *PlanHandler) GenerateDiet(c *gin.Context) {
	h.generate(c, models.PlanTypeDiet)
}

// GenerateWorkout generates and stores a workout plan.
func (h *PlanHandler) GenerateWorkout(c *gin.Context) {
	h.generate(c, models.PlanTypeWorkout)
}

// generate runs the check -> generate -> persist -> consume sequence. The
// quota check happens before the expensive provider call; consumption is
// recorded only after the plan row exists, keyed by the plan ID so a retried
// request cannot double-count.
func (h *PlanHandler) generate(c *gin.Context, planType string) {
	var body generateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if errValidate := validateProfile(body.Profile); errValidate != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errValidate.Error()})
		return
	}

	ctx := c.Request.Context()
	accountID := c.GetString("accountID")

	decision, errCheck := h.gate.CheckQuota(ctx, accountID, gate.QuotaPlans)
	if errCheck != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "quota check failed"})
		return
	}
	if !decision.Allowed {
		c.JSON(http.StatusForbidden, decisionPayload(decision))
		return
	}

	req := generator.Request{Kind: generator.KindDiet, Profile: body.Profile}
	if planType == models.PlanTypeWorkout {
		req.Kind = generator.KindWorkout
	} else {
		targets := generator.ComputeTargets(body.Profile)
		req.Targets = &targets
	}
	content, errGenerate := h.gen.Generate(ctx, req)
	if errGenerate != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "plan generation failed"})
		return
	}

	title := strings.TrimSpace(body.Title)
	if title == "" {
		title = defaultTitle(planType)
	}
	record := models.GeneratedPlan{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Type:      planType,
		Title:     title,
		Content:   datatypes.JSON(content),
	}
	if errCreate := h.db.WithContext(ctx).Create(&record).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store plan failed"})
		return
	}

	if errConsume := h.gate.ConsumeQuota(ctx, accountID, gate.QuotaPlans, "plan:"+record.ID); errConsume != nil {
		// Unrecorded usage would be unmetered usage; fail the request instead.
		log.WithError(errConsume).Error("record plan usage failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "record plan usage failed"})
		return
	}
	h.notifyPlanReady(c, accountID, planType)

	c.JSON(http.StatusCreated, gin.H{"plan": planPayload(&record)})
}

// List returns the account's generated plans, optionally filtered by type.
func (h *PlanHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).
		Where("account_id = ?", c.GetString("accountID"))
	if planType := strings.TrimSpace(c.Query("type")); planType != "" {
		if planType != models.PlanTypeDiet && planType != models.PlanTypeWorkout {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan type"})
			return
		}
		q = q.Where("type = ?", planType)
	}

	var rows []models.GeneratedPlan
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list plans failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, planPayload(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"plans": out})
}

// Get returns one plan owned by the account.
func (h *PlanHandler) Get(c *gin.Context) {
	record, ok := h.loadOwned(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": planPayload(record)})
}

// updatePlanRequest defines the request body for plan updates.
type updatePlanRequest struct {
	Title   string         `json:"title"`
	Content map[string]any `json:"content"`
}

// Update replaces a plan's title and content.
func (h *PlanHandler) Update(c *gin.Context) {
	record, ok := h.loadOwned(c)
	if !ok {
		return
	}
	var body updatePlanRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{}
	if title := strings.TrimSpace(body.Title); title != "" {
		updates["title"] = title
	}
	if body.Content != nil {
		content, errMarshal := json.Marshal(body.Content)
		if errMarshal != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid content"})
			return
		}
		updates["content"] = datatypes.JSON(content)
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).Model(record).Updates(updates).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update plan failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": planPayload(record)})
}

// Delete removes a plan owned by the account.
func (h *PlanHandler) Delete(c *gin.Context) {
	record, ok := h.loadOwned(c)
	if !ok {
		return
	}
	if errDelete := h.db.WithContext(c.Request.Context()).Delete(record).Error; errDelete != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete plan failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "plan deleted"})
}

// Limits reports both quota decisions plus the account's tier.
func (h *PlanHandler) Limits(c *gin.Context) {
	ctx := c.Request.Context()
	accountID := c.GetString("accountID")

	plansDecision, errPlans := h.gate.CheckQuota(ctx, accountID, gate.QuotaPlans)
	if errPlans != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "quota check failed"})
		return
	}
	exportsDecision, errExports := h.gate.CheckQuota(ctx, accountID, gate.QuotaPDFExports)
	if errExports != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "quota check failed"})
		return
	}

	account, errGet := h.gate.GetAccountState(ctx, accountID)
	if errGet != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load account failed"})
		return
	}
	tier := plan.Resolve(account.Plan)
	c.JSON(http.StatusOK, gin.H{
		"plan":        tier.Name,
		"title":       tier.Title,
		"plans":       decisionPayload(plansDecision),
		"pdf_exports": decisionPayload(exportsDecision),
	})
}

// Export renders a plan to a downloadable document, consuming one PDF export
// unit.
func (h *PlanHandler) Export(c *gin.Context) {
	record, ok := h.loadOwned(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	accountID := c.GetString("accountID")

	decision, errCheck := h.gate.CheckQuota(ctx, accountID, gate.QuotaPDFExports)
	if errCheck != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "quota check failed"})
		return
	}
	if !decision.Allowed {
		c.JSON(http.StatusForbidden, decisionPayload(decision))
		return
	}

	account, errGet := h.gate.GetAccountState(ctx, accountID)
	if errGet != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load account failed"})
		return
	}
	doc, errRender := h.rend.Render(ctx, account, record)
	if errRender != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "render plan failed"})
		return
	}

	if errConsume := h.gate.ConsumeQuota(ctx, accountID, gate.QuotaPDFExports, ""); errConsume != nil {
		// The document is withheld when the unit cannot be recorded, so a
		// store outage never hands out unmetered exports.
		log.WithError(errConsume).Error("record export usage failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "record export usage failed"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}

// loadOwned resolves the :type/:id route params to a plan owned by the
// authenticated account, writing the error response itself on failure.
func (h *PlanHandler) loadOwned(c *gin.Context) (*models.GeneratedPlan, bool) {
	planType := strings.TrimSpace(c.Param("type"))
	if planType != models.PlanTypeDiet && planType != models.PlanTypeWorkout {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan type"})
		return nil, false
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing id"})
		return nil, false
	}

	var record models.GeneratedPlan
	errFind := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND account_id = ? AND type = ?", id, c.GetString("accountID"), planType).
		First(&record).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load plan failed"})
		return nil, false
	}
	return &record, true
}

// notifyPlanReady sends the plan-ready mail without failing the request.
func (h *PlanHandler) notifyPlanReady(c *gin.Context, accountID, planType string) {
	account, errGet := h.gate.GetAccountState(c.Request.Context(), accountID)
	if errGet != nil {
		return
	}
	if errMail := h.mail.Send(c.Request.Context(), mailer.PlanReady(account, planType)); errMail != nil {
		log.WithError(errMail).Warn("send plan-ready mail failed")
	}
}

// validateProfile rejects physically impossible profile values before they
// reach the generator.
func validateProfile(p generator.Profile) error {
	if p.Age < 13 || p.Age > 100 {
		return errors.New("age must be between 13 and 100")
	}
	if p.WeightKg < 30 || p.WeightKg > 300 {
		return errors.New("weight must be between 30 and 300 kg")
	}
	if p.HeightCm < 100 || p.HeightCm > 250 {
		return errors.New("height must be between 100 and 250 cm")
	}
	if p.Sex != "masculino" && p.Sex != "feminino" {
		return errors.New("sex must be masculino or feminino")
	}
	return nil
}

// defaultTitle names an untitled plan.
func defaultTitle(planType string) string {
	if planType == models.PlanTypeWorkout {
		return "Plano de Treino"
	}
	return "Plano de Dieta"
}

// planPayload shapes a stored plan for API responses.
func planPayload(record *models.GeneratedPlan) gin.H {
	return gin.H{
		"id":         record.ID,
		"type":       record.Type,
		"title":      record.Title,
		"content":    record.Content,
		"created_at": record.CreatedAt,
		"updated_at": record.UpdatedAt,
	}
}
