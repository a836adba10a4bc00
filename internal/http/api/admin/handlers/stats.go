package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gymmind/coach-api/internal/models"
)

// StatsHandler serves aggregate account and usage statistics.
type StatsHandler struct {
	db *gorm.DB
}

// NewStatsHandler constructs a StatsHandler.
func NewStatsHandler(db *gorm.DB) *StatsHandler {
	return &StatsHandler{db: db}
}

// planCount is one row of the accounts-by-plan aggregate.
type planCount struct {
	Plan  string
	Count int64
}

// Stats returns account and usage aggregates.
func (h *StatsHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	var total, active int64
	if errCount := h.db.WithContext(ctx).Model(&models.Account{}).Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load stats failed"})
		return
	}
	if errCount := h.db.WithContext(ctx).Model(&models.Account{}).Where("is_active = ?", true).Count(&active).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load stats failed"})
		return
	}

	var byPlan []planCount
	errGroup := h.db.WithContext(ctx).Model(&models.Account{}).
		Select("plan, COUNT(*) AS count").
		Where("is_active = ?", true).
		Group("plan").
		Scan(&byPlan).Error
	if errGroup != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load stats failed"})
		return
	}
	plans := make(gin.H, len(byPlan))
	for _, row := range byPlan {
		plans[row.Plan] = row.Count
	}

	var generated, exported int64
	row := h.db.WithContext(ctx).Model(&models.Account{}).
		Select("COALESCE(SUM(plans_generated_total),0), COALESCE(SUM(pdf_exports_total),0)").
		Row()
	if errScan := row.Scan(&generated, &exported); errScan != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load stats failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accounts": gin.H{
			"total":   total,
			"active":  active,
			"by_plan": plans,
		},
		"usage": gin.H{
			"plans_generated_total": generated,
			"pdf_exports_total":     exported,
		},
	})
}
