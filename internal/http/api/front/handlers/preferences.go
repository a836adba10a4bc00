package handlers

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/gymmind/coach-api/internal/generator"
	"github.com/gymmind/coach-api/internal/models"
)

// PreferenceHandler manages the per-account preference document and the
// nutrition calculator.
type PreferenceHandler struct {
	db *gorm.DB
}

// NewPreferenceHandler constructs a PreferenceHandler.
func NewPreferenceHandler(db *gorm.DB) *PreferenceHandler {
	return &PreferenceHandler{db: db}
}

// Get returns the account's preference document.
func (h *PreferenceHandler) Get(c *gin.Context) {
	var pref models.Preference
	errFind := h.db.WithContext(c.Request.Context()).
		Where("account_id = ?", c.GetString("accountID")).
		First(&pref).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, gin.H{"preferences": gin.H{}})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load preferences failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferences": pref.Data, "updated_at": pref.UpdatedAt})
}

// Save upserts the account's preference document. One document per account.
func (h *PreferenceHandler) Save(c *gin.Context) {
	var body map[string]any
	if errBind := c.ShouldBindJSON(&body); errBind != nil || len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	data, errMarshal := json.Marshal(body)
	if errMarshal != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid preferences"})
		return
	}

	ctx := c.Request.Context()
	accountID := c.GetString("accountID")

	var pref models.Preference
	errFind := h.db.WithContext(ctx).Where("account_id = ?", accountID).First(&pref).Error
	switch {
	case errFind == nil:
		updates := map[string]any{"data": datatypes.JSON(data), "updated_at": time.Now().UTC()}
		if errUpdate := h.db.WithContext(ctx).Model(&pref).Updates(updates).Error; errUpdate != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "save preferences failed"})
			return
		}
	case errors.Is(errFind, gorm.ErrRecordNotFound):
		pref = models.Preference{AccountID: accountID, Data: datatypes.JSON(data)}
		if errCreate := h.db.WithContext(ctx).Create(&pref).Error; errCreate != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "save preferences failed"})
			return
		}
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load preferences failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "preferences saved"})
}

// Delete removes the account's preference document.
func (h *PreferenceHandler) Delete(c *gin.Context) {
	errDelete := h.db.WithContext(c.Request.Context()).
		Where("account_id = ?", c.GetString("accountID")).
		Delete(&models.Preference{}).Error
	if errDelete != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete preferences failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "preferences deleted"})
}

// calculateRequest defines the request body for the nutrition calculator.
type calculateRequest struct {
	Weight        float64 `json:"weight"`
	Height        float64 `json:"height"`
	Age           int     `json:"age"`
	Gender        string  `json:"gender"`
	Goal          string  `json:"goal"`
	ActivityLevel string  `json:"activity_level"`
}

// Calculate computes BMR, TDEE, the calorie target and macro split for a
// profile. Public: the frontend uses it before an account exists.
func (h *PreferenceHandler) Calculate(c *gin.Context) {
	var body calculateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Weight < 30 || body.Weight > 300 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "weight must be between 30 and 300 kg"})
		return
	}
	if body.Height < 100 || body.Height > 250 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "height must be between 100 and 250 cm"})
		return
	}
	if body.Age < 13 || body.Age > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "age must be between 13 and 100"})
		return
	}
	if body.Gender != "masculino" && body.Gender != "feminino" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "gender must be masculino or feminino"})
		return
	}
	goal := strings.TrimSpace(body.Goal)
	if goal == "" {
		goal = "manutencao"
	}
	activity := strings.TrimSpace(body.ActivityLevel)
	if activity == "" {
		activity = "moderado"
	}

	profile := generator.Profile{
		Age:           body.Age,
		Sex:           body.Gender,
		WeightKg:      body.Weight,
		HeightCm:      body.Height,
		ActivityLevel: activity,
		Goal:          goal,
	}
	bmr := generator.BMR(profile.Sex, profile.WeightKg, profile.HeightCm, profile.Age)
	tdee := generator.TDEE(bmr, activity)
	targets := generator.ComputeTargets(profile)

	c.JSON(http.StatusOK, gin.H{
		"bmr":             int(math.Round(bmr)),
		"tdee":            int(math.Round(tdee)),
		"target_calories": targets.Calories,
		"macros": gin.H{
			"protein": targets.Protein,
			"carbs":   targets.Carbs,
			"fats":    targets.Fat,
		},
		"meal_distribution": generator.MealCalories(targets.Calories),
		"water_intake_ml":   targets.WaterML,
		"goal":              goal,
		"calculated_at":     time.Now().UTC(),
	})
}
