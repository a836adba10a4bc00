package models

import (
	"time"

	"gorm.io/datatypes"
)

// Generated plan types.
const (
	// PlanTypeDiet marks an AI-composed diet plan.
	PlanTypeDiet = "diet"
	// PlanTypeWorkout marks an AI-composed workout plan.
	PlanTypeWorkout = "workout"
)

// GeneratedPlan stores one AI-composed diet or workout plan document.
type GeneratedPlan struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // Plan document ID.

	AccountID string  `gorm:"type:varchar(36);not null;index"` // Owning account ID.
	Account   Account `gorm:"foreignKey:AccountID"`            // Owning account record.

	Type    string         `gorm:"type:varchar(16);not null;index"`  // diet or workout.
	Title   string         `gorm:"type:text;not null"`               // Display title.
	Content datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"` // Composed plan payload.

	Model string `gorm:"type:varchar(128)"` // Generator model identifier.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
