package models

import (
	"time"

	"gorm.io/datatypes"
)

// Preference stores the per-account diet/workout preference document used
// to seed generation prompts. One document per account.
type Preference struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	AccountID string  `gorm:"type:varchar(36);not null;uniqueIndex"` // Owning account ID.
	Account   Account `gorm:"foreignKey:AccountID"`                  // Owning account record.

	Data datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"` // Preference payload.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
