package models

import "time"

// UsageEvent records a single quota consumption. Rows exist only for calls
// carrying an idempotency key; the unique index turns retried consumption
// (duplicated client requests, redelivered webhooks) into no-ops.
type UsageEvent struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	AccountID string `gorm:"type:varchar(36);not null;index"` // Consuming account ID.
	Quota     string `gorm:"type:varchar(32);not null"`       // Quota name.

	IdempotencyKey string `gorm:"type:text;not null;uniqueIndex"` // Caller-supplied dedup key.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
