package models

import "time"

// Transaction status values.
const (
	// TransactionCompleted marks a settled payment.
	TransactionCompleted = "completed"
	// TransactionFailed marks a failed payment.
	TransactionFailed = "failed"
	// TransactionRefunded marks a refunded payment.
	TransactionRefunded = "refunded"
)

// Transaction records a subscription payment event.
type Transaction struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // Transaction ID.

	AccountID string  `gorm:"type:varchar(36);not null;index"` // Paying account ID.
	Account   Account `gorm:"foreignKey:AccountID"`            // Paying account record.

	Plan     string  `gorm:"type:varchar(32);not null"`              // Purchased tier name.
	Amount   float64 `gorm:"type:decimal(10,2);not null;default:0"`  // Charged amount.
	Currency string  `gorm:"type:varchar(8);not null;default:'brl'"` // Currency code.
	Status   string  `gorm:"type:varchar(32);not null"`              // Transaction status.
	Source   string  `gorm:"type:varchar(32);not null"`              // simulated or webhook.

	// EventID deduplicates webhook deliveries; at-least-once delivery with a
	// unique event ID makes replays no-ops. Nil for transactions that did not
	// arrive through the webhook, so those never collide on the unique index.
	EventID *string `gorm:"type:text;uniqueIndex"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
