package models

import "time"

// Plan tier names.
const (
	// PlanFree is the default tier assigned at registration.
	PlanFree = "free"
	// PlanBasic is the entry paid tier.
	PlanBasic = "basic"
	// PlanPremium is the unlimited diet+workout tier.
	PlanPremium = "premium"
	// PlanPro is the unlimited tier with nutritionist follow-up.
	PlanPro = "pro"
)

// Subscription status values.
const (
	// SubscriptionActive marks a subscription in good standing.
	SubscriptionActive = "active"
	// SubscriptionCancelled marks a user-cancelled subscription.
	SubscriptionCancelled = "cancelled"
	// SubscriptionExpired marks a lapsed subscription.
	SubscriptionExpired = "expired"
)

// Account represents an end-user account document. The identity provider
// assigns the ID at registration; it never changes afterwards.
type Account struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // Opaque stable identifier.

	Email    string `gorm:"type:text;not null;uniqueIndex"` // Lowercased email address.
	Name     string `gorm:"type:text;not null"`             // Display name.
	Password string `gorm:"type:text;not null"`             // Hashed password.

	Plan               string    `gorm:"type:varchar(32);not null;default:'free'"`   // Subscription tier name.
	SubscriptionStatus string    `gorm:"type:varchar(32);not null;default:'active'"` // active, cancelled or expired.
	SubscriptionStart  time.Time `gorm:"not null"`                                   // Current subscription start.
	PlansPerMonth      int       `gorm:"not null;default:0"`                         // Monthly plan limit, -1 = unlimited.
	PDFExportsPerMonth int       `gorm:"not null;default:0"`                         // Monthly PDF export limit, -1 = unlimited.

	PlansGeneratedTotal int64 `gorm:"not null;default:0"` // Lifetime generated plan count.
	PDFExportsTotal     int64 `gorm:"not null;default:0"` // Lifetime PDF export count.
	WindowPlans         int64 `gorm:"not null;default:0"` // Plans generated in the current window.
	WindowPDFs          int64 `gorm:"not null;default:0"` // PDFs exported in the current window.
	WindowMonth         int   `gorm:"not null;default:0"` // Window calendar month, 0-11.
	WindowYear          int   `gorm:"not null;default:0"` // Window calendar year.

	LoginAttempts int        `gorm:"not null;default:0"` // Consecutive failed login attempts.
	LockUntil     *time.Time `gorm:"index"`              // Lock expiry, nil when unlocked.
	LastLogin     *time.Time // Last successful login.

	IsActive bool `gorm:"not null;default:true"`  // Soft-delete flag.
	IsAdmin  bool `gorm:"not null;default:false"` // Grants access to admin endpoints.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
