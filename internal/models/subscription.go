package models

import "time"

// Subscription status values.
const (
	// StatusFree marks a free-tier subscription.
	StatusFree = "free"
	// StatusPremium marks a premium subscription with no quota ceiling.
	StatusPremium = "premium"
)

// Subscription tracks a principal's tier and free-tier usage counter.
type Subscription struct {
	UserID string `gorm:"type:text;primaryKey"` // Identity-provider principal ID.

	Status           string `gorm:"type:text;not null;default:'free';index"` // Tier: free or premium.
	FreeInsightsUsed int    `gorm:"not null;default:0"`                      // Free-tier usage counter.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (Subscription) TableName() string {
	return "user_subscriptions"
}

// IsPremium reports whether the subscription has premium access.
func (s *Subscription) IsPremium() bool {
	return s.Status == StatusPremium
}
