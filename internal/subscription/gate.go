// Package subscription decides free-tier quota access and meters usage.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GHR600/App-Project-sub003/internal/config"
	"github.com/GHR600/App-Project-sub003/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Reason codes attached to quota decisions.
const (
	// ReasonPremiumAccess marks premium principals with no quota ceiling.
	ReasonPremiumAccess = "premium_access"
	// ReasonFreeQuotaAvailable marks free principals under the ceiling.
	ReasonFreeQuotaAvailable = "free_quota_available"
	// ReasonFreeQuotaExceeded marks free principals at or over the ceiling.
	ReasonFreeQuotaExceeded = "free_quota_exceeded"
	// ReasonErrorFallback marks decisions taken while the store was unreachable.
	ReasonErrorFallback = "error_fallback"
)

// ErrStoreUnavailable indicates the quota store could not be read under the
// strict policy.
var ErrStoreUnavailable = errors.New("subscription: store unavailable")

// Permission is the transient allow/deny decision for one request.
type Permission struct {
	Allowed   bool   `json:"allowed"`             // Whether generation may proceed.
	Reason    string `json:"reason"`              // Decision reason code.
	Tier      string `json:"tier"`                // Subscription tier at decision time.
	Remaining *int   `json:"remaining,omitempty"` // Free-tier generations left, when bounded.
}

// Service reads and meters subscription records.
type Service struct {
	db     *gorm.DB
	limit  int
	policy string
}

// NewService constructs a subscription Service.
func NewService(conn *gorm.DB, freeTierLimit int, quotaPolicy string) *Service {
	return &Service{db: conn, limit: freeTierLimit, policy: quotaPolicy}
}

// Get fetches the subscription record for a principal, defaulting to a fresh
// free-tier record when none exists. No record is created.
func (s *Service) Get(ctx context.Context, userID string) (models.Subscription, error) {
	var sub models.Subscription
	errFind := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.Subscription{UserID: userID, Status: models.StatusFree}, nil
		}
		return models.Subscription{}, fmt.Errorf("subscription: fetch: %w", errFind)
	}
	return sub, nil
}

// CanGenerate decides whether a principal may run a generation. Read-only.
//
// When the store cannot be read the outcome follows the configured policy:
// fail_open allows with reason error_fallback, strict denies and returns
// ErrStoreUnavailable.
func (s *Service) CanGenerate(ctx context.Context, userID string) (Permission, error) {
	sub, errGet := s.Get(ctx, userID)
	if errGet != nil {
		if s.policy == config.PolicyStrict {
			return Permission{Allowed: false, Reason: ReasonErrorFallback, Tier: models.StatusFree},
				fmt.Errorf("%w: %v", ErrStoreUnavailable, errGet)
		}
		log.WithError(errGet).WithField("user_id", userID).Warn("quota check failed, allowing by policy")
		return Permission{Allowed: true, Reason: ReasonErrorFallback, Tier: models.StatusFree}, nil
	}

	if sub.IsPremium() {
		return Permission{Allowed: true, Reason: ReasonPremiumAccess, Tier: models.StatusPremium}, nil
	}

	if sub.FreeInsightsUsed < s.limit {
		remaining := s.limit - sub.FreeInsightsUsed
		return Permission{Allowed: true, Reason: ReasonFreeQuotaAvailable, Tier: models.StatusFree, Remaining: &remaining}, nil
	}

	zero := 0
	return Permission{Allowed: false, Reason: ReasonFreeQuotaExceeded, Tier: models.StatusFree, Remaining: &zero}, nil
}

// RecordUsage increments the free-tier counter for a principal. The
// increment is a single conditional upsert so concurrent requests cannot
// undercount.
func (s *Service) RecordUsage(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	sub := models.Subscription{
		UserID:           userID,
		Status:           models.StatusFree,
		FreeInsightsUsed: 1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	errUpsert := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"free_insights_used": gorm.Expr("free_insights_used + 1"),
			"updated_at":         now,
		}),
	}).Create(&sub).Error
	if errUpsert != nil {
		return fmt.Errorf("subscription: record usage: %w", errUpsert)
	}
	return nil
}

// RecordUsageAsync increments the counter in the background. Failures are
// logged and swallowed; the generation already succeeded and must not appear
// to fail because of bookkeeping.
func (s *Service) RecordUsageAsync(userID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if errRecord := s.RecordUsage(ctx, userID); errRecord != nil {
			log.WithError(errRecord).WithField("user_id", userID).Error("record usage failed")
		}
	}()
}
