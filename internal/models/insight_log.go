package models

import (
	"time"

	"gorm.io/datatypes"
)

// Generation sources recorded in the insight log.
const (
	// SourceInsights marks generations from the insights endpoint.
	SourceInsights = "insights"
	// SourceSummary marks generations from the summarise endpoint.
	SourceSummary = "summary"
)

// InsightLog records metering data for a single generation.
type InsightLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID    string `gorm:"type:text;not null;index"` // Identity-provider principal ID.
	RequestID string `gorm:"type:text"`                // Correlation ID for the originating request.

	Model  string `gorm:"type:text;not null;index"` // Provider model used.
	Source string `gorm:"type:text;not null"`       // Originating endpoint marker.

	InputTokens  int64 `gorm:"not null;default:0"` // Input token count.
	OutputTokens int64 `gorm:"not null;default:0"` // Output token count.
	DurationMS   int64 `gorm:"not null;default:0"` // Generation duration in milliseconds.

	Failed bool `gorm:"not null;default:false"` // Failure flag.

	Detail datatypes.JSON `gorm:"type:jsonb"` // Structured request context (mood, focus areas).

	CreatedAt time.Time `gorm:"not null;index;autoCreateTime"` // Creation timestamp.
}

// TableName overrides the default table name.
func (InsightLog) TableName() string {
	return "insight_logs"
}
