// Package usage persists per-generation metering records and aggregates
// windowed statistics from them.
package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/GHR600/App-Project-sub003/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Entry describes one generation to record.
type Entry struct {
	UserID       string         // Principal ID.
	RequestID    string         // Correlation ID.
	Model        string         // Provider model used.
	Source       string         // Originating endpoint marker.
	InputTokens  int64          // Input token count.
	OutputTokens int64          // Output token count.
	Duration     time.Duration  // Generation duration.
	Failed       bool           // Failure flag.
	Detail       map[string]any // Structured request context.
}

// Recorder persists insight log rows backed by GORM.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder constructs a Recorder.
func NewRecorder(conn *gorm.DB) *Recorder { return &Recorder{db: conn} }

// Record writes one insight log row.
func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	row := models.InsightLog{
		UserID:       entry.UserID,
		RequestID:    entry.RequestID,
		Model:        entry.Model,
		Source:       entry.Source,
		InputTokens:  entry.InputTokens,
		OutputTokens: entry.OutputTokens,
		DurationMS:   entry.Duration.Milliseconds(),
		Failed:       entry.Failed,
	}
	if len(entry.Detail) > 0 {
		raw, errMarshal := json.Marshal(entry.Detail)
		if errMarshal == nil {
			row.Detail = datatypes.JSON(raw)
		}
	}
	if errCreate := r.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		return fmt.Errorf("usage: record insight: %w", errCreate)
	}
	return nil
}

// RecordAsync writes the row in the background, logging and swallowing
// failures.
func (r *Recorder) RecordAsync(entry Entry) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if errRecord := r.Record(ctx, entry); errRecord != nil {
			log.WithError(errRecord).WithField("user_id", entry.UserID).Error("record insight log failed")
		}
	}()
}

// PeriodStats counts successful generations per recent time window.
type PeriodStats struct {
	Today  int64 `json:"today"`
	Days7  int64 `json:"7_days"`
	Days30 int64 `json:"30_days"`
}

// Stats aggregates successful generation counts for a principal.
func (r *Recorder) Stats(ctx context.Context, userID string) (PeriodStats, error) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var stats PeriodStats
	for _, window := range []struct {
		since  time.Time
		target *int64
	}{
		{today, &stats.Today},
		{today.AddDate(0, 0, -6), &stats.Days7},
		{today.AddDate(0, 0, -29), &stats.Days30},
	} {
		if errCount := r.db.WithContext(ctx).Model(&models.InsightLog{}).
			Where("user_id = ? AND failed = ? AND created_at >= ?", userID, false, window.since).
			Count(window.target).Error; errCount != nil {
			return PeriodStats{}, fmt.Errorf("usage: count insights: %w", errCount)
		}
	}
	return stats, nil
}
