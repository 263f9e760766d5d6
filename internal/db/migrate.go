package db

import (
	"fmt"

	"github.com/GHR600/App-Project-sub003/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the store schema.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if errMigrate := conn.AutoMigrate(
		&models.Subscription{},
		&models.InsightLog{},
	); errMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errMigrate)
	}
	return nil
}
