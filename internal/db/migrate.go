package db

import (
	"fmt"

	"github.com/gymmind/coach-api/internal/models"

	"gorm.io/gorm"
)

// Migrate runs schema migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if errAutoMigrate := conn.AutoMigrate(
		&models.Account{},
		&models.GeneratedPlan{},
		&models.Preference{},
		&models.Transaction{},
		&models.UsageEvent{},
		&models.Setting{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	return nil
}
