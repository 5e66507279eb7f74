package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/zulandar/parsinator/internal/models"
)

// AllModels returns every GORM model of the history store.
func AllModels() []interface{} {
	return []interface{}{
		&models.GenerationRun{},
		&models.RunBrief{},
	}
}

// AutoMigrate creates or updates the history tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
