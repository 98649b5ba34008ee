package db

import (
	"fmt"

	"gorm.io/gorm"

	estaterepos "github.com/yungbote/estate-backend/internal/data/repos/estate"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(estaterepos.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
