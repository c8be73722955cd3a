package db

import (
	"moviecatalog/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil {
		return nil
	}
	return db.Gorm.AutoMigrate(
		&models.Movie{},
		&models.User{},
		&models.SystemSetting{},
	)
}
