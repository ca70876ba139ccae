package db

import (
	types "github.com/casaluz/incidents-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// User directory boundary
		&types.User{},

		// Incident aggregate
		&types.Incident{},
		&types.IncidentItem{},
	)
}
