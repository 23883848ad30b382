package db

import (
	"fmt"

	"gorm.io/gorm"

	"poholowani/internal/domain/entities"
)

// AllModels returns every GORM model, in dependency order.
func AllModels() []interface{} {
	return []interface{}{
		&entities.User{},
		&entities.Session{},
		&entities.Profile{},
		&entities.RouteOffer{},
		&entities.UrgentRequest{},
		&entities.Announcement{},
		&entities.Conversation{},
		&entities.Message{},
		&entities.Participant{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
