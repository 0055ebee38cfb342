package database

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"focusnote/scan-api/internal/infrastructure/database/entities"
)

// AutoMigrate applies database schema changes for conversations and artifacts.
func AutoMigrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&entities.Conversation{},
		&entities.ConversationEntry{},
		&entities.Artifact{},
	); err != nil {
		return err
	}

	log.Info().Msg("database schema up to date")
	return nil
}
