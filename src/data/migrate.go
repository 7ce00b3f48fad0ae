package data

import (
	"fmt"

	"github.com/stake-plus/guildmod/src/shared/guild"
	"gorm.io/gorm"
)

// Migrate creates or updates every table the bot owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(guild.Models()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
