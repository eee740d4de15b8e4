package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/dial-engine/internal/repository"
	"gorm.io/gorm"
)

func createSuppressionEntriesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_create_suppression_entries",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.SuppressionEntryModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_suppression_entries_phone_number ON suppression_entries (phone_number)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.SuppressionEntryModel{})
		},
	}
}
