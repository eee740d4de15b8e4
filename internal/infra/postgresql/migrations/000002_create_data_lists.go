package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/dial-engine/internal/repository"
	"gorm.io/gorm"
)

func createDataListsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_data_lists",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.DataListModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_data_lists_campaign_id ON data_lists (campaign_id) WHERE campaign_id IS NOT NULL`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.DataListModel{})
		},
	}
}
