package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/dial-engine/internal/repository"
	"gorm.io/gorm"
)

func createCampaignsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_campaigns",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.CampaignModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_campaigns_active ON campaigns (is_active) WHERE is_active = true`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.CampaignModel{})
		},
	}
}
