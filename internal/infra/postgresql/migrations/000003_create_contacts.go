package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/dial-engine/internal/repository"
	"gorm.io/gorm"
)

func createContactsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_contacts",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.ContactModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_contacts_eligible ON contacts (list_id, status, next_retry_at) WHERE locked = false AND status IN ('NOT_ATTEMPTED', 'RETRY_ELIGIBLE')`,
				`CREATE INDEX IF NOT EXISTS idx_contacts_locked_at ON contacts (locked_at) WHERE locked = true`,
				`CREATE INDEX IF NOT EXISTS idx_contacts_phone_number ON contacts (phone_number)`,
				`CREATE INDEX IF NOT EXISTS idx_contacts_retry_due ON contacts (next_retry_at) WHERE status = 'RETRY_ELIGIBLE'`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ContactModel{})
		},
	}
}
