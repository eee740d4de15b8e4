package repository

import (
	"context"

	"github.com/kursadbilgin/dial-engine/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SuppressionRepository interface {
	IsSuppressed(ctx context.Context, phoneNumber string) (bool, error)
	Add(ctx context.Context, entry *domain.SuppressionEntry) (bool, error)
	AddBatch(ctx context.Context, entries []domain.SuppressionEntry) (int64, error)
	ListNumbers(ctx context.Context, numbers []string) ([]string, error)
}

type GormSuppressionRepo struct {
	db *gorm.DB
}

func NewGormSuppressionRepo(db *gorm.DB) *GormSuppressionRepo {
	return &GormSuppressionRepo{db: db}
}

func (r *GormSuppressionRepo) IsSuppressed(ctx context.Context, phoneNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&SuppressionEntryModel{}).
		Where("phone_number = ?", phoneNumber).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Add inserts a suppression entry, reporting false when the number was
// already present. Duplicate adds are a no-op, not an error.
func (r *GormSuppressionRepo) Add(ctx context.Context, entry *domain.SuppressionEntry) (bool, error) {
	model := suppressionModelFromDomain(entry)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "phone_number"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		return false, result.Error
	}
	if entry != nil {
		*entry = *suppressionModelToDomain(model)
	}
	return result.RowsAffected > 0, nil
}

// AddBatch inserts many entries at once, skipping numbers already present,
// and returns how many were actually added.
func (r *GormSuppressionRepo) AddBatch(ctx context.Context, entries []domain.SuppressionEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	models := make([]SuppressionEntryModel, 0, len(entries))
	for i := range entries {
		models = append(models, *suppressionModelFromDomain(&entries[i]))
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "phone_number"}},
			DoNothing: true,
		}).
		CreateInBatches(&models, 500)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ListNumbers returns the subset of the given numbers that are suppressed.
func (r *GormSuppressionRepo) ListNumbers(ctx context.Context, numbers []string) ([]string, error) {
	if len(numbers) == 0 {
		return nil, nil
	}

	var matched []string
	err := r.db.WithContext(ctx).
		Model(&SuppressionEntryModel{}).
		Where("phone_number IN ?", numbers).
		Pluck("phone_number", &matched).Error
	if err != nil {
		return nil, err
	}
	return matched, nil
}
