package repository

import (
	"context"
	"errors"

	"github.com/kursadbilgin/dial-engine/internal/domain"
	"gorm.io/gorm"
)

type CampaignRepository interface {
	Create(ctx context.Context, c *domain.Campaign) error
	GetByID(ctx context.Context, id string) (*domain.Campaign, error)
	ListActive(ctx context.Context) ([]domain.Campaign, error)
	SetActive(ctx context.Context, id string, active bool) error
	GetListByID(ctx context.Context, id string) (*domain.DataList, error)
}

type GormCampaignRepo struct {
	db *gorm.DB
}

func NewGormCampaignRepo(db *gorm.DB) *GormCampaignRepo {
	return &GormCampaignRepo{db: db}
}

func (r *GormCampaignRepo) Create(ctx context.Context, c *domain.Campaign) error {
	model := campaignModelFromDomain(c)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if c != nil {
		*c = *campaignModelToDomain(model)
	}
	return nil
}

// GetByID loads a campaign with its attached lists in stable order. List
// order matters to the generator's tie-breaking.
func (r *GormCampaignRepo) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	var model CampaignModel
	err := r.db.WithContext(ctx).
		Preload("Lists", func(db *gorm.DB) *gorm.DB {
			return db.Order("data_lists.id ASC")
		}).
		First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return campaignModelToDomain(&model), nil
}

func (r *GormCampaignRepo) ListActive(ctx context.Context) ([]domain.Campaign, error) {
	var models []CampaignModel
	err := r.db.WithContext(ctx).
		Preload("Lists", func(db *gorm.DB) *gorm.DB {
			return db.Order("data_lists.id ASC")
		}).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	campaigns := make([]domain.Campaign, 0, len(models))
	for i := range models {
		campaigns = append(campaigns, *campaignModelToDomain(&models[i]))
	}

	return campaigns, nil
}

func (r *GormCampaignRepo) SetActive(ctx context.Context, id string, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&CampaignModel{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormCampaignRepo) GetListByID(ctx context.Context, id string) (*domain.DataList, error) {
	var model DataListModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return dataListModelToDomain(&model), nil
}
