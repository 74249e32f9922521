package implementation

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"crm-assistant-be/internal/entity"
	"crm-assistant-be/internal/repository/contract"
	"crm-assistant-be/internal/repository/specification"
)

type dealRepository struct {
	db *gorm.DB
}

func NewDealRepository(db *gorm.DB) contract.IDealRepository {
	return &dealRepository{db: db}
}

func (r *dealRepository) Create(ctx context.Context, deal *entity.Deal) error {
	return r.db.WithContext(ctx).Create(deal).Error
}

func (r *dealRepository) Update(ctx context.Context, deal *entity.Deal) error {
	return r.db.WithContext(ctx).Save(deal).Error
}

func (r *dealRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Deal, error) {
	var deal entity.Deal
	db := applySpecifications(r.db.WithContext(ctx), specs)
	if err := db.First(&deal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &deal, nil
}

func (r *dealRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.Deal, error) {
	var deals []entity.Deal
	db := applySpecifications(r.db.WithContext(ctx), specs)
	if err := db.Find(&deals).Error; err != nil {
		return nil, err
	}
	return deals, nil
}

func (r *dealRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	db := applySpecifications(r.db.WithContext(ctx).Model(&entity.Deal{}), specs)
	if err := db.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
