package implementation

import (
	"context"

	"gorm.io/gorm"

	"crm-assistant-be/internal/entity"
	"crm-assistant-be/internal/repository/contract"
	"crm-assistant-be/internal/repository/specification"
)

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) contract.IActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, activity *entity.Activity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

func (r *activityRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.Activity, error) {
	var activities []entity.Activity
	db := applySpecifications(r.db.WithContext(ctx), specs)
	if err := db.Find(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}

func (r *activityRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	db := applySpecifications(r.db.WithContext(ctx).Model(&entity.Activity{}), specs)
	if err := db.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
