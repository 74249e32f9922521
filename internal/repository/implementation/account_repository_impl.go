package implementation

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"crm-assistant-be/internal/entity"
	"crm-assistant-be/internal/repository/contract"
	"crm-assistant-be/internal/repository/specification"
)

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) contract.IAccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *accountRepository) Update(ctx context.Context, account *entity.Account) error {
	return r.db.WithContext(ctx).Save(account).Error
}

func (r *accountRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Account, error) {
	var account entity.Account
	db := applySpecifications(r.db.WithContext(ctx), specs)
	if err := db.First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.Account, error) {
	var accounts []entity.Account
	db := applySpecifications(r.db.WithContext(ctx), specs)
	if err := db.Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	db := applySpecifications(r.db.WithContext(ctx).Model(&entity.Account{}), specs)
	if err := db.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
