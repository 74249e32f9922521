package implementation

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"crm-assistant-be/internal/entity"
	"crm-assistant-be/internal/repository/contract"
	"crm-assistant-be/internal/repository/specification"
)

type contactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) contract.IContactRepository {
	return &contactRepository{db: db}
}

func applySpecifications(db *gorm.DB, specs []specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *contactRepository) Create(ctx context.Context, contact *entity.Contact) error {
	return r.db.WithContext(ctx).Create(contact).Error
}

func (r *contactRepository) Update(ctx context.Context, contact *entity.Contact) error {
	return r.db.WithContext(ctx).Save(contact).Error
}

func (r *contactRepository) Delete(ctx context.Context, contact *entity.Contact) error {
	return r.db.WithContext(ctx).Delete(contact).Error
}

func (r *contactRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Contact, error) {
	var contact entity.Contact
	db := applySpecifications(r.db.WithContext(ctx), specs)
	if err := db.First(&contact).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contact, nil
}

func (r *contactRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.Contact, error) {
	var contacts []entity.Contact
	db := applySpecifications(r.db.WithContext(ctx), specs)
	if err := db.Find(&contacts).Error; err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *contactRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	db := applySpecifications(r.db.WithContext(ctx).Model(&entity.Contact{}), specs)
	if err := db.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
