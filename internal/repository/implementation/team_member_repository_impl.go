package implementation

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"crm-assistant-be/internal/entity"
	"crm-assistant-be/internal/repository/contract"
	"crm-assistant-be/internal/repository/specification"
)

type teamMemberRepository struct {
	db *gorm.DB
}

func NewTeamMemberRepository(db *gorm.DB) contract.ITeamMemberRepository {
	return &teamMemberRepository{db: db}
}

func (r *teamMemberRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.TeamMember, error) {
	var member entity.TeamMember
	db := applySpecifications(r.db.WithContext(ctx), specs)
	if err := db.First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}
