package contract

import (
	"context"

	"crm-assistant-be/internal/entity"
	"crm-assistant-be/internal/repository/specification"
)

type IContactRepository interface {
	Create(ctx context.Context, contact *entity.Contact) error
	Update(ctx context.Context, contact *entity.Contact) error
	Delete(ctx context.Context, contact *entity.Contact) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Contact, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.Contact, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

type IAccountRepository interface {
	Create(ctx context.Context, account *entity.Account) error
	Update(ctx context.Context, account *entity.Account) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Account, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.Account, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

type IDealRepository interface {
	Create(ctx context.Context, deal *entity.Deal) error
	Update(ctx context.Context, deal *entity.Deal) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Deal, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.Deal, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

type IActivityRepository interface {
	Create(ctx context.Context, activity *entity.Activity) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.Activity, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

type ITeamMemberRepository interface {
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.TeamMember, error)
}
