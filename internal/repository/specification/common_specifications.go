package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type byIDSpecification struct {
	id uuid.UUID
}

func (s byIDSpecification) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.id)
}

func ByID(id uuid.UUID) Specification {
	return byIDSpecification{id: id}
}

type byTeamIDSpecification struct {
	teamID uuid.UUID
}

func (s byTeamIDSpecification) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("team_id = ?", s.teamID)
}

func ByTeamID(teamID uuid.UUID) Specification {
	return byTeamIDSpecification{teamID: teamID}
}

type byUserIDSpecification struct {
	userID uuid.UUID
}

func (s byUserIDSpecification) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.userID)
}

func ByUserID(userID uuid.UUID) Specification {
	return byUserIDSpecification{userID: userID}
}

type notDeletedSpecification struct{}

func (s notDeletedSpecification) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_deleted = ?", false)
}

func NotDeleted() Specification {
	return notDeletedSpecification{}
}

type orderBySpecification struct {
	field     string
	direction string
}

func (s orderBySpecification) Apply(db *gorm.DB) *gorm.DB {
	return db.Order(s.field + " " + s.direction)
}

func OrderBy(field, direction string) Specification {
	if direction != "desc" {
		direction = "asc"
	}
	return orderBySpecification{field: field, direction: direction}
}

type paginationSpecification struct {
	limit  int
	offset int
}

func (s paginationSpecification) Apply(db *gorm.DB) *gorm.DB {
	return db.Limit(s.limit).Offset(s.offset)
}

func Pagination(limit, offset int) Specification {
	return paginationSpecification{limit: limit, offset: offset}
}

type Filter struct {
	Field string
	Value interface{}
}

type filterBySpecification struct {
	filters []Filter
}

func (s filterBySpecification) Apply(db *gorm.DB) *gorm.DB {
	for _, f := range s.filters {
		db = db.Where(f.Field+" = ?", f.Value)
	}
	return db
}

func FilterBy(filters ...Filter) Specification {
	return filterBySpecification{filters: filters}
}
