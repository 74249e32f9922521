package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Contact struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TeamId    uuid.UUID `gorm:"type:uuid;index"`
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Company   string
	OwnerId   uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}

type Account struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TeamId    uuid.UUID `gorm:"type:uuid;index"`
	Name      string
	Industry  string
	Website   string
	OwnerId   uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}

type Deal struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TeamId    uuid.UUID `gorm:"type:uuid;index"`
	Name      string
	Stage     string
	Amount    float64
	AccountId uuid.UUID `gorm:"type:uuid;index"`
	ContactId uuid.UUID `gorm:"type:uuid;index"`
	OwnerId   uuid.UUID `gorm:"type:uuid;index"`
	CloseDate *time.Time
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}

// Activity carries free-form payload per activity type (call notes,
// meeting attendees, email metadata) in a JSON column
type Activity struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TeamId    uuid.UUID `gorm:"type:uuid;index"`
	Type      string    // call, email, meeting, note
	Subject   string
	Metadata  datatypes.JSON
	ContactId uuid.UUID `gorm:"type:uuid;index"`
	DealId    uuid.UUID `gorm:"type:uuid;index"`
	OwnerId   uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// TeamMember maps a user to the team whose records they see
type TeamMember struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId    uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	TeamId    uuid.UUID `gorm:"type:uuid;index"`
	Role      string
	CreatedAt time.Time
}
