package specification

import (
	"gorm.io/gorm"
)

// Specification composes query conditions without leaking gorm into
// the service layer
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}
