package specification

import "gorm.io/gorm"

// Specification narrows a query over one of the dialogue tables.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}
