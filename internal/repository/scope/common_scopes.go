package scope

import "gorm.io/gorm"

func OrderByCreatedDesc(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC")
}

func OrderByCreatedAsc(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}

// OrderByOccurredDesc puts the newest audit entries first. The id breaks
// ties between entries written in the same instant.
func OrderByOccurredDesc(db *gorm.DB) *gorm.DB {
	return db.Order("occurred_at DESC").Order("id DESC")
}
