package specification

import "gorm.io/gorm"

type BySessionID struct {
	SessionID string
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	if s.SessionID == "" {
		return db
	}
	return db.Where("session_id = ?", s.SessionID)
}

type ByUserID struct {
	UserID string
}

func (s ByUserID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

// ByCategories matches learned records in any of the categories. No
// categories means no filter.
type ByCategories struct {
	Categories []string
}

func (s ByCategories) Apply(db *gorm.DB) *gorm.DB {
	if len(s.Categories) == 0 {
		return db
	}
	return db.Where("category IN ?", s.Categories)
}

type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}
