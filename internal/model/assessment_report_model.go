package model

import (
	"time"

	"gorm.io/datatypes"
)

type AssessmentReport struct {
	Id           uint           `gorm:"primaryKey;autoIncrement"`
	SessionId    string         `gorm:"type:varchar(64);not null;index"`
	UserId       string         `gorm:"type:varchar(64);index"`
	PatientName  string         `gorm:"type:varchar(255)"`
	Completeness int            `gorm:"not null;default:0"`
	Completed    bool           `gorm:"not null;default:false"`
	Body         datatypes.JSON `gorm:"type:jsonb;not null"`
	Narrative    string         `gorm:"type:text"`
	GeneratedAt  time.Time      `gorm:"not null"`
}

func (AssessmentReport) TableName() string {
	return "assessment_reports"
}
