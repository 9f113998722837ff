package model

import "time"

type LearnedRecord struct {
	Id              string    `gorm:"type:varchar(36);primaryKey"`
	Keyword         string    `gorm:"type:varchar(255);index"`
	Context         string    `gorm:"type:varchar(64)"`
	UserMessage     string    `gorm:"type:text;not null"`
	AiResponse      string    `gorm:"type:text;not null"`
	Category        string    `gorm:"type:varchar(64);not null;index"`
	ConfidenceScore float64   `gorm:"not null;default:0.5"`
	UsageCount      int       `gorm:"not null;default:0"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	LastUsedAt      *time.Time
}

func (LearnedRecord) TableName() string {
	return "learned_records"
}
