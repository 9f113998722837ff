package model

import "time"

type ModeTransition struct {
	Id          uint      `gorm:"primaryKey;autoIncrement"`
	SessionId   string    `gorm:"type:varchar(64);not null;index"`
	FromMode    string    `gorm:"type:varchar(32);not null"`
	ToMode      string    `gorm:"type:varchar(32);not null"`
	TriggerText string    `gorm:"type:text"`
	Confidence  float64   `gorm:"not null"`
	OccurredAt  time.Time `gorm:"not null;index"`
}

func (ModeTransition) TableName() string {
	return "mode_transitions"
}
