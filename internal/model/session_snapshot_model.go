package model

import (
	"time"

	"gorm.io/datatypes"
)

// SessionSnapshot is the last known state of a conversation. Variables,
// repetitions and the turn log are stored as JSON documents.
type SessionSnapshot struct {
	Id                  string         `gorm:"type:varchar(64);primaryKey"`
	UserId              string         `gorm:"type:varchar(64);index"`
	Mode                string         `gorm:"type:varchar(32);not null"`
	StageIndex          int            `gorm:"not null;default:0"`
	Status              string         `gorm:"type:varchar(16);not null;index"`
	Variables           datatypes.JSON `gorm:"type:jsonb"`
	Repetitions         datatypes.JSON `gorm:"type:jsonb"`
	TurnLog             datatypes.JSON `gorm:"type:jsonb"`
	History             datatypes.JSON `gorm:"type:jsonb"`
	ModeStartedAt       time.Time
	InterviewStartedAt  *time.Time
	InterviewFinishedAt *time.Time
	CreatedAt           time.Time `gorm:"autoCreateTime"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime"`
}

func (SessionSnapshot) TableName() string {
	return "session_snapshots"
}
