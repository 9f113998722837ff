package dto

import (
	"time"

	"noa-assistant-be/pkg/store"
)

type TurnRequest struct {
	SessionId string `json:"session_id" validate:"omitempty,max=64"`
	UserId    string `json:"user_id" validate:"omitempty,max=64"`
	Message   string `json:"message" validate:"max=4000"`
}

type TurnResponse struct {
	SessionId  string   `json:"session_id"`
	Text       string   `json:"text"`
	Mode       string   `json:"mode"`
	StageIndex int      `json:"stage_index"`
	Options    []string `json:"options"`
	Source     string   `json:"source,omitempty"`
	Completed  bool     `json:"completed,omitempty"`
}

type TurnEntryResponse struct {
	StageId     string    `json:"stage_id"`
	PromptShown string    `json:"prompt_shown"`
	RawReply    string    `json:"raw_reply"`
	Timestamp   time.Time `json:"timestamp"`
}

type SessionSnapshotResponse struct {
	SessionId           string                 `json:"session_id"`
	UserId              string                 `json:"user_id"`
	Mode                string                 `json:"mode"`
	StageIndex          int                    `json:"stage_index"`
	StageId             string                 `json:"stage_id,omitempty"`
	Status              string                 `json:"status"`
	Variables           map[string]interface{} `json:"variables"`
	TurnLog             []TurnEntryResponse    `json:"turn_log"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
	InterviewStartedAt  *time.Time             `json:"interview_started_at,omitempty"`
	InterviewFinishedAt *time.Time             `json:"interview_finished_at,omitempty"`
}

type ForceModeRequest struct {
	Mode   string `json:"mode" validate:"required,oneof=explanatory clinical_interview course"`
	Reason string `json:"reason" validate:"max=255"`
}

type TransitionResponse struct {
	SessionId  string    `json:"session_id"`
	FromMode   string    `json:"from_mode"`
	ToMode     string    `json:"to_mode"`
	Trigger    string    `json:"trigger_text"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

type ReportResponse struct {
	Report    store.AssessmentReport `json:"report"`
	Narrative string                 `json:"narrative"`
}
