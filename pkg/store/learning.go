package store

import "time"

const (
	CategoryGeneral            = "general"
	CategoryClinicalEvaluation = "clinical_evaluation"
	CategoryCourse             = "curso_educativo"

	// Intent examples used by the mode router
	CategoryStartEvaluation = "start_evaluation"
	CategoryStartCourse     = "start_course"
	CategoryBackToChat      = "back_to_chat"
)

// LearnedRecord is a stored (question, answer) pair usable for retrieval.
// Only UsageCount and ConfidenceScore change after creation.
type LearnedRecord struct {
	ID              string     `json:"id"`
	Keyword         string     `json:"keyword"`
	Context         string     `json:"context"`
	UserMessage     string     `json:"user_message"`
	AIResponse      string     `json:"ai_response"`
	Category        string     `json:"category"`
	ConfidenceScore float64    `json:"confidence_score"`
	UsageCount      int        `json:"usage_count"`
	CreatedAt       time.Time  `json:"created_at"`
	LastUsedAt      *time.Time `json:"last_used_at,omitempty"`
}

// ModeTransition is an append-only audit entry.
type ModeTransition struct {
	SessionID  string    `json:"session_id"`
	From       Mode      `json:"from_mode"`
	To         Mode      `json:"to_mode"`
	Trigger    string    `json:"trigger_text"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}
