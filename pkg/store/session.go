package store

import (
	"encoding/json"
	"time"

	"noa-assistant-be/pkg/interview/variables"
	"noa-assistant-be/pkg/llm"
)

type Mode string

const (
	ModeExplanatory       Mode = "explanatory"
	ModeClinicalInterview Mode = "clinical_interview"
	ModeCourse            Mode = "course"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeExplanatory, ModeClinicalInterview, ModeCourse:
		return true
	}
	return false
}

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusReset     Status = "reset"
	StatusCleared   Status = "cleared"
)

// TurnEntry is one interview exchange. Entries are never edited once appended.
type TurnEntry struct {
	StageID     string    `json:"stage_id"`
	PromptShown string    `json:"prompt_shown"`
	RawReply    string    `json:"raw_reply"`
	Timestamp   time.Time `json:"timestamp"`
}

// Session represents one conversation held in memory
type Session struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Mode       Mode   `json:"mode"`
	StageIndex int    `json:"stage_index"`
	Status     Status `json:"status"`

	Variables   *variables.Store `json:"variables"`
	Repetitions map[string]int   `json:"repetitions"`
	TurnLog     []TurnEntry      `json:"turn_log"`

	// Bounded window fed to the language model
	History []llm.Message `json:"history"`

	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	ModeStartedAt       time.Time  `json:"mode_started_at"`
	InterviewStartedAt  *time.Time `json:"interview_started_at,omitempty"`
	InterviewFinishedAt *time.Time `json:"interview_finished_at,omitempty"`
}

func NewSession(id, userID string, now time.Time) *Session {
	return &Session{
		ID:            id,
		UserID:        userID,
		Mode:          ModeExplanatory,
		Status:        StatusActive,
		Variables:     variables.New(),
		Repetitions:   make(map[string]int),
		CreatedAt:     now,
		UpdatedAt:     now,
		ModeStartedAt: now,
	}
}

func (s *Session) AppendTurn(entry TurnEntry) {
	s.TurnLog = append(s.TurnLog, entry)
	s.UpdatedAt = entry.Timestamp
}

// Remember appends a message to the history, keeping at most window turns
// (a turn is a user message plus the assistant reply).
func (s *Session) Remember(role, content string, window int) {
	s.History = append(s.History, llm.Message{Role: role, Content: content})
	if window <= 0 {
		return
	}
	if limit := window * 2; len(s.History) > limit {
		s.History = append([]llm.Message(nil), s.History[len(s.History)-limit:]...)
	}
}

// ResetInterview clears everything captured by the interview. The turn log
// is kept since it is an audit trail.
func (s *Session) ResetInterview(now time.Time) {
	s.StageIndex = 0
	s.Status = StatusActive
	if s.Variables == nil {
		s.Variables = variables.New()
	}
	s.Variables.Reset()
	s.Repetitions = make(map[string]int)
	s.InterviewStartedAt = &now
	s.InterviewFinishedAt = nil
	s.UpdatedAt = now
}

// Clone returns a deep copy, used when a snapshot leaves the turn goroutine.
func (s *Session) Clone() (*Session, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	out := &Session{Variables: variables.New()}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	if out.Repetitions == nil {
		out.Repetitions = make(map[string]int)
	}
	return out, nil
}
