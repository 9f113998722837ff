package mapper

import (
	"encoding/json"
	"fmt"

	"noa-assistant-be/internal/model"
	"noa-assistant-be/pkg/interview/variables"
	"noa-assistant-be/pkg/llm"
	"noa-assistant-be/pkg/store"

	"gorm.io/datatypes"
)

type DialogueMapper struct{}

func NewDialogueMapper() *DialogueMapper {
	return &DialogueMapper{}
}

// Session Mappers

func (m *DialogueMapper) SessionToModel(s *store.Session) (*model.SessionSnapshot, error) {
	if s == nil {
		return nil, nil
	}

	vars, err := toJSON(s.Variables)
	if err != nil {
		return nil, fmt.Errorf("encode variables: %w", err)
	}
	reps, err := toJSON(s.Repetitions)
	if err != nil {
		return nil, fmt.Errorf("encode repetitions: %w", err)
	}
	turns, err := toJSON(s.TurnLog)
	if err != nil {
		return nil, fmt.Errorf("encode turn log: %w", err)
	}
	history, err := toJSON(s.History)
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}

	return &model.SessionSnapshot{
		Id:                  s.ID,
		UserId:              s.UserID,
		Mode:                string(s.Mode),
		StageIndex:          s.StageIndex,
		Status:              string(s.Status),
		Variables:           vars,
		Repetitions:         reps,
		TurnLog:             turns,
		History:             history,
		ModeStartedAt:       s.ModeStartedAt,
		InterviewStartedAt:  s.InterviewStartedAt,
		InterviewFinishedAt: s.InterviewFinishedAt,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}, nil
}

func (m *DialogueMapper) SessionToStore(s *model.SessionSnapshot) (*store.Session, error) {
	if s == nil {
		return nil, nil
	}

	out := &store.Session{
		ID:                  s.Id,
		UserID:              s.UserId,
		Mode:                store.Mode(s.Mode),
		StageIndex:          s.StageIndex,
		Status:              store.Status(s.Status),
		Variables:           variables.New(),
		Repetitions:         make(map[string]int),
		ModeStartedAt:       s.ModeStartedAt,
		InterviewStartedAt:  s.InterviewStartedAt,
		InterviewFinishedAt: s.InterviewFinishedAt,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
	if err := fromJSON(s.Variables, out.Variables); err != nil {
		return nil, fmt.Errorf("decode variables: %w", err)
	}
	if err := fromJSON(s.Repetitions, &out.Repetitions); err != nil {
		return nil, fmt.Errorf("decode repetitions: %w", err)
	}
	if err := fromJSON(s.TurnLog, &out.TurnLog); err != nil {
		return nil, fmt.Errorf("decode turn log: %w", err)
	}
	var history []llm.Message
	if err := fromJSON(s.History, &history); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	out.History = history
	if out.Repetitions == nil {
		out.Repetitions = make(map[string]int)
	}
	return out, nil
}

// Learned Record Mappers

func (m *DialogueMapper) RecordToModel(r *store.LearnedRecord) *model.LearnedRecord {
	if r == nil {
		return nil
	}
	return &model.LearnedRecord{
		Id:              r.ID,
		Keyword:         r.Keyword,
		Context:         r.Context,
		UserMessage:     r.UserMessage,
		AiResponse:      r.AIResponse,
		Category:        r.Category,
		ConfidenceScore: r.ConfidenceScore,
		UsageCount:      r.UsageCount,
		CreatedAt:       r.CreatedAt,
		LastUsedAt:      r.LastUsedAt,
	}
}

func (m *DialogueMapper) RecordToStore(r *model.LearnedRecord) store.LearnedRecord {
	return store.LearnedRecord{
		ID:              r.Id,
		Keyword:         r.Keyword,
		Context:         r.Context,
		UserMessage:     r.UserMessage,
		AIResponse:      r.AiResponse,
		Category:        r.Category,
		ConfidenceScore: r.ConfidenceScore,
		UsageCount:      r.UsageCount,
		CreatedAt:       r.CreatedAt,
		LastUsedAt:      r.LastUsedAt,
	}
}

func (m *DialogueMapper) RecordsToStore(models []*model.LearnedRecord) []store.LearnedRecord {
	out := make([]store.LearnedRecord, len(models))
	for i, r := range models {
		out[i] = m.RecordToStore(r)
	}
	return out
}

// Transition Mappers

func (m *DialogueMapper) TransitionToModel(t *store.ModeTransition) *model.ModeTransition {
	if t == nil {
		return nil
	}
	return &model.ModeTransition{
		SessionId:   t.SessionID,
		FromMode:    string(t.From),
		ToMode:      string(t.To),
		TriggerText: t.Trigger,
		Confidence:  t.Confidence,
		OccurredAt:  t.Timestamp,
	}
}

func (m *DialogueMapper) TransitionsToStore(models []*model.ModeTransition) []store.ModeTransition {
	out := make([]store.ModeTransition, len(models))
	for i, t := range models {
		out[i] = store.ModeTransition{
			SessionID:  t.SessionId,
			From:       store.Mode(t.FromMode),
			To:         store.Mode(t.ToMode),
			Trigger:    t.TriggerText,
			Confidence: t.Confidence,
			Timestamp:  t.OccurredAt,
		}
	}
	return out
}

// Report Mappers

func (m *DialogueMapper) ReportToModel(r *store.AssessmentReport) (*model.AssessmentReport, error) {
	if r == nil {
		return nil, nil
	}
	body, err := toJSON(r)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return &model.AssessmentReport{
		SessionId:    r.SessionID,
		UserId:       r.UserID,
		PatientName:  r.PatientName,
		Completeness: r.Completeness,
		Completed:    r.Completed,
		Body:         body,
		Narrative:    r.Narrative(),
		GeneratedAt:  r.GeneratedAt,
	}, nil
}

func (m *DialogueMapper) ReportToStore(r *model.AssessmentReport) (store.AssessmentReport, error) {
	var out store.AssessmentReport
	if err := fromJSON(r.Body, &out); err != nil {
		return store.AssessmentReport{}, fmt.Errorf("decode report: %w", err)
	}
	return out, nil
}

func toJSON(v interface{}) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func fromJSON(raw datatypes.JSON, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}
