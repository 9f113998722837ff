package router

import (
	"context"
	"testing"
	"time"

	"noa-assistant-be/internal/pkg/logger"
	"noa-assistant-be/pkg/learning/retriever"
	"noa-assistant-be/pkg/persistence"
	"noa-assistant-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	transitions []store.ModeTransition
}

func (p *recordingPublisher) PublishTurnHandled(context.Context, string, string, store.Mode, string, int) {
}

func (p *recordingPublisher) PublishModeChanged(_ context.Context, t store.ModeTransition) {
	p.transitions = append(p.transitions, t)
}

func (p *recordingPublisher) PublishInterviewCompleted(context.Context, *store.Session) {}

func newRouter(t *testing.T, seed ...store.LearnedRecord) (*Router, *persistence.MemoryStore, *recordingPublisher) {
	t.Helper()
	table, err := DefaultTable()
	require.NoError(t, err)

	mem := persistence.NewMemoryStore(seed...)
	adapter := persistence.NewBestEffort(mem, logger.NewNopLogger(), 0, 0)
	ret := retriever.New(adapter, retriever.DefaultThresholds(), logger.NewNopLogger())
	pub := &recordingPublisher{}

	r := NewRouter(table, ret, adapter, pub, logger.NewNopLogger(), 0.5)
	r.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	return r, mem, pub
}

func sessionIn(mode store.Mode) *store.Session {
	s := store.NewSession("s-1", "u-1", time.Now())
	s.Mode = mode
	return s
}

func TestRoute(t *testing.T) {
	r, _, _ := newRouter(t)

	tests := []struct {
		name           string
		current        store.Mode
		message        string
		wantMode       store.Mode
		wantIntent     string
		wantAction     Action
		wantTransition bool
		wantConfidence float64
	}{
		{
			name:           "evaluation trigger",
			current:        store.ModeExplanatory,
			message:        "Quero fazer uma avaliação clínica",
			wantMode:       store.ModeClinicalInterview,
			wantIntent:     "start_evaluation",
			wantTransition: true,
			wantConfidence: 0.95,
		},
		{
			name:           "evaluation trigger without accents",
			current:        store.ModeExplanatory,
			message:        "quero fazer uma avaliacao clinica",
			wantMode:       store.ModeClinicalInterview,
			wantIntent:     "start_evaluation",
			wantTransition: true,
			wantConfidence: 0.95,
		},
		{
			name:           "course outranks evaluation phrases",
			current:        store.ModeExplanatory,
			message:        "quero aprender o método IMRE",
			wantMode:       store.ModeCourse,
			wantIntent:     "start_course",
			wantTransition: true,
			wantConfidence: 0.9,
		},
		{
			name:           "back to chat from the interview",
			current:        store.ModeClinicalInterview,
			message:        "quero voltar ao chat",
			wantMode:       store.ModeExplanatory,
			wantIntent:     "back_to_chat",
			wantTransition: true,
			wantConfidence: 0.9,
		},
		{
			name:           "trigger for the current mode stays",
			current:        store.ModeClinicalInterview,
			message:        "avaliação clínica",
			wantMode:       store.ModeClinicalInterview,
			wantIntent:     "start_evaluation",
			wantConfidence: 0.95,
		},
		{
			name:           "restart inside the interview",
			current:        store.ModeClinicalInterview,
			message:        "quero recomeçar avaliação",
			wantMode:       store.ModeClinicalInterview,
			wantIntent:     "restart_interview",
			wantAction:     ActionRestart,
			wantConfidence: 1.0,
		},
		{
			name:           "restart phrase outside the interview starts one",
			current:        store.ModeExplanatory,
			message:        "recomeçar avaliação",
			wantMode:       store.ModeClinicalInterview,
			wantIntent:     "start_evaluation",
			wantTransition: true,
			wantConfidence: 0.95,
		},
		{
			name:           "status inside the interview",
			current:        store.ModeClinicalInterview,
			message:        "onde estou?",
			wantMode:       store.ModeClinicalInterview,
			wantIntent:     "interview_status",
			wantAction:     ActionStatus,
			wantConfidence: 1.0,
		},
		{
			name:           "answer mentioning where it hurts is not a status request",
			current:        store.ModeClinicalInterview,
			message:        "onde estou sentindo a dor é na cabeça",
			wantMode:       store.ModeClinicalInterview,
			wantConfidence: 0.5,
		},
		{
			name:           "answer mentioning starting again is not a restart",
			current:        store.ModeClinicalInterview,
			message:        "a dor costuma começar de novo à noite",
			wantMode:       store.ModeClinicalInterview,
			wantConfidence: 0.5,
		},
		{
			name:           "bare restart phrase inside the interview",
			current:        store.ModeClinicalInterview,
			message:        "Começar de novo!",
			wantMode:       store.ModeClinicalInterview,
			wantIntent:     "restart_interview",
			wantAction:     ActionRestart,
			wantConfidence: 1.0,
		},
		{
			name:           "consultation phrase must open the message",
			current:        store.ModeClinicalInterview,
			message:        "já tive uma consulta com dr ricardo ano passado",
			wantMode:       store.ModeClinicalInterview,
			wantConfidence: 0.5,
		},
		{
			name:           "consultation request starts an evaluation",
			current:        store.ModeExplanatory,
			message:        "consulta com dr Ricardo, por favor",
			wantMode:       store.ModeClinicalInterview,
			wantIntent:     "start_evaluation",
			wantTransition: true,
			wantConfidence: 0.95,
		},
		{
			name:           "no trigger keeps the mode",
			current:        store.ModeExplanatory,
			message:        "tenho dor de cabeça",
			wantMode:       store.ModeExplanatory,
			wantConfidence: 0.5,
		},
		{
			name:           "blank message keeps the mode",
			current:        store.ModeCourse,
			message:        "   ",
			wantMode:       store.ModeCourse,
			wantConfidence: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := r.Route(context.Background(), tt.message, sessionIn(tt.current))

			assert.Equal(t, tt.wantMode, d.Mode)
			assert.Equal(t, tt.wantIntent, d.Intent)
			assert.Equal(t, tt.wantAction, d.Action)
			assert.Equal(t, tt.wantTransition, d.ShouldTransition)
			assert.InDelta(t, tt.wantConfidence, d.Confidence, 1e-9)
		})
	}
}

func TestRoute_BannerOnlyOnTransition(t *testing.T) {
	r, _, _ := newRouter(t)

	d := r.Route(context.Background(), "quero aprender", sessionIn(store.ModeExplanatory))
	assert.Contains(t, d.Banner, "Modo Curso Ativado")

	d = r.Route(context.Background(), "quero aprender", sessionIn(store.ModeCourse))
	assert.Empty(t, d.Banner)
}

func TestRoute_LearnedIntent(t *testing.T) {
	r, _, _ := newRouter(t, store.LearnedRecord{
		UserMessage:     "ensina a entrevistar pacientes",
		Category:        store.CategoryStartCourse,
		ConfidenceScore: 0.9,
	})

	d := r.Route(context.Background(), "Ensina a entrevistar pacientes!", sessionIn(store.ModeExplanatory))
	assert.Equal(t, store.ModeCourse, d.Mode)
	assert.Equal(t, SourceLearned, d.Source)
	assert.True(t, d.ShouldTransition)
	assert.Contains(t, d.Banner, "Modo Curso Ativado")

	// 2 of 3 tokens is recalled but not enough to adopt the intent.
	d = r.Route(context.Background(), "ensina pacientes", sessionIn(store.ModeExplanatory))
	assert.Equal(t, store.ModeExplanatory, d.Mode)
	assert.Equal(t, SourceDefault, d.Source)
	assert.False(t, d.ShouldTransition)
}

func TestApply_EnteringInterviewResetsProgress(t *testing.T) {
	r, mem, pub := newRouter(t)
	sess := sessionIn(store.ModeExplanatory)
	sess.StageIndex = 4
	sess.Variables.Set("nome", "Ana")

	d := r.Route(context.Background(), "iniciar avaliação", sess)
	tr, ok := r.Apply(context.Background(), sess, d, "iniciar avaliação")
	require.True(t, ok)

	assert.Equal(t, store.ModeClinicalInterview, sess.Mode)
	assert.Equal(t, 0, sess.StageIndex)
	assert.Equal(t, 0, sess.Variables.Len())
	assert.Equal(t, store.ModeExplanatory, tr.From)
	assert.Equal(t, "iniciar avaliação", tr.Trigger)

	recorded, err := mem.ListTransitions(context.Background(), "s-1", 10)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, store.ModeClinicalInterview, recorded[0].To)
	require.Len(t, pub.transitions, 1)
}

func TestApply_LeavingInterviewKeepsAnswers(t *testing.T) {
	r, _, _ := newRouter(t)
	sess := sessionIn(store.ModeClinicalInterview)
	sess.StageIndex = 3
	sess.Variables.Set("nome", "Ana")

	d := r.Route(context.Background(), "voltar ao chat", sess)
	_, ok := r.Apply(context.Background(), sess, d, "voltar ao chat")
	require.True(t, ok)

	assert.Equal(t, store.ModeExplanatory, sess.Mode)
	assert.Equal(t, 3, sess.StageIndex)
	assert.True(t, sess.Variables.Has("nome"))
}

func TestApply_NoTransition(t *testing.T) {
	r, mem, pub := newRouter(t)
	sess := sessionIn(store.ModeClinicalInterview)
	sess.StageIndex = 2

	d := r.Route(context.Background(), "avaliação clínica", sess)
	_, ok := r.Apply(context.Background(), sess, d, "avaliação clínica")

	assert.False(t, ok)
	assert.Equal(t, 2, sess.StageIndex)
	recorded, _ := mem.ListTransitions(context.Background(), "", 0)
	assert.Empty(t, recorded)
	assert.Empty(t, pub.transitions)
}

func TestForce(t *testing.T) {
	r, mem, _ := newRouter(t)
	sess := sessionIn(store.ModeCourse)

	_, err := r.Force(context.Background(), sess, store.Mode("karaoke"), "test")
	require.ErrorIs(t, err, ErrUnknownMode)
	assert.Equal(t, store.ModeCourse, sess.Mode)

	tr, err := r.Force(context.Background(), sess, store.ModeClinicalInterview, "suporte")
	require.NoError(t, err)
	assert.Equal(t, "admin_force: suporte", tr.Trigger)
	assert.InDelta(t, 1.0, tr.Confidence, 1e-9)
	assert.Equal(t, store.ModeClinicalInterview, sess.Mode)

	recorded, _ := mem.ListTransitions(context.Background(), "s-1", 0)
	assert.Len(t, recorded, 1)
}

func TestParseTable_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", "intents: []"},
		{"unknown mode", "intents:\n  - name: x\n    mode: karaoke\n    confidence: 0.9\n    patterns: [a]"},
		{"no patterns", "intents:\n  - name: x\n    mode: course\n    confidence: 0.9"},
		{"bad confidence", "intents:\n  - name: x\n    mode: course\n    confidence: 1.5\n    patterns: [a]"},
		{"unknown action", "intents:\n  - name: x\n    mode: course\n    action: dance\n    confidence: 0.9\n    patterns: [a]"},
		{"duplicate", "intents:\n  - name: x\n    mode: course\n    confidence: 0.9\n    patterns: [a]\n  - name: x\n    mode: course\n    confidence: 0.9\n    patterns: [b]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTable([]byte(tt.raw))
			assert.ErrorIs(t, err, ErrInvalidIntents)
		})
	}
}
