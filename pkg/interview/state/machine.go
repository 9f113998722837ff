package state

import (
	"context"
	"fmt"
	"strings"
	"time"

	"noa-assistant-be/internal/pkg/logger"
	"noa-assistant-be/pkg/interview/stage"
	"noa-assistant-be/pkg/interview/variables"
	"noa-assistant-be/pkg/persistence"
	"noa-assistant-be/pkg/store"
	"noa-assistant-be/pkg/textnorm"
)

const (
	CompletionMessage = "✅ Avaliação finalizada. Obrigado!"

	logModule = "INTERVIEW"
)

// DefaultNegations end a repeat-until-negation stage. Matching is a
// case-insensitive substring test, with and without accents.
var DefaultNegations = []string{
	"nada", "não", "nenhuma", "nenhum", "pronto", "acabou", "fim",
	"é isso", "só isso", "não tem mais", "é só isso",
	"acabei", "terminei", "ok", "beleza", "tudo bem",
	"pode continuar", "avançar", "próxima", "seguir",
}

// Outcome describes what one call to Advance did.
type Outcome struct {
	Prompt        string
	StageID       string
	StageIndex    int
	Advanced      bool
	Captured      bool
	Completed     bool
	ForcedAdvance bool
	Options       []string
}

// Machine walks a session through the stage table. It holds no per-session
// state; callers serialize calls for the same session.
type Machine struct {
	table          *stage.Table
	negations      []string
	maxRepetitions int
	extractors     map[string]Extractor
	recorder       persistence.Adapter
	logger         logger.ILogger
	now            func() time.Time
}

type Option func(*Machine)

// WithNegations replaces the tokens that close a repeating stage. An empty
// list keeps DefaultNegations.
func WithNegations(tokens []string) Option {
	return func(m *Machine) {
		if len(tokens) > 0 {
			m.negations = tokens
		}
	}
}

// WithMaxRepetitions caps how many items a repeating stage accepts before it
// moves on by itself. Zero means no cap.
func WithMaxRepetitions(n int) Option {
	return func(m *Machine) {
		if n >= 0 {
			m.maxRepetitions = n
		}
	}
}

func WithRecorder(r persistence.Adapter) Option {
	return func(m *Machine) {
		if r != nil {
			m.recorder = r
		}
	}
}

func WithLogger(l logger.ILogger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

func NewMachine(table *stage.Table, opts ...Option) *Machine {
	m := &Machine{
		table:      table,
		negations:  DefaultNegations,
		extractors: defaultExtractors(),
		recorder:   persistence.Noop{},
		logger:     logger.NewNopLogger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) Table() *stage.Table {
	return m.table
}

// IsNegation reports whether the reply closes a repeating stage.
func (m *Machine) IsNegation(reply string) bool {
	_, ok := textnorm.ContainsAny(reply, m.negations)
	return ok
}

// Begin presents the current stage without consuming anything.
func (m *Machine) Begin(ctx context.Context, sess *store.Session) Outcome {
	if sess.InterviewStartedAt == nil {
		now := m.now()
		sess.InterviewStartedAt = &now
	}
	if m.done(sess) {
		return m.completion(ctx, sess, false)
	}
	return m.present(sess, sess.StageIndex)
}

// Restart throws away everything captured and goes back to the first stage.
func (m *Machine) Restart(ctx context.Context, sess *store.Session) Outcome {
	sess.ResetInterview(m.now())
	m.logger.Info(logModule, "Interview restarted", map[string]interface{}{
		"session_id": sess.ID,
	})
	m.recorder.UpsertSessionSnapshot(ctx, sess)
	return m.present(sess, 0)
}

// Prompt renders the prompt of the stage the session is at.
func (m *Machine) Prompt(sess *store.Session) string {
	if m.done(sess) {
		return CompletionMessage
	}
	return m.present(sess, sess.StageIndex).Prompt
}

// Advance consumes one reply for the current stage.
func (m *Machine) Advance(ctx context.Context, sess *store.Session, reply string) Outcome {
	if m.done(sess) {
		return m.completion(ctx, sess, false)
	}

	reply = strings.TrimSpace(reply)
	st, _ := m.table.At(sess.StageIndex)
	if reply == "" {
		return m.present(sess, sess.StageIndex)
	}
	if sess.Variables == nil {
		sess.Variables = variables.New()
	}

	now := m.now()
	sess.AppendTurn(store.TurnEntry{
		StageID:     st.ID,
		PromptShown: m.render(sess, st),
		RawReply:    reply,
		Timestamp:   now,
	})

	switch {
	case st.Repeats():
		if m.IsNegation(reply) {
			return m.next(ctx, sess, st, false)
		}
		count := sess.Variables.Append(st.Variable, reply)
		if sess.Repetitions == nil {
			sess.Repetitions = make(map[string]int)
		}
		sess.Repetitions[st.ID] = count
		if m.maxRepetitions > 0 && count >= m.maxRepetitions {
			m.logger.Warn(logModule, "Repetition cap reached, advancing", map[string]interface{}{
				"session_id": sess.ID,
				"stage":      st.ID,
				"count":      count,
			})
			out := m.next(ctx, sess, st, true)
			out.Captured = true
			return out
		}
		return Outcome{
			Prompt:     m.acknowledge(sess, st, reply, count),
			StageID:    st.ID,
			StageIndex: sess.StageIndex,
			Captured:   true,
			Options:    st.Options,
		}

	case st.IsNarration():
		return m.next(ctx, sess, st, false)

	default:
		sess.Variables.Set(st.Variable, reply)
		if st.Extract != "" {
			m.extract(sess, st, reply)
		}
		out := m.next(ctx, sess, st, false)
		out.Captured = true
		return out
	}
}

// Status describes the interview progress in plain text.
func (m *Machine) Status(sess *store.Session) string {
	next := CompletionMessage
	current := m.table.Len()
	if !m.done(sess) {
		next = m.Prompt(sess)
		current = sess.StageIndex + 1
	}
	return fmt.Sprintf("📊 Status da Avaliação:\n- Etapa atual: %d de %d\n- Respostas coletadas: %d\n- Próxima pergunta: %s",
		current, m.table.Len(), sess.Variables.Len(), next)
}

func (m *Machine) next(ctx context.Context, sess *store.Session, from stage.Stage, forced bool) Outcome {
	sess.StageIndex++
	delete(sess.Repetitions, from.ID)
	sess.UpdatedAt = m.now()

	m.logger.Debug(logModule, "Stage advanced", map[string]interface{}{
		"session_id": sess.ID,
		"from":       from.ID,
		"to_index":   sess.StageIndex,
		"forced":     forced,
	})

	if m.done(sess) {
		return m.completion(ctx, sess, true)
	}

	m.recorder.UpsertSessionSnapshot(ctx, sess)
	out := m.present(sess, sess.StageIndex)
	out.Advanced = true
	out.ForcedAdvance = forced
	return out
}

func (m *Machine) completion(ctx context.Context, sess *store.Session, justFinished bool) Outcome {
	if justFinished || sess.Status != store.StatusCompleted {
		now := m.now()
		sess.Status = store.StatusCompleted
		sess.InterviewFinishedAt = &now
		m.logger.Info(logModule, "Interview completed", map[string]interface{}{
			"session_id": sess.ID,
			"captured":   sess.Variables.Len(),
		})
		m.recorder.UpsertSessionSnapshot(ctx, sess)
	}
	return Outcome{
		Prompt:     CompletionMessage,
		StageIndex: m.table.Len(),
		Advanced:   justFinished,
		Completed:  true,
	}
}

func (m *Machine) present(sess *store.Session, index int) Outcome {
	st, _ := m.table.At(index)
	return Outcome{
		Prompt:     m.render(sess, st),
		StageID:    st.ID,
		StageIndex: index,
		Options:    st.Options,
	}
}

func (m *Machine) acknowledge(sess *store.Session, st stage.Stage, reply string, count int) string {
	if count == 1 {
		return fmt.Sprintf("%s\n\n✅ Entendi. Você mencionou: \"%s\". Há mais alguma coisa que gostaria de me contar? Se não, diga \"não\" ou \"é isso\" para continuarmos.",
			m.render(sess, st), stage.Sanitize(reply))
	}
	return fmt.Sprintf("✅ Obrigado pelas informações. Você já me contou %d motivos. Há mais alguma coisa? Se não, diga \"não\" ou \"é isso\" para continuarmos.", count)
}

func (m *Machine) render(sess *store.Session, st stage.Stage) string {
	out, unresolved := m.table.Render(st.Prompt, sess.Variables)
	if len(unresolved) > 0 {
		m.logger.Warn(logModule, "Unresolved placeholders replaced by fallback", map[string]interface{}{
			"session_id":   sess.ID,
			"stage":        st.ID,
			"placeholders": unresolved,
		})
	}
	return out
}

func (m *Machine) extract(sess *store.Session, st stage.Stage, reply string) {
	fn, ok := m.extractors[st.Extract]
	if !ok {
		m.logger.Warn(logModule, "Unknown extractor", map[string]interface{}{"stage": st.ID, "extractor": st.Extract})
		return
	}
	if v, ok := fn(reply); ok {
		sess.Variables.Set(st.Extract, v)
	}
}

func (m *Machine) done(sess *store.Session) bool {
	return sess.StageIndex >= m.table.Len()
}
