package pipeline

import (
	"context"
	"strings"
	"time"

	"noa-assistant-be/internal/pkg/logger"
	"noa-assistant-be/pkg/interview/state"
	"noa-assistant-be/pkg/learning/retriever"
	"noa-assistant-be/pkg/llm"
	"noa-assistant-be/pkg/persistence"
	"noa-assistant-be/pkg/store"
)

const (
	Apology     = "Desculpe, estou com dificuldade para responder agora. Pode tentar novamente em instantes?"
	EmptyPrompt = "Não recebi nenhuma mensagem. Como posso ajudar você hoje?"

	logModule = "COMPOSER"
)

// Where a reply came from.
const (
	SourceSafety    = "safety"
	SourceRule      = "rule"
	SourcePrompt    = "prompt"
	SourceInterview = "interview"
	SourceLearned   = "learned"
	SourceLLM       = "llm"
	SourceApology   = "apology"
)

// Confidence stored with each kind of learned candidate.
const (
	confidenceGeneral  = 0.5
	confidenceClinical = 0.95
	confidenceCourse   = 0.5
)

type Reply struct {
	Text    string
	Source  string
	Options []string
	Score   float64
	Outcome *state.Outcome
}

type ComposerDeps struct {
	Rules         *RuleSet
	Machine       *state.Machine
	Course        *CourseHandler
	Retriever     *retriever.Retriever
	LLM           *BypassPipeline
	Recorder      persistence.Adapter
	Logger        logger.ILogger
	HistoryWindow int
}

// Composer runs the fallback chain: safety, local rules, the mode delegate,
// learned replies and finally the language model.
type Composer struct {
	rules         *RuleSet
	machine       *state.Machine
	course        *CourseHandler
	retriever     *retriever.Retriever
	llm           *BypassPipeline
	recorder      persistence.Adapter
	logger        logger.ILogger
	historyWindow int
	now           func() time.Time
}

func NewComposer(deps ComposerDeps) *Composer {
	c := &Composer{
		rules:         deps.Rules,
		machine:       deps.Machine,
		course:        deps.Course,
		retriever:     deps.Retriever,
		llm:           deps.LLM,
		recorder:      deps.Recorder,
		logger:        deps.Logger,
		historyWindow: deps.HistoryWindow,
		now:           time.Now,
	}
	if c.rules == nil {
		c.rules = &RuleSet{}
	}
	if c.recorder == nil {
		c.recorder = persistence.Noop{}
	}
	if c.logger == nil {
		c.logger = logger.NewNopLogger()
	}
	if c.historyWindow <= 0 {
		c.historyWindow = 8
	}
	return c
}

// Screen runs only the safety step.
func (c *Composer) Screen(message string, mode store.Mode) (Reply, bool) {
	text, group, ok := c.rules.CheckSafety(message, mode)
	if !ok {
		return Reply{}, false
	}
	c.logger.Info(logModule, "Message refused by safety filter", map[string]interface{}{
		"group": group,
		"mode":  mode,
	})
	return Reply{Text: text, Source: SourceSafety}, true
}

// Respond never fails; the worst case is the fixed apology.
func (c *Composer) Respond(ctx context.Context, message string, sess *store.Session) Reply {
	if r, ok := c.Screen(message, sess.Mode); ok {
		return r
	}

	if text, rule, ok := c.rules.Answer(message, sess.Mode); ok {
		c.logger.Debug(logModule, "Local rule matched", map[string]interface{}{
			"session_id": sess.ID,
			"rule":       rule,
		})
		c.remember(ctx, sess, message, text, store.CategoryGeneral, confidenceGeneral)
		return Reply{Text: text, Source: SourceRule, Score: 1}
	}

	switch sess.Mode {
	case store.ModeClinicalInterview:
		if c.machine != nil {
			return c.interview(ctx, message, sess)
		}
	case store.ModeCourse:
		if c.course != nil {
			return c.courseReply(ctx, message, sess)
		}
	}

	if strings.TrimSpace(message) == "" {
		return Reply{Text: EmptyPrompt, Source: SourcePrompt}
	}

	if c.retriever != nil {
		if m, ok := c.retriever.Lookup(ctx, message, store.CategoryGeneral); ok && c.retriever.Thresholds().AnswersAlone(m.Score) {
			c.retriever.MarkUsed(ctx, m)
			return Reply{Text: m.Record.AIResponse, Source: SourceLearned, Score: m.Score}
		}
	}

	return c.fallback(ctx, message, sess)
}

func (c *Composer) interview(ctx context.Context, message string, sess *store.Session) Reply {
	stageID := ""
	if st, ok := c.machine.Table().At(sess.StageIndex); ok {
		stageID = st.ID
	}
	out := c.machine.Advance(ctx, sess, message)
	if out.Captured {
		c.record(ctx, store.LearnedRecord{
			Keyword:         retriever.Keyword(message),
			Context:         stageID,
			UserMessage:     message,
			AIResponse:      out.Prompt,
			Category:        store.CategoryClinicalEvaluation,
			ConfidenceScore: confidenceClinical,
		})
	}
	return Reply{Text: out.Prompt, Source: SourceInterview, Options: out.Options, Score: 1, Outcome: &out}
}

func (c *Composer) courseReply(ctx context.Context, message string, sess *store.Session) Reply {
	ans := c.course.Respond(ctx, message)
	if ans.Source == SourceCourseTopic {
		c.remember(ctx, sess, message, ans.Body, store.CategoryCourse, confidenceCourse)
	}
	return Reply{Text: ans.Text, Source: ans.Source, Score: ans.Score}
}

func (c *Composer) fallback(ctx context.Context, message string, sess *store.Session) Reply {
	if c.llm == nil {
		return Reply{Text: Apology, Source: SourceApology}
	}
	text, err := c.llm.Execute(ctx, message, c.window(sess.History))
	if err != nil {
		c.logger.Error(logModule, "Fallback chain exhausted", map[string]interface{}{
			"session_id": sess.ID,
			"error":      err.Error(),
		})
		return Reply{Text: Apology, Source: SourceApology}
	}
	c.remember(ctx, sess, message, text, store.CategoryGeneral, confidenceGeneral)
	return Reply{Text: text, Source: SourceLLM}
}

func (c *Composer) window(history []llm.Message) []llm.Message {
	if limit := c.historyWindow * 2; len(history) > limit {
		return history[len(history)-limit:]
	}
	return history
}

func (c *Composer) remember(ctx context.Context, sess *store.Session, message, answer, category string, confidence float64) {
	c.record(ctx, store.LearnedRecord{
		Keyword:         retriever.Keyword(message),
		Context:         string(sess.Mode),
		UserMessage:     message,
		AIResponse:      answer,
		Category:        category,
		ConfidenceScore: confidence,
	})
}

func (c *Composer) record(ctx context.Context, rec store.LearnedRecord) {
	if strings.TrimSpace(rec.UserMessage) == "" || strings.TrimSpace(rec.AIResponse) == "" {
		return
	}
	rec.CreatedAt = c.now()
	c.recorder.AppendLearnedRecord(ctx, rec)
}
