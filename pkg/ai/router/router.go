package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"noa-assistant-be/internal/pkg/logger"
	"noa-assistant-be/pkg/ai/events"
	"noa-assistant-be/pkg/learning/retriever"
	"noa-assistant-be/pkg/persistence"
	"noa-assistant-be/pkg/store"
)

const logModule = "ROUTER"

var ErrUnknownMode = errors.New("unknown conversation mode")

// Where a decision came from.
const (
	SourceTrigger = "trigger"
	SourceLearned = "learned"
	SourceDefault = "default"
)

// learnedIntents are the corpus categories holding intent examples. Each one
// is named after the intent it teaches.
var learnedIntents = []string{
	store.CategoryStartEvaluation,
	store.CategoryStartCourse,
	store.CategoryBackToChat,
}

// Decision is the outcome of routing one message.
type Decision struct {
	Mode             store.Mode
	Confidence       float64
	ShouldTransition bool
	Intent           string
	Action           Action
	Source           string
	Banner           string
	Matched          string
}

// Router picks the conversation mode for each incoming message.
type Router struct {
	table             *Table
	retriever         *retriever.Retriever
	recorder          persistence.Adapter
	publisher         events.Publisher
	logger            logger.ILogger
	defaultConfidence float64
	now               func() time.Time
}

// NewRouter wires the router. A nil retriever disables the learned step.
func NewRouter(
	table *Table,
	ret *retriever.Retriever,
	recorder persistence.Adapter,
	publisher events.Publisher,
	log logger.ILogger,
	defaultConfidence float64,
) *Router {
	if recorder == nil {
		recorder = persistence.Noop{}
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Router{
		table:             table,
		retriever:         ret,
		recorder:          recorder,
		publisher:         publisher,
		logger:            log,
		defaultConfidence: defaultConfidence,
		now:               time.Now,
	}
}

func (r *Router) Table() *Table {
	return r.table
}

// Route classifies message against the session's current mode. It never
// mutates the session.
func (r *Router) Route(ctx context.Context, message string, sess *store.Session) Decision {
	current := sess.Mode
	if !current.Valid() {
		current = store.ModeExplanatory
	}
	stay := Decision{Mode: current, Confidence: r.defaultConfidence, Source: SourceDefault}

	if strings.TrimSpace(message) == "" {
		return stay
	}

	if in, pattern, ok := r.table.Match(message, current); ok {
		d := Decision{
			Mode:       in.Mode,
			Confidence: in.Confidence,
			Intent:     in.Name,
			Action:     in.Action,
			Source:     SourceTrigger,
			Matched:    pattern,
		}
		if in.Action != ActionNone || in.Mode == current {
			d.Mode = current
		} else {
			d.ShouldTransition = true
			d.Banner = in.Banner
		}
		r.logger.Debug(logModule, "Trigger matched", map[string]interface{}{
			"session_id": sess.ID,
			"intent":     in.Name,
			"pattern":    pattern,
			"transition": d.ShouldTransition,
		})
		return d
	}

	if r.retriever != nil {
		if m, ok := r.retriever.Lookup(ctx, message, learnedIntents...); ok && r.retriever.Thresholds().AdoptsIntent(m.Score) {
			if in, known := r.table.Intent(m.Record.Category); known && in.Action == ActionNone {
				d := Decision{
					Mode:       in.Mode,
					Confidence: m.Score,
					Intent:     in.Name,
					Source:     SourceLearned,
					Matched:    m.Record.UserMessage,
				}
				if in.Mode == current {
					d.Mode = current
				} else {
					d.ShouldTransition = true
					d.Banner = r.table.Banner(in.Mode)
				}
				r.logger.Debug(logModule, "Learned intent adopted", map[string]interface{}{
					"session_id": sess.ID,
					"intent":     in.Name,
					"score":      m.Score,
					"record_id":  m.Record.ID,
				})
				return d
			}
		}
	}

	return stay
}

// Apply switches the session to the decided mode. It reports false when the
// decision does not call for a switch.
func (r *Router) Apply(ctx context.Context, sess *store.Session, d Decision, trigger string) (store.ModeTransition, bool) {
	if !d.ShouldTransition || d.Mode == sess.Mode || !d.Mode.Valid() {
		return store.ModeTransition{}, false
	}
	return r.switchMode(ctx, sess, d.Mode, trigger, d.Confidence), true
}

// Force puts the session in mode regardless of what the user said.
func (r *Router) Force(ctx context.Context, sess *store.Session, mode store.Mode, reason string) (store.ModeTransition, error) {
	if !mode.Valid() {
		return store.ModeTransition{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	r.logger.Info(logModule, "Mode forced", map[string]interface{}{
		"session_id": sess.ID,
		"from":       sess.Mode,
		"to":         mode,
		"reason":     reason,
	})
	return r.switchMode(ctx, sess, mode, "admin_force: "+reason, 1.0), nil
}

func (r *Router) switchMode(ctx context.Context, sess *store.Session, to store.Mode, trigger string, confidence float64) store.ModeTransition {
	now := r.now()
	t := store.ModeTransition{
		SessionID:  sess.ID,
		From:       sess.Mode,
		To:         to,
		Trigger:    trigger,
		Confidence: confidence,
		Timestamp:  now,
	}

	if to == store.ModeClinicalInterview && sess.Mode != store.ModeClinicalInterview {
		sess.ResetInterview(now)
	}
	sess.Mode = to
	sess.ModeStartedAt = now
	sess.UpdatedAt = now

	r.logger.Info(logModule, "Mode changed", map[string]interface{}{
		"session_id": sess.ID,
		"from":       t.From,
		"to":         t.To,
		"confidence": confidence,
	})

	r.recorder.AppendModeTransition(ctx, t)
	r.publisher.PublishModeChanged(ctx, t)
	return t
}
