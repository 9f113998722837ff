package events

import (
	"context"
	"time"

	"noa-assistant-be/internal/pkg/logger"
	pkgEvents "noa-assistant-be/pkg/events"
	pktNats "noa-assistant-be/pkg/nats"
	"noa-assistant-be/pkg/store"
)

const (
	TypeTurnHandled        = "dialogue.turn"
	TypeModeChanged        = "mode.changed"
	TypeInterviewCompleted = "interview.completed"
)

// Publisher announces dialogue milestones. Implementations never fail the caller.
type Publisher interface {
	PublishTurnHandled(ctx context.Context, sessionID, userID string, mode store.Mode, source string, stageIndex int)
	PublishModeChanged(ctx context.Context, transition store.ModeTransition)
	PublishInterviewCompleted(ctx context.Context, session *store.Session)
}

// Sink is anything that can put an event on the bus.
type Sink interface {
	Publish(ctx context.Context, event pkgEvents.Event) error
}

// NatsPublisher implements Publisher on top of the JetStream publisher.
type NatsPublisher struct {
	sink    Sink
	logger  logger.ILogger
	timeout time.Duration
}

// NewNatsPublisher accepts a nil publisher, in which case every event is dropped.
func NewNatsPublisher(publisher *pktNats.Publisher, log logger.ILogger) *NatsPublisher {
	if publisher == nil {
		return NewSinkPublisher(nil, log)
	}
	return NewSinkPublisher(publisher, log)
}

func NewSinkPublisher(sink Sink, log logger.ILogger) *NatsPublisher {
	return &NatsPublisher{sink: sink, logger: log, timeout: 2 * time.Second}
}

func (p *NatsPublisher) PublishTurnHandled(ctx context.Context, sessionID, userID string, mode store.Mode, source string, stageIndex int) {
	p.publish(ctx, pkgEvents.BaseEvent{
		Type: TypeTurnHandled,
		Data: map[string]interface{}{
			"session_id":  sessionID,
			"user_id":     userID,
			"mode":        mode,
			"source":      source,
			"stage_index": stageIndex,
		},
		OccurredAt: time.Now(),
	})
}

func (p *NatsPublisher) PublishModeChanged(ctx context.Context, t store.ModeTransition) {
	p.publish(ctx, pkgEvents.BaseEvent{
		Type: TypeModeChanged,
		Data: map[string]interface{}{
			"session_id":   t.SessionID,
			"from_mode":    t.From,
			"to_mode":      t.To,
			"trigger_text": t.Trigger,
			"confidence":   t.Confidence,
			"occurred_at":  t.Timestamp,
		},
		OccurredAt: t.Timestamp,
	})
}

func (p *NatsPublisher) PublishInterviewCompleted(ctx context.Context, s *store.Session) {
	if s == nil {
		return
	}
	data := map[string]interface{}{
		"session_id":  s.ID,
		"user_id":     s.UserID,
		"stage_index": s.StageIndex,
		"captured":    s.Variables.Len(),
	}
	if s.InterviewFinishedAt != nil {
		data["finished_at"] = *s.InterviewFinishedAt
	}
	p.publish(ctx, pkgEvents.BaseEvent{
		Type:       TypeInterviewCompleted,
		Data:       data,
		OccurredAt: time.Now(),
	})
}

func (p *NatsPublisher) publish(ctx context.Context, evt pkgEvents.BaseEvent) {
	if p.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	if err := p.sink.Publish(ctx, evt); err != nil {
		p.logger.Error("DIALOGUE", "Failed to publish event", map[string]interface{}{
			"type":  evt.Type,
			"error": err.Error(),
		})
	}
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishTurnHandled(context.Context, string, string, store.Mode, string, int) {}
func (NopPublisher) PublishModeChanged(context.Context, store.ModeTransition) {}
func (NopPublisher) PublishInterviewCompleted(context.Context, *store.Session) {}
