package service

import (
	"context"
	"errors"
	"fmt"

	"noa-assistant-be/internal/pkg/logger"
	aiEvents "noa-assistant-be/pkg/ai/events"
	"noa-assistant-be/pkg/events"
	pktNats "noa-assistant-be/pkg/nats"
	"noa-assistant-be/pkg/session"
)

// EventSubscriber is the part of the NATS subscriber the service needs.
type EventSubscriber interface {
	Subscribe(ctx context.Context, subject, durableName string, handler pktNats.EventHandler) error
}

type ICompletionService interface {
	Start(ctx context.Context) error
}

// completionService stores the assessment report as soon as an interview
// completes, so the doctor gets it without asking.
type completionService struct {
	subscriber EventSubscriber
	dialogue   IDialogueService
	logger     logger.ILogger
}

func NewCompletionService(subscriber EventSubscriber, dialogue IDialogueService, log logger.ILogger) ICompletionService {
	return &completionService{subscriber: subscriber, dialogue: dialogue, logger: log}
}

func (s *completionService) Start(ctx context.Context) error {
	return s.subscriber.Subscribe(ctx, pktNats.Subject(aiEvents.TypeInterviewCompleted), "report-builder", s.Handle)
}

func (s *completionService) Handle(ctx context.Context, event events.Event) error {
	sessionID := events.SessionID(event)
	if sessionID == "" {
		s.logger.Warn(dialogueModule, "Completion event without session id", map[string]interface{}{
			"type": event.EventType(),
		})
		return nil
	}

	if _, err := s.dialogue.Report(ctx, sessionID); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			// Expired before the event arrived; nothing to report.
			return nil
		}
		return fmt.Errorf("build report for %s: %w", sessionID, err)
	}

	s.logger.Info(dialogueModule, "Assessment report stored", map[string]interface{}{
		"session_id": sessionID,
	})
	return nil
}
