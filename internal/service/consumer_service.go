package service

import (
	"context"
	"sync"

	"noa-assistant-be/internal/pkg/logger"
	"noa-assistant-be/pkg/persistence"

	"github.com/ThreeDotsLabs/watermill/message"
)

const (
	consumerModule = "CONSUMER"

	maxJobAttempts = 3
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains the persistence queue into the durable store.
type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	store      persistence.Store
	logger     logger.ILogger

	mu       sync.Mutex
	attempts map[string]int
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	store persistence.Store,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		store:      store,
		logger:     log,
		attempts:   make(map[string]int),
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	cs.logger.Info(consumerModule, "Persistence consumer started", map[string]interface{}{"topic": cs.topicName})
	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	job, err := persistence.DecodeJob(msg.Payload)
	if err != nil {
		cs.logger.Error(consumerModule, "Dropping undecodable job", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	if err := job.Apply(ctx, cs.store); err != nil {
		attempt := cs.attempt(msg.UUID)
		if attempt < maxJobAttempts {
			cs.logger.Warn(consumerModule, "Job failed, retrying", map[string]interface{}{
				"kind":    job.Kind,
				"attempt": attempt,
				"error":   err.Error(),
			})
			msg.Nack()
			return
		}
		cs.logger.Error(consumerModule, "Job failed, giving up", map[string]interface{}{
			"kind":     job.Kind,
			"attempts": attempt,
			"error":    err.Error(),
		})
	}

	cs.forget(msg.UUID)
	msg.Ack()
}

func (cs *consumerService) attempt(id string) int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.attempts[id]++
	return cs.attempts[id]
}

func (cs *consumerService) forget(id string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	delete(cs.attempts, id)
}
