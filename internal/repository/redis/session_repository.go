package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"noa-assistant-be/pkg/interview/variables"
	"noa-assistant-be/pkg/store"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "noa:session:"

// SessionRepository stores sessions as JSON documents with a sliding TTL.
type SessionRepository struct {
	rdb *goredis.Client
	ttl time.Duration
}

func NewSessionRepository(rdb *goredis.Client, ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionRepository{rdb: rdb, ttl: ttl}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

func (r *SessionRepository) Save(ctx context.Context, session *store.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", session.ID, err)
	}
	if err := r.rdb.Set(ctx, key(session.ID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session %s: %w", session.ID, err)
	}
	return nil
}

// Get returns nil, nil when the key does not exist.
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*store.Session, error) {
	raw, err := r.rdb.Get(ctx, key(sessionID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session %s: %w", sessionID, err)
	}

	session := &store.Session{Variables: variables.New()}
	if err := json.Unmarshal(raw, session); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", sessionID, err)
	}
	if session.Repetitions == nil {
		session.Repetitions = make(map[string]int)
	}
	return session, nil
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.rdb.Del(ctx, key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete session %s: %w", sessionID, err)
	}
	return nil
}
