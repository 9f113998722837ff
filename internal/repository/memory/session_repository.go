package memory

import (
	"context"
	"fmt"
	"time"

	"noa-assistant-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps sessions in process memory. It stores and hands
// out copies so a snapshot read never races a turn in progress.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionRepository{cache: cache.New(ttl, 10*time.Minute)}
}

func (r *SessionRepository) Save(_ context.Context, session *store.Session) error {
	snapshot, err := session.Clone()
	if err != nil {
		return fmt.Errorf("clone session %s: %w", session.ID, err)
	}
	r.cache.Set(session.ID, snapshot, cache.DefaultExpiration)
	return nil
}

// Get returns nil, nil when the id is unknown or expired.
func (r *SessionRepository) Get(_ context.Context, sessionID string) (*store.Session, error) {
	x, found := r.cache.Get(sessionID)
	if !found {
		return nil, nil
	}
	return x.(*store.Session).Clone()
}

func (r *SessionRepository) Delete(_ context.Context, sessionID string) error {
	r.cache.Delete(sessionID)
	return nil
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
