package snapshot

import (
	"context"

	"noa-assistant-be/pkg/store"
)

// Store is the part of the database store that reads session snapshots.
type Store interface {
	LoadSnapshot(ctx context.Context, sessionID string) (*store.Session, error)
	MarkSessionStatus(ctx context.Context, sessionID string, status store.Status) error
}

// SessionRepository resumes sessions from the snapshots the persistence
// adapter writes after every turn. Snapshot writes already go through the
// adapter, so Save does nothing; Delete keeps the row for audit and marks it
// cleared.
type SessionRepository struct {
	store Store
}

func NewSessionRepository(s Store) *SessionRepository {
	return &SessionRepository{store: s}
}

// Get returns nil, nil for unknown or cleared sessions.
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*store.Session, error) {
	sess, err := r.store.LoadSnapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.Status == store.StatusCleared {
		return nil, nil
	}
	return sess, nil
}

func (r *SessionRepository) Save(context.Context, *store.Session) error {
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	return r.store.MarkSessionStatus(ctx, sessionID, store.StatusCleared)
}
