package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"noa-assistant-be/internal/pkg/logger"
	"noa-assistant-be/pkg/store"

	"github.com/google/uuid"
)

const logModule = "SESSION"

var ErrSessionNotFound = errors.New("session not found")

// Repository is a keyed session store. Get returns nil, nil for unknown ids.
type Repository interface {
	Get(ctx context.Context, sessionID string) (*store.Session, error)
	Save(ctx context.Context, session *store.Session) error
	Delete(ctx context.Context, sessionID string) error
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager owns session lifecycles and serializes turns per session id.
type Manager struct {
	repo   Repository
	logger logger.ILogger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*lockEntry
}

func NewManager(repo Repository, log logger.ILogger) *Manager {
	return &Manager{
		repo:   repo,
		logger: log,
		now:    time.Now,
		locks:  make(map[string]*lockEntry),
	}
}

// WithLock runs fn while holding the lock for sessionID. Different ids never
// block each other.
func (m *Manager) WithLock(sessionID string, fn func() error) error {
	m.mu.Lock()
	e, ok := m.locks[sessionID]
	if !ok {
		e = &lockEntry{}
		m.locks[sessionID] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()
	defer func() {
		e.mu.Unlock()
		m.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(m.locks, sessionID)
		}
		m.mu.Unlock()
	}()

	return fn()
}

// LoadOrCreate returns the stored session, or a fresh explanatory session at
// stage 0 when the id is empty, unknown or the store cannot be reached.
func (m *Manager) LoadOrCreate(ctx context.Context, userID, sessionID string) (*store.Session, bool) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	sess, err := m.repo.Get(ctx, sessionID)
	if err != nil {
		m.logger.Warn(logModule, "Session lookup failed, starting fresh", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
	if sess != nil {
		if sess.UserID == "" {
			sess.UserID = userID
		}
		return sess, false
	}

	m.logger.Debug(logModule, "Session created", map[string]interface{}{
		"session_id": sessionID,
		"user_id":    userID,
	})
	return store.NewSession(sessionID, userID, m.now()), true
}

func (m *Manager) Get(ctx context.Context, sessionID string) (*store.Session, error) {
	sess, err := m.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (m *Manager) Save(ctx context.Context, sess *store.Session) error {
	if err := m.repo.Save(ctx, sess); err != nil {
		m.logger.Error(logModule, "Failed to save session", map[string]interface{}{
			"session_id": sess.ID,
			"error":      err.Error(),
		})
		return err
	}
	return nil
}

func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.repo.Delete(ctx, sessionID)
}
