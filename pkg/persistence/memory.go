package persistence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"noa-assistant-be/pkg/store"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// MemoryStore keeps everything in process. Used by tests and by the
// "memory" persistence driver.
type MemoryStore struct {
	mu          sync.RWMutex
	snapshots   map[string]*store.Session
	records     []store.LearnedRecord
	transitions []store.ModeTransition
	reports     []store.AssessmentReport
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(seed ...store.LearnedRecord) *MemoryStore {
	m := &MemoryStore{snapshots: make(map[string]*store.Session)}
	for _, r := range seed {
		_ = m.AppendLearnedRecord(context.Background(), r)
	}
	return m
}

func (m *MemoryStore) UpsertSessionSnapshot(_ context.Context, session *store.Session) error {
	if session == nil {
		return nil
	}
	snapshot, err := session.Clone()
	if err != nil {
		return fmt.Errorf("clone session %s: %w", session.ID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[session.ID] = snapshot
	return nil
}

func (m *MemoryStore) AppendLearnedRecord(_ context.Context, record store.LearnedRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *MemoryStore) IncrementUsage(_ context.Context, recordID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == recordID {
			now := time.Now()
			m.records[i].UsageCount++
			m.records[i].LastUsedAt = &now
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrRecordNotFound, recordID)
}

func (m *MemoryStore) AppendModeTransition(_ context.Context, transition store.ModeTransition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, transition)
	return nil
}

func (m *MemoryStore) SaveReport(_ context.Context, report store.AssessmentReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, report)
	return nil
}

func (m *MemoryStore) LoadCorpus(_ context.Context, categories ...string) ([]store.LearnedRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(categories) == 0 {
		return append([]store.LearnedRecord(nil), m.records...), nil
	}
	return lo.Filter(m.records, func(r store.LearnedRecord, _ int) bool {
		return lo.Contains(categories, r.Category)
	}), nil
}

// ListTransitions returns the newest transitions first. An empty sessionID
// lists every session.
func (m *MemoryStore) ListTransitions(_ context.Context, sessionID string, limit int) ([]store.ModeTransition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]store.ModeTransition, 0, len(m.transitions))
	for i := len(m.transitions) - 1; i >= 0; i-- {
		t := m.transitions[i]
		if sessionID != "" && t.SessionID != sessionID {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Snapshot returns the last stored copy of a session.
func (m *MemoryStore) Snapshot(sessionID string) (*store.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[sessionID]
	return s, ok
}

func (m *MemoryStore) Records() []store.LearnedRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]store.LearnedRecord(nil), m.records...)
}

func (m *MemoryStore) Reports() []store.AssessmentReport {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]store.AssessmentReport(nil), m.reports...)
}
