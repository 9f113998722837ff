package persistence

import (
	"context"
	"errors"

	"noa-assistant-be/pkg/store"
)

var (
	ErrUnavailable    = errors.New("persistence unavailable")
	ErrRecordNotFound = errors.New("learned record not found")
)

// Store is a storage backend. Every method may fail; callers in the dialogue
// core never use it directly and go through an Adapter instead.
type Store interface {
	UpsertSessionSnapshot(ctx context.Context, session *store.Session) error
	AppendLearnedRecord(ctx context.Context, record store.LearnedRecord) error
	IncrementUsage(ctx context.Context, recordID string) error
	AppendModeTransition(ctx context.Context, transition store.ModeTransition) error
	SaveReport(ctx context.Context, report store.AssessmentReport) error

	LoadCorpus(ctx context.Context, categories ...string) ([]store.LearnedRecord, error)
	ListTransitions(ctx context.Context, sessionID string, limit int) ([]store.ModeTransition, error)
}

// Adapter is the best-effort facade used by the interview, router and
// composer. Writes never report failure and reads degrade to empty results.
type Adapter interface {
	UpsertSessionSnapshot(ctx context.Context, session *store.Session)
	AppendLearnedRecord(ctx context.Context, record store.LearnedRecord)
	IncrementUsage(ctx context.Context, recordID string)
	AppendModeTransition(ctx context.Context, transition store.ModeTransition)
	SaveReport(ctx context.Context, report store.AssessmentReport)

	LoadCorpus(ctx context.Context, categories ...string) []store.LearnedRecord
}

// Noop discards every write and has an empty corpus.
type Noop struct{}

var _ Adapter = Noop{}

func (Noop) UpsertSessionSnapshot(context.Context, *store.Session) {}
func (Noop) AppendLearnedRecord(context.Context, store.LearnedRecord) {}
func (Noop) IncrementUsage(context.Context, string) {}
func (Noop) AppendModeTransition(context.Context, store.ModeTransition) {}
func (Noop) SaveReport(context.Context, store.AssessmentReport) {}
func (Noop) LoadCorpus(context.Context, ...string) []store.LearnedRecord { return nil }
