package repository

import (
	"context"
	"fmt"

	"noa-assistant-be/internal/repository/specification"
	"noa-assistant-be/internal/repository/unitofwork"
	"noa-assistant-be/pkg/persistence"
	"noa-assistant-be/pkg/store"
)

// GormStore implements persistence.Store over the gorm repositories.
type GormStore struct {
	factory unitofwork.RepositoryFactory
}

var _ persistence.Store = (*GormStore)(nil)

func NewGormStore(factory unitofwork.RepositoryFactory) *GormStore {
	return &GormStore{factory: factory}
}

func (s *GormStore) UpsertSessionSnapshot(ctx context.Context, session *store.Session) error {
	if session == nil {
		return nil
	}
	uow := s.factory.NewUnitOfWork(ctx)
	if err := uow.SessionSnapshotRepository().Upsert(ctx, session); err != nil {
		return fmt.Errorf("upsert session snapshot %s: %w", session.ID, err)
	}
	return nil
}

func (s *GormStore) AppendLearnedRecord(ctx context.Context, record store.LearnedRecord) error {
	uow := s.factory.NewUnitOfWork(ctx)
	if err := uow.LearnedRecordRepository().Create(ctx, &record); err != nil {
		return fmt.Errorf("append learned record: %w", err)
	}
	return nil
}

func (s *GormStore) IncrementUsage(ctx context.Context, recordID string) error {
	uow := s.factory.NewUnitOfWork(ctx)
	return uow.LearnedRecordRepository().IncrementUsage(ctx, recordID)
}

func (s *GormStore) AppendModeTransition(ctx context.Context, transition store.ModeTransition) error {
	uow := s.factory.NewUnitOfWork(ctx)
	if err := uow.ModeTransitionRepository().Create(ctx, &transition); err != nil {
		return fmt.Errorf("append mode transition: %w", err)
	}
	return nil
}

// SaveReport stores the report and marks the snapshot completed in one
// transaction when the interview has finished.
func (s *GormStore) SaveReport(ctx context.Context, report store.AssessmentReport) error {
	uow := s.factory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	if err := uow.AssessmentReportRepository().Create(ctx, &report); err != nil {
		_ = uow.Rollback()
		return fmt.Errorf("save report %s: %w", report.SessionID, err)
	}
	if report.Completed {
		if err := uow.SessionSnapshotRepository().MarkStatus(ctx, report.SessionID, store.StatusCompleted); err != nil {
			_ = uow.Rollback()
			return fmt.Errorf("mark session %s completed: %w", report.SessionID, err)
		}
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("commit report %s: %w", report.SessionID, err)
	}
	return nil
}

func (s *GormStore) LoadCorpus(ctx context.Context, categories ...string) ([]store.LearnedRecord, error) {
	uow := s.factory.NewUnitOfWork(ctx)
	records, err := uow.LearnedRecordRepository().FindAll(ctx, specification.ByCategories{Categories: categories})
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	return records, nil
}

func (s *GormStore) ListTransitions(ctx context.Context, sessionID string, limit int) ([]store.ModeTransition, error) {
	uow := s.factory.NewUnitOfWork(ctx)
	transitions, err := uow.ModeTransitionRepository().FindAll(ctx,
		specification.BySessionID{SessionID: sessionID},
		specification.Pagination{Limit: limit},
	)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	return transitions, nil
}

// LoadSnapshot returns nil, nil for unknown sessions.
func (s *GormStore) LoadSnapshot(ctx context.Context, sessionID string) (*store.Session, error) {
	uow := s.factory.NewUnitOfWork(ctx)
	return uow.SessionSnapshotRepository().FindOne(ctx, specification.ByID{ID: sessionID})
}

// MarkSessionStatus updates the stored snapshot's status, if one exists.
func (s *GormStore) MarkSessionStatus(ctx context.Context, sessionID string, status store.Status) error {
	uow := s.factory.NewUnitOfWork(ctx)
	if err := uow.SessionSnapshotRepository().MarkStatus(ctx, sessionID, status); err != nil {
		return fmt.Errorf("mark session %s %s: %w", sessionID, status, err)
	}
	return nil
}

func (s *GormStore) LatestReport(ctx context.Context, sessionID string) (*store.AssessmentReport, error) {
	uow := s.factory.NewUnitOfWork(ctx)
	return uow.AssessmentReportRepository().FindLatest(ctx, specification.BySessionID{SessionID: sessionID})
}
