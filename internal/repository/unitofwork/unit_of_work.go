package unitofwork

import (
	"context"

	"noa-assistant-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	SessionSnapshotRepository() contract.SessionSnapshotRepository
	LearnedRecordRepository() contract.LearnedRecordRepository
	ModeTransitionRepository() contract.ModeTransitionRepository
	AssessmentReportRepository() contract.AssessmentReportRepository
}
