package contract

import (
	"context"

	"noa-assistant-be/internal/repository/specification"
	"noa-assistant-be/pkg/store"
)

type LearnedRecordRepository interface {
	Create(ctx context.Context, record *store.LearnedRecord) error
	IncrementUsage(ctx context.Context, id string) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]store.LearnedRecord, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
