package contract

import (
	"context"

	"noa-assistant-be/internal/repository/specification"
	"noa-assistant-be/pkg/store"
)

type SessionSnapshotRepository interface {
	Upsert(ctx context.Context, session *store.Session) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*store.Session, error)
	MarkStatus(ctx context.Context, id string, status store.Status) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
