package contract

import (
	"context"

	"noa-assistant-be/internal/repository/specification"
	"noa-assistant-be/pkg/store"
)

// ModeTransitionRepository is append-only.
type ModeTransitionRepository interface {
	Create(ctx context.Context, transition *store.ModeTransition) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]store.ModeTransition, error)
}
