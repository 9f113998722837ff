package contract

import (
	"context"

	"noa-assistant-be/internal/repository/specification"
	"noa-assistant-be/pkg/store"
)

type AssessmentReportRepository interface {
	Create(ctx context.Context, report *store.AssessmentReport) error
	FindLatest(ctx context.Context, specs ...specification.Specification) (*store.AssessmentReport, error)
}
