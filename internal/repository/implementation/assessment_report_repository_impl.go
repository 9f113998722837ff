package implementation

import (
	"context"
	"errors"

	"noa-assistant-be/internal/mapper"
	"noa-assistant-be/internal/model"
	"noa-assistant-be/internal/repository/contract"
	"noa-assistant-be/internal/repository/specification"
	"noa-assistant-be/pkg/store"

	"gorm.io/gorm"
)

type AssessmentReportRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DialogueMapper
}

func NewAssessmentReportRepository(db *gorm.DB) contract.AssessmentReportRepository {
	return &AssessmentReportRepositoryImpl{
		db:     db,
		mapper: mapper.NewDialogueMapper(),
	}
}

func (r *AssessmentReportRepositoryImpl) Create(ctx context.Context, report *store.AssessmentReport) error {
	m, err := r.mapper.ReportToModel(report)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *AssessmentReportRepositoryImpl) FindLatest(ctx context.Context, specs ...specification.Specification) (*store.AssessmentReport, error) {
	var m model.AssessmentReport
	query := applySpecifications(r.db.WithContext(ctx).Order("generated_at DESC").Order("id DESC"), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	report, err := r.mapper.ReportToStore(&m)
	if err != nil {
		return nil, err
	}
	return &report, nil
}
