package implementation

import (
	"context"

	"noa-assistant-be/internal/mapper"
	"noa-assistant-be/internal/model"
	"noa-assistant-be/internal/repository/contract"
	"noa-assistant-be/internal/repository/scope"
	"noa-assistant-be/internal/repository/specification"
	"noa-assistant-be/pkg/store"

	"gorm.io/gorm"
)

type ModeTransitionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DialogueMapper
}

func NewModeTransitionRepository(db *gorm.DB) contract.ModeTransitionRepository {
	return &ModeTransitionRepositoryImpl{
		db:     db,
		mapper: mapper.NewDialogueMapper(),
	}
}

func (r *ModeTransitionRepositoryImpl) Create(ctx context.Context, transition *store.ModeTransition) error {
	return r.db.WithContext(ctx).Create(r.mapper.TransitionToModel(transition)).Error
}

// FindAll lists the newest transitions first.
func (r *ModeTransitionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]store.ModeTransition, error) {
	var models []*model.ModeTransition
	query := applySpecifications(r.db.WithContext(ctx).Scopes(scope.OrderByOccurredDesc), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.TransitionsToStore(models), nil
}
