package implementation

import (
	"context"
	"fmt"
	"time"

	"noa-assistant-be/internal/mapper"
	"noa-assistant-be/internal/model"
	"noa-assistant-be/internal/repository/contract"
	"noa-assistant-be/internal/repository/scope"
	"noa-assistant-be/internal/repository/specification"
	"noa-assistant-be/pkg/persistence"
	"noa-assistant-be/pkg/store"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LearnedRecordRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DialogueMapper
}

func NewLearnedRecordRepository(db *gorm.DB) contract.LearnedRecordRepository {
	return &LearnedRecordRepositoryImpl{
		db:     db,
		mapper: mapper.NewDialogueMapper(),
	}
}

func (r *LearnedRecordRepositoryImpl) Create(ctx context.Context, record *store.LearnedRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	m := r.mapper.RecordToModel(record)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*record = r.mapper.RecordToStore(m)
	return nil
}

// IncrementUsage bumps the counter in a single statement so concurrent
// increments are never lost.
func (r *LearnedRecordRepositoryImpl) IncrementUsage(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Model(&model.LearnedRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"usage_count":  gorm.Expr("usage_count + ?", 1),
			"last_used_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", persistence.ErrRecordNotFound, id)
	}
	return nil
}

func (r *LearnedRecordRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]store.LearnedRecord, error) {
	var models []*model.LearnedRecord
	query := applySpecifications(r.db.WithContext(ctx).Scopes(scope.OrderByCreatedAsc), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.RecordsToStore(models), nil
}

func (r *LearnedRecordRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx).Model(&model.LearnedRecord{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
