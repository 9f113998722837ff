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
	"gorm.io/gorm/clause"
)

type SessionSnapshotRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DialogueMapper
}

func NewSessionSnapshotRepository(db *gorm.DB) contract.SessionSnapshotRepository {
	return &SessionSnapshotRepositoryImpl{
		db:     db,
		mapper: mapper.NewDialogueMapper(),
	}
}

func applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// Upsert replaces the whole row for the session id.
func (r *SessionSnapshotRepositoryImpl) Upsert(ctx context.Context, session *store.Session) error {
	m, err := r.mapper.SessionToModel(session)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(m).Error
}

func (r *SessionSnapshotRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*store.Session, error) {
	var m model.SessionSnapshot
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.SessionToStore(&m)
}

// MarkStatus is a no-op when no snapshot exists yet.
func (r *SessionSnapshotRepositoryImpl) MarkStatus(ctx context.Context, id string, status store.Status) error {
	return r.db.WithContext(ctx).
		Model(&model.SessionSnapshot{}).
		Where("id = ?", id).
		Update("status", string(status)).Error
}

func (r *SessionSnapshotRepositoryImpl) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&model.SessionSnapshot{}, "id = ?", id).Error
}

func (r *SessionSnapshotRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx).Model(&model.SessionSnapshot{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
