package snapshot

import (
	"context"
	"fmt"
	"testing"
	"time"

	"noa-assistant-be/internal/model"
	"noa-assistant-be/internal/pkg/logger"
	"noa-assistant-be/internal/repository"
	"noa-assistant-be/internal/repository/memory"
	"noa-assistant-be/internal/repository/unitofwork"
	"noa-assistant-be/pkg/session"
	"noa-assistant-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newGormStore(t *testing.T) *repository.GormStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))
	return repository.NewGormStore(unitofwork.NewRepositoryFactory(db))
}

// newManager builds what a freshly started process would have: an empty
// in-memory tier in front of the database snapshots.
func newManager(gs *repository.GormStore) *session.Manager {
	repo := session.NewTiered(memory.NewSessionRepository(time.Minute), NewSessionRepository(gs), logger.NewNopLogger())
	return session.NewManager(repo, logger.NewNopLogger())
}

func TestSessionRepository_ResumesAfterRestart(t *testing.T) {
	gs := newGormStore(t)
	ctx := context.Background()

	sess := store.NewSession("s1", "u1", time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC))
	sess.Mode = store.ModeClinicalInterview
	sess.StageIndex = 4
	sess.Variables.Set("nome", "Maria")
	sess.Variables.Append("queixas", "dor de cabeça")
	require.NoError(t, gs.UpsertSessionSnapshot(ctx, sess))

	m := newManager(gs)
	got, created := m.LoadOrCreate(ctx, "u1", "s1")

	assert.False(t, created)
	assert.Equal(t, store.ModeClinicalInterview, got.Mode)
	assert.Equal(t, 4, got.StageIndex)
	name, _ := got.Variables.Get("nome")
	assert.Equal(t, "Maria", name)
	assert.Equal(t, []string{"dor de cabeça"}, got.Variables.List("queixas"))
}

func TestSessionRepository_UnknownSession(t *testing.T) {
	m := newManager(newGormStore(t))

	got, created := m.LoadOrCreate(context.Background(), "u1", "missing")

	assert.True(t, created)
	assert.Equal(t, 0, got.StageIndex)
	assert.Equal(t, store.ModeExplanatory, got.Mode)
}

func TestSessionRepository_DeleteStopsResumption(t *testing.T) {
	gs := newGormStore(t)
	ctx := context.Background()

	sess := store.NewSession("s1", "u1", time.Now())
	sess.StageIndex = 2
	require.NoError(t, gs.UpsertSessionSnapshot(ctx, sess))

	m := newManager(gs)
	require.NoError(t, m.Delete(ctx, "s1"))

	_, err := m.Get(ctx, "s1")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	row, err := gs.LoadSnapshot(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, store.StatusCleared, row.Status)
}
