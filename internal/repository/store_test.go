package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"noa-assistant-be/internal/model"
	"noa-assistant-be/internal/repository/unitofwork"
	"noa-assistant-be/pkg/persistence"
	"noa-assistant-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newStore(t *testing.T) *GormStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))
	return NewGormStore(unitofwork.NewRepositoryFactory(db))
}

func TestGormStore_SessionSnapshotRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	sess := store.NewSession("s1", "u1", now)
	sess.Mode = store.ModeClinicalInterview
	sess.StageIndex = 3
	sess.Variables.Set("nome", "Maria")
	sess.Variables.Append("queixas", "dor de cabeça")
	sess.Variables.Append("queixas", "cansaço")
	sess.Repetitions["queixas"] = 2
	sess.AppendTurn(store.TurnEntry{StageID: "inicio", PromptShown: "Olá", RawReply: "Maria", Timestamp: now})
	sess.Remember("user", "oi", 8)

	require.NoError(t, s.UpsertSessionSnapshot(ctx, sess))

	got, err := s.LoadSnapshot(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, store.ModeClinicalInterview, got.Mode)
	assert.Equal(t, 3, got.StageIndex)
	name, _ := got.Variables.Get("nome")
	assert.Equal(t, "Maria", name)
	assert.Equal(t, []string{"dor de cabeça", "cansaço"}, got.Variables.List("queixas"))
	assert.Equal(t, 2, got.Repetitions["queixas"])
	require.Len(t, got.TurnLog, 1)
	assert.Equal(t, "Maria", got.TurnLog[0].RawReply)
	require.Len(t, got.History, 1)

	// Upsert replaces the row.
	sess.StageIndex = 4
	require.NoError(t, s.UpsertSessionSnapshot(ctx, sess))
	got, err = s.LoadSnapshot(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 4, got.StageIndex)

	missing, err := s.LoadSnapshot(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGormStore_CorpusAndUsage(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendLearnedRecord(ctx, store.LearnedRecord{
		Keyword: "dor", UserMessage: "dor de cabeça", AIResponse: "entendi", Category: store.CategoryGeneral, ConfidenceScore: 0.5,
	}))
	require.NoError(t, s.AppendLearnedRecord(ctx, store.LearnedRecord{
		Keyword: "imre", UserMessage: "o que é imre", AIResponse: "método", Category: store.CategoryCourse, ConfidenceScore: 0.5,
	}))

	all, err := s.LoadCorpus(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	general, err := s.LoadCorpus(ctx, store.CategoryGeneral)
	require.NoError(t, err)
	require.Len(t, general, 1)
	assert.NotEmpty(t, general[0].ID)
	assert.Equal(t, 0, general[0].UsageCount)

	require.NoError(t, s.IncrementUsage(ctx, general[0].ID))
	require.NoError(t, s.IncrementUsage(ctx, general[0].ID))

	general, err = s.LoadCorpus(ctx, store.CategoryGeneral)
	require.NoError(t, err)
	assert.Equal(t, 2, general[0].UsageCount)
	assert.NotNil(t, general[0].LastUsedAt)

	err = s.IncrementUsage(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrRecordNotFound)
}

func TestGormStore_TransitionsNewestFirst(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, to := range []store.Mode{store.ModeClinicalInterview, store.ModeExplanatory, store.ModeCourse} {
		require.NoError(t, s.AppendModeTransition(ctx, store.ModeTransition{
			SessionID: "s1", From: store.ModeExplanatory, To: to, Trigger: "x", Confidence: 0.9,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.AppendModeTransition(ctx, store.ModeTransition{
		SessionID: "s2", From: store.ModeExplanatory, To: store.ModeCourse, Timestamp: base,
	}))

	got, err := s.ListTransitions(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, store.ModeCourse, got[0].To)
	assert.Equal(t, store.ModeExplanatory, got[1].To)

	all, err := s.ListTransitions(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestGormStore_SaveReportMarksCompleted(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.UpsertSessionSnapshot(ctx, store.NewSession("s1", "u1", now)))
	require.NoError(t, s.SaveReport(ctx, store.AssessmentReport{
		SessionID: "s1", UserID: "u1", PatientName: "Maria", Completeness: 100, Completed: true, GeneratedAt: now,
	}))

	report, err := s.LatestReport(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, "Maria", report.PatientName)

	snap, err := s.LoadSnapshot(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, snap.Status)
}

func TestGormStore_AppliesAsyncJobs(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	job := persistence.Job{Kind: persistence.JobLearnedRecord, Record: &store.LearnedRecord{
		UserMessage: "oi", AIResponse: "olá", Category: store.CategoryGeneral,
	}}
	payload, err := job.Encode()
	require.NoError(t, err)

	decoded, err := persistence.DecodeJob(payload)
	require.NoError(t, err)
	require.NoError(t, decoded.Apply(ctx, s))

	corpus, err := s.LoadCorpus(ctx, store.CategoryGeneral)
	require.NoError(t, err)
	assert.Len(t, corpus, 1)
}
