package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"noa-assistant-be/internal/model"
	"noa-assistant-be/internal/repository"
	"noa-assistant-be/internal/repository/unitofwork"
	"noa-assistant-be/pkg/database"
	"noa-assistant-be/pkg/store"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real Postgres. Skipped unless DB_CONNECTION_STRING is set.
func TestGormStore_Postgres(t *testing.T) {
	_ = godotenv.Load("../../.env")
	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, false)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, model.All()...))

	ctx := context.Background()
	gormStore := repository.NewGormStore(unitofwork.NewRepositoryFactory(db))

	sessionID := "it-" + uuid.NewString()
	t.Cleanup(func() {
		db.Where("session_id = ?", sessionID).Delete(&model.ModeTransition{})
		db.Where("session_id = ?", sessionID).Delete(&model.AssessmentReport{})
		db.Where("id = ?", sessionID).Delete(&model.SessionSnapshot{})
	})

	sess := store.NewSession(sessionID, "it-user", time.Now())
	sess.Mode = store.ModeClinicalInterview
	sess.Variables.Set("nome", "Maria")
	require.NoError(t, gormStore.UpsertSessionSnapshot(ctx, sess))

	sess.StageIndex = 3
	require.NoError(t, gormStore.UpsertSessionSnapshot(ctx, sess))

	loaded, err := gormStore.LoadSnapshot(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.StageIndex)
	name, _ := loaded.Variables.Get("nome")
	assert.Equal(t, "Maria", name)

	require.NoError(t, gormStore.AppendModeTransition(ctx, store.ModeTransition{
		SessionID:  sessionID,
		From:       store.ModeExplanatory,
		To:         store.ModeClinicalInterview,
		Trigger:    "avaliação clínica",
		Confidence: 0.95,
		Timestamp:  time.Now(),
	}))
	transitions, err := gormStore.ListTransitions(ctx, sessionID, 10)
	require.NoError(t, err)
	require.Len(t, transitions, 1)

	require.NoError(t, gormStore.SaveReport(ctx, store.AssessmentReport{
		SessionID:   sessionID,
		PatientName: "Maria",
		Completed:   true,
		GeneratedAt: time.Now(),
	}))
	report, err := gormStore.LatestReport(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "Maria", report.PatientName)

	loaded, err = gormStore.LoadSnapshot(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, loaded.Status)
}
