package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 0.3, cfg.Dialogue.RecallThreshold)
	assert.Equal(t, 0.5, cfg.Dialogue.AutonomousThreshold)
	assert.Equal(t, 0.7, cfg.Dialogue.UsageThreshold)
	assert.Equal(t, 0.8, cfg.Dialogue.IntentThreshold)
	assert.Equal(t, 0.5, cfg.Dialogue.DefaultConfidence)
	assert.Equal(t, 8, cfg.Dialogue.HistoryWindow)
	assert.Equal(t, 0, cfg.Dialogue.MaxRepetitions)
	assert.Empty(t, cfg.Dialogue.Negations)
	assert.Equal(t, time.Hour, cfg.Dialogue.SessionTTL)
	assert.Equal(t, 30*time.Second, cfg.Ai.LLMTimeout)
	assert.Equal(t, "memory", cfg.Persistence.Driver)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DIALOGUE_RECALL_THRESHOLD", "0.25")
	t.Setenv("HISTORY_WINDOW", "4")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("PERSISTENCE_ENQUEUE_TIMEOUT", "not-a-duration")
	t.Setenv("INTERVIEW_NEGATIONS", "chega, , só isso ,basta")

	cfg := Load()

	assert.Equal(t, 0.25, cfg.Dialogue.RecallThreshold)
	assert.Equal(t, 4, cfg.Dialogue.HistoryWindow)
	assert.Equal(t, 5*time.Second, cfg.Ai.LLMTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Persistence.EnqueueTimeout)
	assert.Equal(t, []string{"chega", "só isso", "basta"}, cfg.Dialogue.Negations)
}

func TestThresholds(t *testing.T) {
	th := DialogueConfig{RecallThreshold: 0.3, AutonomousThreshold: 0.5, UsageThreshold: 0.7, IntentThreshold: 0.8}.Thresholds()

	assert.True(t, th.Recalls(0.31))
	assert.False(t, th.Recalls(0.3))
	assert.True(t, th.AnswersAlone(0.5))
	assert.True(t, th.CountsAsUse(0.7))
	assert.False(t, th.AdoptsIntent(0.8))
}
