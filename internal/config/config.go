package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"noa-assistant-be/pkg/learning/retriever"

	"github.com/joho/godotenv"
)

type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Auth        AuthConfig
	Ai          AIConfig
	Dialogue    DialogueConfig
	Persistence PersistenceConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	TracingEnabled     bool
}

type DatabaseConfig struct {
	Connection string
}

type AuthConfig struct {
	JWTSecret string
}

type AIConfig struct {
	LLMProvider string // "ollama", "openai", "huggingface", "anthropic"
	LLMModel    string
	LLMBaseURL  string
	LLMAPIKey   string
	LLMTimeout  time.Duration
	MaxTokens   int
}

type DialogueConfig struct {
	RecallThreshold     float64
	AutonomousThreshold float64
	UsageThreshold      float64
	IntentThreshold     float64
	DefaultConfidence   float64

	HistoryWindow  int
	MaxRepetitions int
	Negations      []string // empty keeps the interview's built-in tokens
	SessionTTL     time.Duration
	StageTablePath string // empty means the embedded table
}

type PersistenceConfig struct {
	Driver         string // "gorm", "memory", "noop"
	EnqueueTimeout time.Duration
	ReadTimeout    time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.json"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			TracingEnabled:     getEnv("OTEL_ENABLED", "false") == "true",
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Ai: AIConfig{
			LLMProvider: getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:    getEnv("LLM_MODEL", "llama3"),
			LLMBaseURL:  getEnv("LLM_BASE_URL", ""),
			LLMAPIKey:   getEnv("LLM_API_KEY", ""),
			LLMTimeout:  getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
			MaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 600),
		},
		Dialogue: DialogueConfig{
			RecallThreshold:     getEnvAsFloat("DIALOGUE_RECALL_THRESHOLD", 0.3),
			AutonomousThreshold: getEnvAsFloat("DIALOGUE_AUTONOMOUS_THRESHOLD", 0.5),
			UsageThreshold:      getEnvAsFloat("DIALOGUE_USAGE_THRESHOLD", 0.7),
			IntentThreshold:     getEnvAsFloat("DIALOGUE_INTENT_THRESHOLD", 0.8),
			DefaultConfidence:   getEnvAsFloat("DIALOGUE_DEFAULT_CONFIDENCE", 0.5),
			HistoryWindow:       getEnvAsInt("HISTORY_WINDOW", 8),
			MaxRepetitions:      getEnvAsInt("INTERVIEW_MAX_REPETITIONS", 0),
			Negations:           getEnvAsList("INTERVIEW_NEGATIONS"),
			SessionTTL:          getEnvAsDuration("SESSION_TTL", time.Hour),
			StageTablePath:      getEnv("STAGE_TABLE_PATH", ""),
		},
		Persistence: PersistenceConfig{
			Driver:         getEnv("PERSISTENCE_DRIVER", "memory"),
			EnqueueTimeout: getEnvAsDuration("PERSISTENCE_ENQUEUE_TIMEOUT", 250*time.Millisecond),
			ReadTimeout:    getEnvAsDuration("PERSISTENCE_READ_TIMEOUT", 2*time.Second),
		},
	}
}

// Thresholds converts the dialogue settings into retriever gates.
func (d DialogueConfig) Thresholds() retriever.Thresholds {
	return retriever.Thresholds{
		Recall:     d.RecallThreshold,
		Autonomous: d.AutonomousThreshold,
		Usage:      d.UsageThreshold,
		Intent:     d.IntentThreshold,
	}
}

func (a AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsList splits a comma-separated value, dropping blank entries.
func getEnvAsList(key string) []string {
	var out []string
	for _, v := range strings.Split(getEnv(key, ""), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
