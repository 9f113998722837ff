package main

import (
	"context"
	_ "embed"
	"log"
	"os"
	"time"

	"noa-assistant-be/internal/repository"
	"noa-assistant-be/internal/repository/unitofwork"
	"noa-assistant-be/pkg/database"
	"noa-assistant-be/pkg/learning/retriever"
	"noa-assistant-be/pkg/store"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

//go:embed corpus.yaml
var corpus []byte

type seedFile struct {
	Records []struct {
		Category    string `yaml:"category"`
		Context     string `yaml:"context"`
		UserMessage string `yaml:"user_message"`
		AiResponse  string `yaml:"ai_response"`
	} `yaml:"records"`
}

func main() {
	// Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, false)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(corpus, &seed); err != nil {
		log.Fatalf("Error: Invalid seed corpus: %v", err)
	}

	ctx := context.Background()
	gormStore := repository.NewGormStore(unitofwork.NewRepositoryFactory(db))

	existing, err := gormStore.LoadCorpus(ctx)
	if err != nil {
		log.Fatalf("Error: Failed to read corpus: %v", err)
	}
	known := lo.SliceToMap(existing, func(r store.LearnedRecord) (string, bool) {
		return r.Category + "|" + r.UserMessage, true
	})

	log.Println("Seeding learned corpus...")
	created := 0
	for _, r := range seed.Records {
		if known[r.Category+"|"+r.UserMessage] {
			continue
		}
		err := gormStore.AppendLearnedRecord(ctx, store.LearnedRecord{
			ID:              uuid.NewString(),
			Keyword:         retriever.Keyword(r.UserMessage),
			Context:         r.Context,
			UserMessage:     r.UserMessage,
			AIResponse:      r.AiResponse,
			Category:        r.Category,
			ConfidenceScore: 0.9,
			CreatedAt:       time.Now(),
		})
		if err != nil {
			log.Printf("Warn: Failed to seed %q: %v", r.UserMessage, err)
			continue
		}
		created++
	}

	log.Printf("Seeding completed: %d new records, %d already present.", created, len(seed.Records)-created)
}
