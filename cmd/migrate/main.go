package main

import (
	"log"
	"os"

	"noa-assistant-be/internal/model"
	"noa-assistant-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn, false)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	// 3. AutoMigrate
	tables := model.All()
	log.Printf("Running AutoMigrate for %d tables...", len(tables))
	if err := database.Migrate(db, tables...); err != nil {
		log.Fatalf("Error: Migration failed: %v", err)
	}

	// 4. Indexes AutoMigrate does not express
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_mode_transitions_session_occurred ON mode_transitions (session_id, occurred_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_assessment_reports_session_generated ON assessment_reports (session_id, generated_at DESC);`,
	}
	for _, sql := range indexes {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to create index: %v. Continuing...", err)
		}
	}

	log.Println("Migration completed successfully.")
}
