package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"noa-assistant-be/internal/bootstrap"
	"noa-assistant-be/internal/config"
	"noa-assistant-be/internal/server"
	"noa-assistant-be/internal/tracer"
	"noa-assistant-be/pkg/database"

	"gorm.io/gorm"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database (only the gorm driver needs one)
	var gormDB *gorm.DB
	if cfg.Persistence.Driver == "gorm" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.App.IsProduction())
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
		gormDB = db
	}

	// 3. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(gormDB, cfg)
	if err != nil {
		log.Fatalf("Unable to bootstrap: %v", err)
	}
	defer container.Close()

	shutdownTracer := tracer.InitTracer(cfg.App.TracingEnabled, container.Logger)
	defer func() { _ = shutdownTracer(context.Background()) }()

	// 4. Start Background Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := container.Start(ctx); err != nil {
		log.Fatalf("Unable to start background services: %v", err)
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		container.Logger.Info("SERVER", "Shutting down", nil)
		cancel()
		done := make(chan struct{})
		go func() {
			_ = srv.Shutdown()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
		}
	}()

	// 6. Run Server
	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
