package bootstrap

import (
	"context"
	"fmt"
	"time"

	"noa-assistant-be/internal/config"
	"noa-assistant-be/internal/controller"
	"noa-assistant-be/internal/pkg/logger"
	"noa-assistant-be/internal/repository"
	"noa-assistant-be/internal/repository/memory"
	redisrepo "noa-assistant-be/internal/repository/redis"
	"noa-assistant-be/internal/repository/snapshot"
	"noa-assistant-be/internal/repository/unitofwork"
	"noa-assistant-be/internal/service"
	aiEvents "noa-assistant-be/pkg/ai/events"
	"noa-assistant-be/pkg/ai/pipeline"
	"noa-assistant-be/pkg/ai/router"
	"noa-assistant-be/pkg/interview/stage"
	"noa-assistant-be/pkg/interview/state"
	"noa-assistant-be/pkg/learning/retriever"
	"noa-assistant-be/pkg/llm/factory"
	pktNats "noa-assistant-be/pkg/nats"
	"noa-assistant-be/pkg/persistence"
	"noa-assistant-be/pkg/session"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const logModule = "BOOTSTRAP"

type Container struct {
	Logger *logger.ZapLogger

	// Controllers
	DialogueController controller.IDialogueController
	AdminController    controller.IAdminController

	DialogueService service.IDialogueService

	// Background services, nil when their infrastructure is not configured.
	ConsumerService   service.IConsumerService
	CompletionService service.ICompletionService

	snapshots snapshot.Store
	closers   []func()
}

// NewContainer wires the dialogue core. db is only required by the "gorm"
// persistence driver.
func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	c := &Container{}

	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.IsProduction())
	c.Logger = sysLogger

	// 2. Persistence
	adapter, reader, err := c.persistence(db, cfg, sysLogger)
	if err != nil {
		return nil, err
	}

	// 3. Sessions
	sessions := session.NewManager(c.sessionRepository(cfg, sysLogger), sysLogger)

	// 4. Event Bus
	natsPub, natsSub := c.nats(cfg, sysLogger)
	publisher := aiEvents.NewNatsPublisher(natsPub, sysLogger)

	// 5. Dialogue core
	llmProvider, err := factory.NewLLMProvider(factory.Config{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		BaseURL:  cfg.Ai.LLMBaseURL,
		APIKey:   cfg.Ai.LLMAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("init llm provider: %w", err)
	}
	sysLogger.Info(logModule, "LLM provider ready", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})

	table, err := loadStageTable(cfg.Dialogue.StageTablePath)
	if err != nil {
		return nil, err
	}
	intents, err := router.DefaultTable()
	if err != nil {
		return nil, err
	}
	rules, err := pipeline.DefaultRules()
	if err != nil {
		return nil, err
	}
	course, err := pipeline.DefaultCourse()
	if err != nil {
		return nil, err
	}

	ret := retriever.New(adapter, cfg.Dialogue.Thresholds(), sysLogger)
	machine := state.NewMachine(table,
		state.WithRecorder(adapter),
		state.WithLogger(sysLogger),
		state.WithMaxRepetitions(cfg.Dialogue.MaxRepetitions),
		state.WithNegations(cfg.Dialogue.Negations),
	)
	composer := pipeline.NewComposer(pipeline.ComposerDeps{
		Rules:     rules,
		Machine:   machine,
		Course:    pipeline.NewCourseHandler(course, ret),
		Retriever: ret,
		LLM: pipeline.NewBypassPipeline(llmProvider, sysLogger, pipeline.BypassConfig{
			Timeout:   cfg.Ai.LLMTimeout,
			MaxTokens: cfg.Ai.MaxTokens,
		}),
		Recorder:      adapter,
		Logger:        sysLogger,
		HistoryWindow: cfg.Dialogue.HistoryWindow,
	})

	// 6. Services
	dialogueService := service.NewDialogueService(service.DialogueDeps{
		Sessions:      sessions,
		Router:        router.NewRouter(intents, ret, adapter, publisher, sysLogger, cfg.Dialogue.DefaultConfidence),
		Composer:      composer,
		Machine:       machine,
		Recorder:      adapter,
		Reader:        reader,
		Publisher:     publisher,
		Logger:        sysLogger,
		HistoryWindow: cfg.Dialogue.HistoryWindow,
	})
	c.DialogueService = dialogueService
	if natsSub != nil {
		c.CompletionService = service.NewCompletionService(natsSub, dialogueService, sysLogger)
	}

	// 7. Controllers
	c.DialogueController = controller.NewDialogueController(dialogueService, sysLogger)
	c.AdminController = controller.NewAdminController(dialogueService, sysLogger, cfg.Auth.JWTSecret, cfg.App.LogFilePath)

	return c, nil
}

// persistence returns the adapter used by the dialogue core and the store
// that backs read-only listings.
func (c *Container) persistence(db *gorm.DB, cfg *config.Config, log logger.ILogger) (persistence.Adapter, persistence.Store, error) {
	switch cfg.Persistence.Driver {
	case "gorm":
		if db == nil {
			return nil, nil, fmt.Errorf("persistence driver gorm needs a database connection")
		}
		store := repository.NewGormStore(unitofwork.NewRepositoryFactory(db))
		c.snapshots = store

		pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, watermill.NewStdLogger(false, false))
		c.closers = append(c.closers, func() { _ = pubSub.Close() })

		topic := "dialogue.persistence"
		c.ConsumerService = service.NewConsumerService(pubSub, topic, store, log)
		adapter := persistence.NewAsync(pubSub, store, log, persistence.AsyncConfig{
			Topic:          topic,
			EnqueueTimeout: cfg.Persistence.EnqueueTimeout,
			ReadTimeout:    cfg.Persistence.ReadTimeout,
		})
		c.closers = append(c.closers, adapter.Close)
		return adapter, store, nil

	case "memory":
		store := persistence.NewMemoryStore()
		return persistence.NewBestEffort(store, log, cfg.Persistence.EnqueueTimeout, cfg.Persistence.ReadTimeout), store, nil

	case "noop":
		return persistence.Noop{}, nil, nil

	default:
		return nil, nil, fmt.Errorf("unsupported persistence driver: %s", cfg.Persistence.Driver)
	}
}

// sessionRepository keeps live sessions in process, backed by redis when
// one is configured and reachable, or else by the database snapshots.
func (c *Container) sessionRepository(cfg *config.Config, log logger.ILogger) session.Repository {
	fast := memory.NewSessionRepository(cfg.Dialogue.SessionTTL)
	if cfg.App.RedisURL == "" {
		return c.withSnapshots(fast, log)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Warn(logModule, "Failed to parse Redis URL, using it as an address", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn(logModule, "Redis unreachable, falling back", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return c.withSnapshots(fast, log)
	}

	c.closers = append(c.closers, func() { _ = rdb.Close() })
	return session.NewTiered(fast, redisrepo.NewSessionRepository(rdb, cfg.Dialogue.SessionTTL), log)
}

func (c *Container) withSnapshots(fast session.Repository, log logger.ILogger) session.Repository {
	if c.snapshots == nil {
		return fast
	}
	log.Info(logModule, "Sessions resume from database snapshots", nil)
	return session.NewTiered(fast, snapshot.NewSessionRepository(c.snapshots), log)
}

func (c *Container) nats(cfg *config.Config, log logger.ILogger) (*pktNats.Publisher, *pktNats.Subscriber) {
	if cfg.App.NatsURL == "" {
		return nil, nil
	}

	pub, err := pktNats.NewPublisher(cfg.App.NatsURL, log)
	if err != nil {
		log.Warn(logModule, "Failed to connect to NATS publisher", map[string]interface{}{"error": err.Error()})
		return nil, nil
	}
	c.closers = append(c.closers, pub.Close)

	sub, err := pktNats.NewSubscriber(cfg.App.NatsURL, log)
	if err != nil {
		log.Warn(logModule, "Failed to connect to NATS subscriber", map[string]interface{}{"error": err.Error()})
		return pub, nil
	}
	c.closers = append(c.closers, sub.Close)
	return pub, sub
}

func loadStageTable(path string) (*stage.Table, error) {
	if path == "" {
		return stage.Default()
	}
	return stage.Load(path)
}

// Start launches the background services that are configured.
func (c *Container) Start(ctx context.Context) error {
	if c.ConsumerService != nil {
		if err := c.ConsumerService.Consume(ctx); err != nil {
			return fmt.Errorf("start persistence consumer: %w", err)
		}
	}
	if c.CompletionService != nil {
		if err := c.CompletionService.Start(ctx); err != nil {
			return fmt.Errorf("start completion service: %w", err)
		}
	}
	return nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
