package bootstrap

import (
	"context"
	"log"
	"os"

	"crm-assistant-be/internal/config"
	"crm-assistant-be/internal/controller"
	"crm-assistant-be/internal/pkg/logger"
	"crm-assistant-be/internal/repository/implementation"
	"crm-assistant-be/internal/service"
	"crm-assistant-be/pkg/ai/cache"
	"crm-assistant-be/pkg/ai/conversation"
	"crm-assistant-be/pkg/ai/examples"
	"crm-assistant-be/pkg/ai/intent"
	"crm-assistant-be/pkg/ai/learning"
	"crm-assistant-be/pkg/ai/pipeline"
	"crm-assistant-be/pkg/ai/reference"
	"crm-assistant-be/pkg/ai/router"
	"crm-assistant-be/pkg/events"
	"crm-assistant-be/pkg/llm/factory"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController controller.IChatController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	aiLogger := log.New(os.Stdout, "", log.LstdFlags)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	interactionPublisher := events.NewPublisher(pubSub, cfg.Assistant.InteractionTopic)

	// Initialize LLM Provider based on Config
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.GoogleGemini,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 3. Repositories and the record store boundary
	contactRepo := implementation.NewContactRepository(db)
	accountRepo := implementation.NewAccountRepository(db)
	dealRepo := implementation.NewDealRepository(db)
	activityRepo := implementation.NewActivityRepository(db)
	teamMemberRepo := implementation.NewTeamMemberRepository(db)
	recordStore := implementation.NewGormRecordStore(contactRepo, accountRepo, dealRepo, activityRepo, teamMemberRepo)

	// 4. Rate limiting, Redis-backed when configured
	limits := cache.Limits{
		UserPerMinute:   cfg.Assistant.RateUserPerMinute,
		UserPerHour:     cfg.Assistant.RateUserPerHour,
		UserPerDay:      cfg.Assistant.RateUserPerDay,
		GlobalPerMinute: cfg.Assistant.RateGlobalPerMinute,
		GlobalPerHour:   cfg.Assistant.RateGlobalPerHour,
		GlobalPerDay:    cfg.Assistant.RateGlobalPerDay,
	}
	var limiter cache.RateLimiter = cache.NewMemoryRateLimiter(limits)
	if cfg.Assistant.UseRedisRateLimit {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis, keeping in-memory rate limiter: %v", err)
		} else {
			limiter = cache.NewRedisRateLimiter(rdb, limits)
			log.Printf("[INFO] Using Redis rate limiter")
		}
	}

	// 5. Assistant core
	exampleStore := examples.NewStore(cfg.Assistant.ExamplesPerDomain)
	understanding := cache.New(cfg.Assistant.CacheCapacity, cfg.Assistant.UnderstandingTTL)
	dataCache := cache.New(cfg.Assistant.CacheCapacity, cfg.Assistant.DataTTL)
	fetcher := cache.NewBatchFetcher(dataCache, cfg.Assistant.DataTTL)
	manager := conversation.NewManager()
	resolver := reference.NewResolver(llmProvider, recordStore, aiLogger)
	classifier := intent.NewClassifier(llmProvider, exampleStore, aiLogger)
	learningEngine := learning.NewEngine(interactionPublisher, aiLogger)
	dispatch := router.New(aiLogger, router.WithDataFetcher(fetcher, recordStore))

	orchestrator := pipeline.NewOrchestrator(
		resolver,
		classifier,
		manager,
		understanding,
		dispatch,
		learningEngine,
		exampleStore,
		aiLogger,
		pipeline.WithStageTimeout(cfg.Assistant.StageTimeout),
		pipeline.WithUnderstandingTTL(cfg.Assistant.UnderstandingTTL),
	)

	// 6. Services
	assistantService := service.NewAssistantService(orchestrator, manager, limiter, sysLogger)
	consumerService := service.NewConsumerService(pubSub, cfg.Assistant.InteractionTopic, sysLogger)

	// 7. Controllers
	return &Container{
		ChatController:  controller.NewChatController(assistantService),
		ConsumerService: consumerService,
	}
}
