package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"charactermemory/internal/character"
	"charactermemory/internal/config"
	"charactermemory/internal/handlers"
	"charactermemory/internal/jobs"
	"charactermemory/internal/llm"
	"charactermemory/internal/logging"
	"charactermemory/internal/memory"
	"charactermemory/internal/mood"
	"charactermemory/internal/orchestrator"
	"charactermemory/internal/relationship"
	"charactermemory/internal/storage"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("🚀 Starting charactermemory server...")

	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  no .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded")
	}

	cfg := config.Load()
	logger := logging.Init(cfg.Environment)
	logger.Info("configuration loaded", "port", cfg.Port, "environment", cfg.Environment)

	registry, err := storage.NewRegistry(cfg.MemoriesDir)
	if err != nil {
		log.Fatalf("❌ failed to open memory store registry: %v", err)
	}

	relDB, err := storage.OpenRelationshipDB(cfg.RelationshipDBPath)
	if err != nil {
		log.Fatalf("❌ failed to open relationship database: %v", err)
	}
	log.Println("✅ relationship database ready")

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("❌ invalid REDIS_URL: %v", err)
	}
	redisClient := redis.NewClient(redisOpts)
	moodStore := mood.New(redisClient)
	log.Println("✅ mood cache attached (degrades to memory-only if Redis is unreachable)")

	memCfg := memory.DefaultConfig()
	memCfg.BufferWindowSize = cfg.BufferWindowSize
	memCfg.SummaryThreshold = cfg.SummaryThreshold
	memCfg.ArchiveAfterDays = cfg.ArchiveAfterDays
	memCfg.ArchiveImportanceBelow = cfg.ArchiveImportanceBelow
	memCfg.CompressAfterDays = cfg.CompressAfterDays
	memCfg.CompressContentMinLen = cfg.CompressContentMinLen
	memCfg.IngestMilestone = cfg.IngestMilestone
	memCfg.CacheSize = cfg.ContextCacheSize
	memCfg.CacheTTL = cfg.ContextCacheTTL
	memEngine := memory.New(registry, memCfg)

	relCfg := relationship.DefaultConfig()
	relCfg.RewardCap = cfg.RewardCap
	relCfg.MaxEmotionalPerDay = cfg.MaxEmotionalMomentsPerDay
	relEngine := relationship.New(relDB, relCfg)

	charLoader, err := character.NewYAMLLoader(cfg.CharacterDefsDir, cfg.MemoriesDir, logger)
	if err != nil {
		log.Fatalf("❌ failed to load character definitions from %s: %v", cfg.CharacterDefsDir, err)
	}
	log.Println("✅ character definitions loaded")

	llmInvoker := llm.NewInvoker(llm.EchoClient{}, cfg.LLMTimeout)

	orchCfg := orchestrator.DefaultConfig()
	orchCfg.TurnTimeout = cfg.TurnTimeout
	orchCfg.PersistGrace = cfg.PersistGrace
	orchCfg.QueueSize = cfg.PendingQueueSz
	orchCfg.MinTurnInterval = cfg.MinTurnInterval
	orch := orchestrator.New(orchCfg, memEngine, relEngine, moodStore, charLoader, llmInvoker, logger)

	sched, err := jobs.New(registry, memEngine, cfg.MaintenanceCron, cfg.MaintenanceCronTZ, logger)
	if err != nil {
		log.Fatalf("❌ failed to build maintenance scheduler: %v", err)
	}
	sched.Start()
	log.Println("✅ maintenance scheduler started")

	app := handlers.RegisterRoutes(orch, memEngine, relEngine, registry, moodStore, cfg.AuthToken)

	logger.Info("http server configured", "port", cfg.Port)
	log.Printf("🚀 listening on :%s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ server stopped: %v", err)
	}
}
