package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/recallhq/recall/internal/clients/openai"
	"github.com/recallhq/recall/internal/clients/pinecone"
	"github.com/recallhq/recall/internal/db"
	"github.com/recallhq/recall/internal/handlers"
	"github.com/recallhq/recall/internal/ingest"
	"github.com/recallhq/recall/internal/platform/logger"
	"github.com/recallhq/recall/internal/realtime"
	"github.com/recallhq/recall/internal/realtime/bus"
	"github.com/recallhq/recall/internal/repos"
	"github.com/recallhq/recall/internal/server"
	"github.com/recallhq/recall/internal/services"
	"github.com/recallhq/recall/internal/temporalx"
	"github.com/recallhq/recall/internal/temporalx/temporalworker"
	"github.com/recallhq/recall/internal/utils"
	"github.com/recallhq/recall/internal/vector"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	systemPrompt := utils.GetEnv("SYSTEM_PROMPT", services.DefaultSystemPrompt, log)
	recentWindow := utils.GetEnvAsInt("RECENT_WINDOW", services.DefaultRecentWindow, log)
	memoryTopK := utils.GetEnvAsInt("MEMORY_TOP_K", services.DefaultMemoryTopK, log)
	chunkSize := utils.GetEnvAsInt("CHUNK_SIZE", ingest.DefaultChunkSize, log)

	// SQLite
	sqliteService, err := db.NewSQLiteService(log)
	if err != nil {
		log.Error("SQLite init failed", "error", err)
		os.Exit(1)
	}
	if err = sqliteService.AutoMigrateAll(); err != nil {
		log.Error("SQLite auto migration failed", "error", err)
		os.Exit(1)
	}
	theDB := sqliteService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	turnRepo := repos.NewTurnRepo(theDB, log)

	// Clients
	log.Info("Setting up Clients from main...")
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAI client", "error", err)
		os.Exit(1)
	}
	pineconeClient, err := pinecone.NewFromEnv(log)
	if err != nil {
		log.Error("Could not init Pinecone client", "error", err)
		os.Exit(1)
	}
	vectorStore, err := vector.NewStore(log, pineconeClient)
	if err != nil {
		log.Error("Could not init vector store", "error", err)
		os.Exit(1)
	}

	// Realtime
	log.Info("Setting up session event hub now...")
	hub := realtime.NewHub(log)
	eventBus := bus.New(log, hub)
	defer eventBus.Close()
	eventBus.StartForwarder(context.Background(), hub)

	// Services
	log.Info("Setting up Services from main...")
	generationService := services.NewGenerationService(log, openaiClient)
	memoryService := services.NewMemoryService(log, openaiClient, vectorStore)
	summaryService := services.NewSummaryService(log, turnRepo, generationService)
	registry := services.NewSessionRegistry(log, services.SessionConfig{
		SystemPrompt: systemPrompt,
		RecentWindow: recentWindow,
		MemoryTopK:   memoryTopK,
	}, turnRepo, memoryService, generationService, eventBus)
	defer registry.Close()

	// Temporal
	tcfg := temporalx.LoadConfig()
	tc, err := temporalx.NewClient(log)
	if err != nil {
		log.Error("Could not init Temporal client", "error", err)
		os.Exit(1)
	}
	steps := &ingest.Steps{AI: openaiClient, Store: vectorStore}
	ingestService := services.NewIngestService(log, tc, tcfg.TaskQueue, steps, chunkSize)
	if tc != nil {
		defer tc.Close()
		runner, err := temporalworker.NewRunner(log, tc, steps)
		if err != nil {
			log.Error("Could not init Temporal worker", "error", err)
			os.Exit(1)
		}
		go func() {
			if err := runner.Start(context.Background()); err != nil {
				log.Error("Temporal worker stopped", "error", err)
			}
		}()
	}

	// Handlers
	log.Info("Setting up handlers from main...")
	chatHandler := handlers.NewChatHandler(log, registry)
	ingestHandler := handlers.NewIngestHandler(log, ingestService)
	sessionHandler := handlers.NewSessionHandler(log, registry, summaryService, hub)

	// Router
	log.Info("Setting up router from main...")
	origins := strings.Split(utils.GetEnv("ALLOWED_ORIGINS", "", log), ",")
	if len(origins) == 1 && strings.TrimSpace(origins[0]) == "" {
		origins = nil
	}
	router := server.NewRouter(server.RouterConfig{
		Mode:           utils.GetEnv("GIN_MODE", "", log),
		AllowedOrigins: origins,
		ChatHandler:    chatHandler,
		IngestHandler:  ingestHandler,
		SessionHandler: sessionHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
