package main

import (
	"context"
	"fmt"
	"os"

	"github.com/conceptmesh/conceptmesh-backend/internal/graph"
	"github.com/conceptmesh/conceptmesh-backend/internal/handlers"
	"github.com/conceptmesh/conceptmesh-backend/internal/pipeline"
	"github.com/conceptmesh/conceptmesh-backend/internal/platform/llm"
	"github.com/conceptmesh/conceptmesh-backend/internal/platform/logger"
	"github.com/conceptmesh/conceptmesh-backend/internal/platform/neo4jdb"
	"github.com/conceptmesh/conceptmesh-backend/internal/search"
	"github.com/conceptmesh/conceptmesh-backend/internal/server"
	"github.com/conceptmesh/conceptmesh-backend/internal/store"
	"github.com/conceptmesh/conceptmesh-backend/internal/utils"
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

	// Clients
	log.Info("Setting up clients from main...")
	llmClient, err := llm.NewFromEnv(log)
	if err != nil {
		log.Error("Could not init LLM client", "error", err)
		os.Exit(1)
	}
	if llmClient == nil {
		log.Warn("No LLM API key configured; classification, validation and graph extraction degrade to fallbacks")
	}

	neo4jClient, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Warn("Neo4j init failed, graph sync disabled", "error", err)
	}
	if neo4jClient != nil {
		defer neo4jClient.Close(context.Background())
	}

	st, err := store.NewFromEnv(log)
	if err != nil {
		log.Error("Could not init store", "error", err)
		os.Exit(1)
	}

	// Pipeline components
	log.Info("Setting up pipeline from main...")
	provider := search.NewProviderFromEnv(log)
	fanoutLimit := utils.GetEnvAsInt("SEARCH_FANOUT_LIMIT", 8, log)
	fanout := search.NewFanout(log, provider, fanoutLimit)
	validator := search.NewValidator(log, llmClient)
	classifier := search.NewClassifier(log, llmClient)
	extractor := graph.NewLLMExtractor(log, llmClient)

	registry := pipeline.NewRegistry()
	orchestrator := pipeline.NewOrchestrator(log, registry, fanout, validator, extractor, st, neo4jClient)

	// Handlers
	searchHandler := handlers.NewSearchHandler(log, classifier, orchestrator, registry)
	graphHandler := handlers.NewGraphHandler(log, st, llmClient)

	router := server.NewRouter(server.RouterConfig{
		SearchHandler: searchHandler,
		GraphHandler:  graphHandler,
	})

	port := utils.GetEnv("PORT", "8000", log)
	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
