package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/reai/reai-backend/internal/app"
	"github.com/reai/reai-backend/internal/cache"
	"github.com/reai/reai-backend/internal/clients/llm"
	"github.com/reai/reai-backend/internal/data/db"
	"github.com/reai/reai-backend/internal/data/repos"
	"github.com/reai/reai-backend/internal/handlers"
	"github.com/reai/reai-backend/internal/observability"
	"github.com/reai/reai-backend/internal/pipeline"
	"github.com/reai/reai-backend/internal/platform/logger"
	"github.com/reai/reai-backend/internal/search"
	"github.com/reai/reai-backend/internal/server"
	"github.com/reai/reai-backend/internal/services"
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

	// Config
	log.Info("Loading configuration from main...")
	cfg, err := app.LoadConfig(log)
	if err != nil {
		log.Error("Could not load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	if otelShutdown := observability.Init(ctx, log, logMode); otelShutdown != nil {
		defer func() {
			if err := otelShutdown(context.Background()); err != nil {
				log.Warn("otel shutdown failed", "error", err)
			}
		}()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(cfg.Postgres, log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	reviewRepo := repos.NewReviewRepo(thePG, log)
	companyRepo := repos.NewCompanyRepo(thePG, log)
	departmentRepo := repos.NewDepartmentRepo(thePG, log)
	agentLogRepo := repos.NewAgentLogRepo(thePG, log)

	// Redis cache
	reviewCache, err := cache.New(cfg.Redis, cfg.Cache, log)
	if err != nil {
		log.Warn("Redis init failed, continuing without cache", "error", err)
		reviewCache = nil
	} else {
		defer reviewCache.Close()
	}

	// Search index
	searchIndex, err := search.New(cfg.Search, log)
	if err != nil {
		log.Warn("OpenSearch init failed, continuing without search", "error", err)
		searchIndex = nil
	} else if err := searchIndex.EnsureIndex(ctx); err != nil {
		log.Warn("Could not ensure search index", "error", err)
	}

	// LLM classifier and batch analyst
	classifier, err := llm.NewClassifier(ctx, cfg.LLM, log)
	if err != nil {
		log.Error("Could not init classifier", "error", err)
		os.Exit(1)
	}
	analyst, err := llm.NewAnalyst(ctx, cfg.LLM, log)
	if err != nil {
		log.Error("Could not init analyst", "error", err)
		os.Exit(1)
	}

	// Pipeline
	log.Info("Setting up pipeline from main...")
	router := pipeline.NewRouter(departmentRepo, cfg.Router, log)
	var (
		cacheStore  pipeline.CacheStore
		searchStore pipeline.SearchStore
	)
	if reviewCache != nil {
		cacheStore = reviewCache
	}
	if searchIndex != nil {
		searchStore = searchIndex
	}
	pipe := pipeline.New(thePG, reviewRepo, departmentRepo, agentLogRepo, router, classifier, cacheStore, searchStore, log)

	worker, err := pipeline.NewWorker(pipe, reviewRepo, cfg.Pipeline, log)
	if err != nil {
		log.Error("Could not init worker", "error", err)
		os.Exit(1)
	}
	go func() {
		if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("Worker exited", "error", err)
		}
	}()

	// Services
	log.Info("Setting up Services from main...")
	var (
		svcCache    services.ReviewCache
		svcSearcher services.ReviewSearcher
	)
	if reviewCache != nil {
		svcCache = reviewCache
	}
	if searchIndex != nil {
		svcSearcher = searchIndex
	}
	reviewService := services.NewReviewService(thePG, log, reviewRepo, companyRepo, pipe, svcCache, svcSearcher)
	analysisService := services.NewAnalysisService(log, reviewRepo, analyst)
	companyService := services.NewCompanyService(thePG, log, companyRepo)
	departmentService := services.NewDepartmentService(thePG, log, departmentRepo)

	// Handlers
	log.Info("Setting up handlers from main...")
	reviewHandler := handlers.NewReviewHandler(reviewService)
	analysisHandler := handlers.NewAnalysisHandler(analysisService)
	companyHandler := handlers.NewCompanyHandler(companyService)
	departmentHandler := handlers.NewDepartmentHandler(departmentService)

	var (
		cachePinger  handlers.Pinger
		searchPinger handlers.Pinger
	)
	if reviewCache != nil {
		cachePinger = reviewCache
	}
	if searchIndex != nil {
		searchPinger = searchIndex
	}
	systemHandler := handlers.NewSystemHandler(thePG, cachePinger, searchPinger, cfg.LLM.Provider)

	// Router
	log.Info("Setting up router from main...")
	engine := server.NewRouter(server.RouterConfig{
		ReviewHandler:     reviewHandler,
		AnalysisHandler:   analysisHandler,
		CompanyHandler:    companyHandler,
		DepartmentHandler: departmentHandler,
		SystemHandler:     systemHandler,
	})

	fmt.Printf("Server listening on :%s\n", cfg.Port)
	if err := engine.Run(":" + cfg.Port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
