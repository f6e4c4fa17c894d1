package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ledgerlens/internal/api"
	"ledgerlens/internal/api/handlers"
	"ledgerlens/internal/jobs"
	"ledgerlens/internal/jobs/inmemory"
	"ledgerlens/internal/repository"
	"ledgerlens/internal/rules"
	"ledgerlens/internal/service"
	"ledgerlens/internal/signhint"
	"ledgerlens/pkg/auth"
	"ledgerlens/pkg/config"
	"ledgerlens/pkg/logger"
	"ledgerlens/pkg/postgres"

	"go.uber.org/zap"
)

// @title LedgerLens API
// @version 1.0
// @description Financial document ingestion: statements and receipts in, categorized transactions out.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting LedgerLens service")

	// Initialize database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db, appLogger)
	accountRepo := repository.NewAccountRepository(db, appLogger)
	categoryRepo := repository.NewCategoryRepository(db, appLogger)
	ruleRepo := repository.NewRuleRepository(db, appLogger)
	docRepo := repository.NewDocumentRepository(db, appLogger)
	txRepo := repository.NewTransactionRepository(db, appLogger)

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration, cfg.JWT.RefreshExp)

	// Sign keyword lists for the extraction preprocessor
	keywords, err := signhint.LoadKeywords(cfg.Pipeline.KeywordsFile)
	if err != nil {
		appLogger.Warn("Failed to load sign keywords, using defaults", zap.Error(err))
		keywords = signhint.DefaultKeywords()
	}

	// Extraction providers
	gigachat, err := service.NewGigaChatExtractor(&cfg.GigaChat, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize GigaChat extractor", zap.Error(err))
	}
	defer gigachat.Close()

	fallback := service.NewFallbackExtractor(keywords, cfg.Pipeline.DefaultCurrency, appLogger)

	ocr := service.NewTesseractOCR(cfg.Pipeline.OCRLanguages, appLogger)
	defer ocr.Close()

	pdfConverter := service.NewFitzConverter(appLogger)
	structured := service.NewFileTextExtractor(appLogger)

	// Categorization engine and pipeline
	ruleEngine := rules.NewEngine(ruleRepo, appLogger)
	reconciler := service.NewReconciler(txRepo, appLogger)
	materializer := service.NewMaterializer(categoryRepo, ruleEngine, cfg.Pipeline.DefaultCurrency, appLogger)

	pipeline := service.NewPipelineService(service.PipelineDeps{
		Documents:    docRepo,
		Transactions: txRepo,
		Rules:        ruleRepo,
		Primary:      gigachat,
		Fallback:     fallback,
		OCR:          ocr,
		PDF:          pdfConverter,
		Structured:   structured,
		Reconciler:   reconciler,
		Materializer: materializer,
		Keywords:     keywords,
		Config:       cfg.Pipeline,
		Logger:       appLogger,
	})

	// Background job queue
	queue := inmemory.NewQueue(cfg.Pipeline.QueueBuffer, appLogger)
	if err := queue.Start(ctx, func(jobCtx context.Context, job *jobs.ProcessDocumentJob) error {
		return pipeline.ProcessDocument(jobCtx, job.UserID, job.DocumentID)
	}); err != nil {
		appLogger.Fatal("Failed to start job queue", zap.Error(err))
	}

	// Services
	authService := service.NewAuthService(userRepo, jwtManager, appLogger)
	accountService := service.NewAccountService(accountRepo, cfg.Pipeline.DefaultCurrency, appLogger)
	docService := service.NewDocumentService(docRepo, txRepo, accountRepo, queue, cfg.Pipeline.UploadDir, appLogger)
	txService := service.NewTransactionService(txRepo, categoryRepo, ruleEngine, appLogger)
	ruleService := service.NewRuleService(ruleRepo, categoryRepo, appLogger)

	// Setup router
	app := api.SetupRouter(api.Handlers{
		Auth:        handlers.NewAuthHandler(authService, appLogger),
		Account:     handlers.NewAccountHandler(accountService, appLogger),
		Document:    handlers.NewDocumentHandler(docService, pipeline, appLogger),
		Transaction: handlers.NewTransactionHandler(txService, appLogger),
		Rule:        handlers.NewRuleHandler(ruleService, appLogger),
	}, jwtManager, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
	if err := queue.Stop(ctx); err != nil {
		appLogger.Error("Job queue shutdown error", zap.Error(err))
	}
}
