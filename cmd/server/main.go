package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/jbdelacruz/barangay-portal/internal/application/port"
	"github.com/jbdelacruz/barangay-portal/internal/application/service"
	appwf "github.com/jbdelacruz/barangay-portal/internal/application/workflow"
	"github.com/jbdelacruz/barangay-portal/internal/config"
	"github.com/jbdelacruz/barangay-portal/internal/infrastructure/external/docgen"
	"github.com/jbdelacruz/barangay-portal/internal/infrastructure/external/sms"
	"github.com/jbdelacruz/barangay-portal/internal/infrastructure/persistence/repository"
	"github.com/jbdelacruz/barangay-portal/internal/infrastructure/persistence/sqlite"
	"github.com/jbdelacruz/barangay-portal/internal/infrastructure/storage"
	httpadapter "github.com/jbdelacruz/barangay-portal/internal/interfaces/http"
	"github.com/jbdelacruz/barangay-portal/internal/upload"
	"github.com/jbdelacruz/barangay-portal/internal/worker"
	"github.com/jbdelacruz/barangay-portal/pkg/database"
	"github.com/jbdelacruz/barangay-portal/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	// .env first so viper's env bindings see the values
	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting barangay document request portal",
		zap.Int("port", cfg.Server.Port))

	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Fatal("Failed to create data directory", zap.Error(err))
		}
	}

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.Storage.BaseDir, 0755); err != nil {
		logger.Fatal("Failed to create storage directory", zap.Error(err))
	}

	// Persistence
	txManager := sqlite.NewDB(db.DB, logger)
	requestRepo := repository.NewRequestRepository(db.DB, logger)
	historyRepo := repository.NewHistoryRepository(db.DB, logger)

	// Infrastructure
	fileStorage := storage.NewLocalFileStorage(cfg.Storage.BaseDir, logger)
	folders := storage.NewFolderManager(cfg.Storage.BaseDir, logger)
	pdfInspector := upload.NewInspector(logger)
	generator := docgen.NewClient(docgen.Config{
		BaseURL:  cfg.DocGen.BaseURL,
		APIToken: cfg.DocGen.APIToken,
		Timeout:  cfg.DocGen.Timeout,
	}, logger)

	var smsSender port.SMSSender = sms.NopSender{}
	if cfg.SMS.Enabled {
		smsSender = sms.NewClient(sms.Config{
			BaseURL:    cfg.SMS.BaseURL,
			APIToken:   cfg.SMS.APIToken,
			SenderName: cfg.SMS.SenderName,
			Timeout:    cfg.SMS.Timeout,
		}, logger)
	}

	// Application
	kvLogger := utils.NewKVLogger(logger)
	engine := appwf.NewEngine(requestRepo, historyRepo, txManager, kvLogger)
	statsCache := service.NewStatsCache(requestRepo)

	requestService := service.NewRequestService(service.RequestServiceDeps{
		RequestRepo:   requestRepo,
		HistoryRepo:   historyRepo,
		TxManager:     txManager,
		Engine:        engine,
		Generator:     generator,
		SMSSender:     smsSender,
		FileStorage:   fileStorage,
		Folders:       folders,
		PDFInspector:  pdfInspector,
		StatsCache:    statsCache,
		MaxUploadSize: cfg.Storage.MaxUploadSize,
		Logger:        kvLogger,
	})
	reportService := service.NewReportService(requestRepo, cfg.Report.BarangayName, kvLogger)

	// Background workers
	workerManager := worker.NewManager(logger)
	if cfg.Worker.Enabled {
		workerManager.Register(worker.NewGenerationWorker(
			requestRepo,
			generator,
			requestService,
			logger,
			worker.WithPollInterval(cfg.Worker.PollInterval),
		))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := workerManager.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	server := httpadapter.NewServer(httpadapter.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, requestService, reportService, kvLogger)

	// Cancel everything on SIGINT/SIGTERM; Start blocks until shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("Shutdown signal received")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.Error("HTTP server exited with error", zap.Error(err))
	}

	workerManager.StopAll()
	logger.Info("Shutdown complete")
}
