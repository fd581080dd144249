package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang-stock-advisor/internal/batch/config"
	"golang-stock-advisor/internal/batch/repository"
	"golang-stock-advisor/internal/batch/service"
	"golang-stock-advisor/pkg/logger"
	"golang-stock-advisor/pkg/postgres"
	"golang-stock-advisor/pkg/telegram"

	"github.com/spf13/cobra"
)

var configPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Runs one nightly ingestion and judgment batch",
	Run:   runBatch,
}

func runBatch(cmd *cobra.Command, args []string) {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Batch Service", logger.Field("name", cfg.App.Name))

	// Initialize database
	postgresCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		TimeZone:        cfg.Database.TimeZone,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
	db, err := postgres.NewDB(postgresCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Initialize Telegram notifier
	notifier := telegram.NewNoopNotifier()
	if cfg.Telegram.BotToken != "" {
		notifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			appLogger.Warn("Telegram notifier disabled", logger.ErrorField(err))
			notifier = telegram.NewNoopNotifier()
		}
	}

	// Initialize repositories
	yahooRepo := repository.NewYahooFinanceRepository(cfg, appLogger)
	edinetRepo := repository.NewEdinetRepository(cfg, appLogger)
	newsRepo := repository.NewNewsAPIRepository(cfg, appLogger)
	batchRunRepo := repository.NewBatchRunRepository(db.DB)
	vendorCacheRepo := repository.NewVendorCodeCacheRepository(db.DB)
	statementRepo := repository.NewStatementRepository(db.DB)
	watermarkRepo := repository.NewWatermarkRepository(db.DB)
	writerRepo := repository.NewBatchWriterRepository(db.DB, cfg.App.Version)

	// Run the pipeline
	pipeline := service.NewPipeline(cfg, appLogger, yahooRepo, edinetRepo, newsRepo,
		batchRunRepo, vendorCacheRepo, statementRepo, watermarkRepo, writerRepo, notifier)
	if err := pipeline.Run(ctx); err != nil {
		appLogger.Error("Batch run failed", logger.ErrorField(err))
		os.Exit(1)
	}

	appLogger.Info("Batch run finished")
}

func main() {
	rootCmd := &cobra.Command{Use: "batch-service"}

	runCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-batch.yaml", "Path to the configuration file")

	rootCmd.AddCommand(runCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing batch-service CLI: %s\n", err)
		os.Exit(1)
	}
}
