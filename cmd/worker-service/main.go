package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/mailsweep/internal/classifier"
	"github.com/cuongbtq/mailsweep/internal/config"
	"github.com/cuongbtq/mailsweep/internal/gmail"
	"github.com/cuongbtq/mailsweep/internal/jobstore"
	"github.com/cuongbtq/mailsweep/internal/mailstore"
	"github.com/cuongbtq/mailsweep/internal/worker"
	"github.com/cuongbtq/mailsweep/shared/logger"
	"github.com/cuongbtq/mailsweep/shared/postgresql"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize PostgreSQL client
	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Database connection established")

	// Initialize storages and ensure schema
	jobs := jobstore.New(dbClient.GetDB(), appLogger.Logger)
	mail := mailstore.New(dbClient.GetDB(), appLogger.Logger)

	schemaCtx, schemaCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer schemaCancel()

	if err := jobs.EnsureSchema(schemaCtx); err != nil {
		return fmt.Errorf("failed to ensure job schema: %w", err)
	}
	if err := mail.EnsureSchema(schemaCtx); err != nil {
		return fmt.Errorf("failed to ensure mail schema: %w", err)
	}

	// Connect the Gmail gateway. A dead mailbox connection makes every job
	// fail, so abort startup instead of entering the poll loop.
	connectCtx, connectCancel := context.WithTimeout(context.Background(), time.Minute)
	defer connectCancel()

	gateway, err := gmail.Connect(connectCtx, &gmail.Config{
		CredentialsPath: cfg.Gmail.CredentialsPath,
		TokenPath:       cfg.Gmail.TokenPath,
		PageSize:        cfg.Gmail.PageSize,
		RequestTimeout:  cfg.Gmail.RequestTimeout,
	}, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to Gmail: %w", err)
	}

	appLogger.Info("Gmail connection established")

	// Initialize the classification engine
	llmClient := classifier.NewLLMClient(&classifier.LLMConfig{
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		APIKey:         os.Getenv(cfg.LLM.APIKeyEnv),
		RequestTimeout: cfg.LLM.RequestTimeout,
	})
	engine := classifier.NewEngine(llmClient, appLogger.Logger)

	// Create worker instance
	workerInstance := worker.New(&worker.Config{
		Logger:            appLogger.Logger,
		Jobs:              jobs,
		Mail:              mail,
		Gateway:           gateway,
		Classifier:        engine,
		PollInterval:      cfg.Worker.PollInterval,
		LoopErrorBackoff:  cfg.Worker.LoopErrorBackoff,
		DeleteBatchSize:   cfg.Worker.DeleteBatchSize,
		BatchPause:        cfg.Worker.BatchPause,
		HeartbeatInterval: cfg.Worker.HeartbeatInterval,
		StaleJobThreshold: cfg.Worker.StaleJobThreshold,
		ListCap:           cfg.Gmail.ListCap,
	})

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start worker in a goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- workerInstance.Run(ctx)
	}()

	appLogger.Info("Worker service started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		if err != nil && err != context.Canceled {
			appLogger.Error("Worker error",
				slog.Any("error", err),
			)
			return err
		}
	}

	// Cancel context to stop the worker loop
	cancel()

	// Give worker time to finish the in-flight job
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	select {
	case <-errChan:
		appLogger.Info("Worker stopped gracefully")
	case <-shutdownCtx.Done():
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	// Cleanup function to close all resources
	cleanup := func() {
		if dbClient != nil {
			dbClient.Close()
		}
	}
	cleanup()

	appLogger.Info("Worker service shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}
