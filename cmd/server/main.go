package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/sc2sm/sc2sm/internal/api"
	"github.com/sc2sm/sc2sm/internal/batch"
	"github.com/sc2sm/sc2sm/internal/coderabbit"
	"github.com/sc2sm/sc2sm/internal/config"
	"github.com/sc2sm/sc2sm/internal/db"
	"github.com/sc2sm/sc2sm/internal/generator"
	"github.com/sc2sm/sc2sm/internal/github"
	"github.com/sc2sm/sc2sm/internal/oauth"
	"github.com/sc2sm/sc2sm/internal/posts"
	"github.com/sc2sm/sc2sm/internal/reports"
	"github.com/sc2sm/sc2sm/internal/scheduler"
	"github.com/sc2sm/sc2sm/internal/social"
	"github.com/sc2sm/sc2sm/internal/webhook"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("Unknown LOG_LEVEL %q, using info", cfg.LogLevel)
	}

	// Initialize database
	store, err := db.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Run migrations with retry logic
	if err := retry(3, 5*time.Second, func() error {
		return store.Migrate()
	}); err != nil {
		logger.Fatalf("Failed to run migrations after retries: %v", err)
	}

	// Content pipeline
	writer := generator.NewGenerator(&cfg.LLM, logger)
	publisher := social.NewChain(&cfg.X, logger)
	if !publisher.Enabled() {
		logger.WithField("reason", publisher.DisabledReason()).Warn("Publishing to X is disabled")
	}

	processor := webhook.NewProcessor(store, writer, logger)
	postService := posts.NewService(store, publisher, logger)
	repoService := github.NewRepositoryService(
		store,
		github.NewClientFactory(cfg.GitHub.APIBaseURL, logger),
		processor,
		logger,
	)

	// Report pipeline
	pool := batch.NewProcessor(&cfg.Workers, logger)
	reportService := reports.NewService(store, coderabbit.NewClient(&cfg.CodeRabbit, logger), pool, writer, logger)

	// OAuth
	githubAuth := oauth.NewGitHubManager(&cfg.GitHub, store, logger)
	deviceFlow := oauth.NewDeviceFlow(&cfg.GitHub, githubAuth.LoginWithToken, logger)
	xAuth := oauth.NewXManager(&cfg.X, store, logger)

	handler := api.NewHandler(api.Deps{
		Posts:        postService,
		Repositories: repoService,
		Reports:      reportService,
		Webhooks:     processor,
		Verifier:     webhook.NewVerifierFromConfig(cfg),
		GitHub:       githubAuth,
		X:            xAuth,
		Device:       deviceFlow,
		States:       oauth.NewStateStore(oauth.DefaultStateTTL),
		Users:        store,
		Sessions:     api.NewSessions(cfg.SecretKey, cfg.IsProduction()),
	}, logger)
	if cfg.WebhookVerificationDisabled() {
		logger.Warn("Webhook signature verification is disabled")
	}

	// Scheduled publishing and metric refresh
	var jobs *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		jobs, err = scheduler.NewPostScheduler(&cfg.Scheduler, postService, logger)
		if err != nil {
			logger.Fatalf("Failed to configure scheduler: %v", err)
		}
		jobs.Start()
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.SetupRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	if jobs != nil {
		if err := jobs.Stop(shutdownCtx); err != nil {
			logger.Errorf("Scheduler shutdown failed: %v", err)
		}
	}
	if err := pool.Stop(shutdownCtx); err != nil {
		logger.Errorf("Report workers did not drain: %v", err)
	}
	deviceFlow.Close()
	logger.Info("Server exited properly")
}

// retry retries a function up to a certain number of attempts with a delay between attempts
func retry(attempts int, sleep time.Duration, fn func() error) error {
	if err := fn(); err != nil {
		if attempts--; attempts > 0 {
			time.Sleep(sleep)
			return retry(attempts, sleep, fn)
		}
		return err
	}
	return nil
}
