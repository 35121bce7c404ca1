package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LingByte/LingIVR/cmd/bootstrap"
	"github.com/LingByte/LingIVR/internal/handlers"
	"github.com/LingByte/LingIVR/internal/models"
	"github.com/LingByte/LingIVR/pkg/config"
	"github.com/LingByte/LingIVR/pkg/ivr"
	"github.com/LingByte/LingIVR/pkg/llm"
	"github.com/LingByte/LingIVR/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "lingivr:", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Parse Command Line Parameters
	mode := flag.String("mode", "", "running environment (development, test, production)")
	initDB := flag.Bool("init", false, "migrate the call record tables")
	flag.Parse()

	// 2. Set Environment Variables
	if *mode != "" {
		os.Setenv("APP_ENV", *mode)
	}

	// 3. Load and validate configuration; missing credentials stop the process here
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// 4. Load Log Configuration
	if err := logger.Init(&cfg.Log, cfg.Server.Mode); err != nil {
		return err
	}
	defer logger.Sync()

	llmLogger := logrus.New()
	llmLogger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		llmLogger.SetLevel(level)
	}

	// 5. Print Banner
	if err := bootstrap.PrintBannerFromFile(os.Stdout, "banner.txt", cfg.Server.Name); err != nil {
		logger.Warn("banner unavailable", zap.Error(err))
	}

	// 6. Load Data Source
	db, err := bootstrap.SetupDatabase(os.Stdout, &bootstrap.Options{
		Database:    cfg.Database,
		AutoMigrate: *initDB || !cfg.IsProduction(),
		Debug:       cfg.Server.Mode == "development",
	})
	if err != nil {
		return fmt.Errorf("database setup failed: %w", err)
	}

	// 7. Backend adapter and relay
	provider, err := llm.NewProvider(cfg.LLM, llmLogger)
	if err != nil {
		return err
	}
	relay, err := llm.NewRelay(provider, cfg.LLM.Timeout, llmLogger)
	if err != nil {
		return err
	}

	// 8. Call flow
	orchestrator, err := ivr.NewOrchestrator(relay, cfg.Server.WebhookURL, cfg.IVR)
	if err != nil {
		return err
	}
	dialer, err := ivr.NewTwilioDialer(cfg.Twilio)
	if err != nil {
		return err
	}
	initiator, err := ivr.NewCallInitiator(dialer, cfg.Twilio.PhoneNumber, cfg.Server.WebhookURL, cfg.Twilio.RingTimeout)
	if err != nil {
		return err
	}

	var calls handlers.CallLookup
	if db != nil {
		store := models.NewCallStore(db)
		orchestrator.SetRecorder(store)
		initiator.SetRecorder(store)
		calls = store
	}

	var signature *ivr.SignatureValidator
	if cfg.Twilio.ValidateSignature {
		signature = ivr.NewSignatureValidator(cfg.Twilio.AuthToken, cfg.Server.WebhookURL)
	}
	if cfg.Server.WebhookURL == "" {
		logger.Warn("TWILIO_WEBHOOK_URL is not set; outbound calls are disabled and webhook URLs are derived from requests")
	}

	router := handlers.NewRouter(handlers.RouterOptions{
		Mode:           ginMode(cfg.Server.Mode),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Provider:       relay.ProviderName(),
		Chatbot:        handlers.NewChatbotHandler(relay),
		Calls:          handlers.NewCallHandler(initiator, calls),
		Orchestrator:   orchestrator,
		Signature:      signature,
	})

	logger.Info("checked config -- addr: ", zap.String("addr", cfg.Server.Addr))
	logger.Info("checked config -- db-driver: ", zap.String("db-driver", cfg.Database.Driver))
	logger.Info("checked config -- mode: ", zap.String("mode", cfg.Server.Mode))
	logger.Info("checked config -- llm: ",
		zap.String("provider", provider.Name()),
		zap.String("model", cfg.LLM.Model),
		zap.Int("maxAttempts", cfg.IVR.MaxAttempts))

	// 9. Serve until SIGINT/SIGTERM
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return nil
}

func ginMode(mode string) string {
	switch mode {
	case "production":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}
