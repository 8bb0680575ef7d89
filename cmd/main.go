package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/satriahrh/firdraft/adapters"
	"github.com/satriahrh/firdraft/adapters/llm"
	"github.com/satriahrh/firdraft/adapters/mongo"
	"github.com/satriahrh/firdraft/adapters/sqlite"
	"github.com/satriahrh/firdraft/adapters/stations"
	"github.com/satriahrh/firdraft/adapters/stt"
	"github.com/satriahrh/firdraft/domain/repositories"
	"github.com/satriahrh/firdraft/internal/api"
	"github.com/satriahrh/firdraft/internal/auth"
	"github.com/satriahrh/firdraft/internal/config"
	applogger "github.com/satriahrh/firdraft/internal/logger"
	"github.com/satriahrh/firdraft/internal/websocket"
	"github.com/satriahrh/firdraft/usecase"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger, err := applogger.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize adapters
	textGenerator, err := newTextGenerator(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize text generator", zap.Error(err))
	}
	speechToText := newSpeechToText(cfg, logger)

	draftRepo, closeStore, err := newDraftRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize draft store", zap.Error(err))
	}
	defer closeStore()

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logger.Fatal("Failed to initialize token issuer", zap.Error(err))
	}

	// Initialize usecase services
	generator := usecase.NewDraftGenerator(textGenerator, cfg.GenerationTimeout, logger)
	draftStore := usecase.NewDraftStore(draftRepo, logger)
	locator := stations.NewMockLocator()

	hub := websocket.NewHub(speechToText, generator, draftStore, locator, issuer, websocket.HubConfig{
		Audio: repositories.AudioConfig{
			SampleRate: cfg.STTSampleRate,
			Encoding:   cfg.STTEncoding,
		},
		ConfirmDelay: cfg.EditConfirmDelay,
		MessageRate:  cfg.WSMessageRate,
		MessageBurst: cfg.WSMessageBurst,
	}, logger)
	go hub.Run(ctx)

	cleanup := websocket.NewCaptureCleanupService(hub, cfg.MaxCaptureDuration, logger)
	cleanup.Start()
	defer cleanup.Stop()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize API routes
	api.InitRoutes(e, api.Dependencies{
		Hub:       hub,
		Issuer:    issuer,
		Drafts:    draftStore,
		Stations:  locator,
		DevTokens: cfg.IsDevelopment(),
	}, logger)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
		zap.String("llm", cfg.LLMProvider),
		zap.String("stt", cfg.STTProvider),
		zap.String("store", cfg.StoreBackend))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newTextGenerator(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.TextGenerator, error) {
	switch cfg.LLMProvider {
	case config.ProviderMock:
		logger.Warn("Using mock text generator")
		return llm.NewMockGeminiClient(), nil
	default:
		return llm.NewGeminiLLM(ctx, llm.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		}, logger)
	}
}

func newSpeechToText(cfg *config.Config, logger *zap.Logger) repositories.SpeechToText {
	if cfg.STTProvider == config.ProviderMock {
		logger.Warn("Using mock speech recognizer")
		return stt.NewMockSpeechToText(logger)
	}
	return stt.NewGoogleSpeechToText(logger)
}

func newDraftRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.DraftRepository, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		logger.Warn("Using in-memory draft store; drafts are lost on restart")
		return adapters.NewMemoryDraftRepository(), func() {}, nil

	case config.BackendSQLite:
		repo, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using SQLite draft store", zap.String("path", repo.Path()))
		return repo, func() { repo.Close() }, nil

	default:
		client, err := mongo.NewClient(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			return nil, nil, err
		}
		repo := client.Drafts()
		if err := repo.EnsureIndexes(ctx); err != nil {
			client.Close(context.Background())
			return nil, nil, fmt.Errorf("preparing drafts collection: %w", err)
		}
		return repo, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			client.Close(closeCtx)
		}, nil
	}
}
