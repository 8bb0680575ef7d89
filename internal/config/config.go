package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvDevelopment enables the dev token endpoint and human-readable logs
	EnvDevelopment = "development"
	// EnvProduction represents the production environment
	EnvProduction = "production"
)

// Provider and backend names
const (
	ProviderGemini = "gemini"
	ProviderGoogle = "google"
	ProviderMock   = "mock"

	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Env      string `envconfig:"ENV" default:"development"`
	Port     string `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Identity
	JWTSecret string        `envconfig:"JWT_SECRET"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"168h"`

	// Generation
	LLMProvider       string        `envconfig:"LLM_PROVIDER" default:"gemini"`
	GeminiAPIKey      string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel       string        `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	GenerationTimeout time.Duration `envconfig:"GENERATION_TIMEOUT" default:"60s"`

	// Speech recognition
	STTProvider        string        `envconfig:"STT_PROVIDER" default:"google"`
	STTSampleRate      int           `envconfig:"STT_SAMPLE_RATE" default:"48000"`
	STTEncoding        string        `envconfig:"STT_ENCODING" default:"LINEAR16"`
	MaxCaptureDuration time.Duration `envconfig:"MAX_CAPTURE_DURATION" default:"10m"`

	// Storage
	StoreBackend  string `envconfig:"STORE_BACKEND" default:"mongo"`
	MongoURI      string `envconfig:"MONGODB_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGODB_DATABASE" default:"firdraft"`
	SQLitePath    string `envconfig:"SQLITE_PATH" default:"firdraft.sqlite"`

	// Dashboard
	EditConfirmDelay time.Duration `envconfig:"EDIT_CONFIRM_DELAY" default:"1500ms"`

	// Websocket
	WSMessageRate  float64 `envconfig:"WS_MESSAGE_RATE" default:"20"`
	WSMessageBurst int     `envconfig:"WS_MESSAGE_BURST" default:"40"`
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Try to load .env file (optional for development)
	if err := godotenv.Load(); err != nil {
		// Not an error if file doesn't exist (expected in production)
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if cfg.JWTSecret == "" && cfg.IsDevelopment() {
		cfg.JWTSecret = "firdraft-development-secret"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDevelopment reports whether development-only features are enabled
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// Validate rejects inconsistent settings
func (c *Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required outside development"))
	}

	switch c.LLMProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini provider"))
		}
	case ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}

	switch c.STTProvider {
	case ProviderGoogle, ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("unknown STT_PROVIDER %q", c.STTProvider))
	}

	switch c.StoreBackend {
	case BackendMongo, BackendSQLite, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	if c.STTSampleRate < 8000 || c.STTSampleRate > 48000 {
		errs = append(errs, fmt.Errorf("STT_SAMPLE_RATE must be between 8000 and 48000, got %d", c.STTSampleRate))
	}
	if c.GenerationTimeout <= 0 {
		errs = append(errs, errors.New("GENERATION_TIMEOUT must be positive"))
	}
	if c.WSMessageRate <= 0 || c.WSMessageBurst <= 0 {
		errs = append(errs, errors.New("WS_MESSAGE_RATE and WS_MESSAGE_BURST must be positive"))
	}

	return errors.Join(errs...)
}
