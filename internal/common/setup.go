package common

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"strings"

	"invest-platform-go/internal/auth"
	"invest-platform-go/internal/collections"
	"invest-platform-go/internal/database"
	"invest-platform-go/internal/github"
	"invest-platform-go/internal/invest"
	"invest-platform-go/internal/ledger"
	"invest-platform-go/internal/models"
	"invest-platform-go/internal/rates"
	"invest-platform-go/internal/store"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}

	// Collection files persist amounts as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Services bundles the long-lived service instances shared by all entry
// points. Cache and limiter state lives here, not in package globals.
type Services struct {
	Store       store.DocumentStore
	Collections *collections.Service
	Rates       *rates.Service
	Ledger      *ledger.Service
	Invest      *invest.Service
	Auth        *auth.Service
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// NewDocumentStore selects the backend from configuration: the GitHub
// contents store when repository credentials are present, SQLite otherwise.
// Missing remote credentials degrade to the local backend instead of
// failing startup.
func NewDocumentStore(ctx context.Context, cfg *models.Config) (store.DocumentStore, error) {
	if cfg.GitHub.Owner != "" && cfg.GitHub.Repo != "" && cfg.GitHub.Token != "" {
		return github.NewService(cfg.GitHub)
	}

	zap.L().Info("GitHub credentials not configured, using local SQLite document store",
		zap.String("path", cfg.Database.Path))
	return database.NewService(ctx, cfg.Database)
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	backend, err := NewDocumentStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	docs := collections.NewService(backend)

	symbols, err := LoadAssetSymbols(cfg.Rates.AssetsFile)
	if err != nil {
		backend.Close()
		return nil, err
	}
	rateService := rates.NewServiceWithSymbols(cfg.Rates, symbols)
	ledgerService := ledger.NewService(docs, rateService)
	investService := invest.NewService(docs, ledgerService, rateService)
	authCfg := cfg.Auth
	if authCfg.JWTSecret == "" {
		// Ephemeral per-process secret: tokens do not survive a restart.
		authCfg.JWTSecret = randomSecret()
		zap.L().Warn("AUTH_JWT_SECRET not set, using an ephemeral signing key")
	}
	authService, err := auth.NewService(authCfg, docs)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &Services{
		Store:       backend,
		Collections: docs,
		Rates:       rateService,
		Ledger:      ledgerService,
		Invest:      investService,
		Auth:        authService,
	}, nil
}

func (cs *Services) Close() {
	if cs.Store != nil {
		cs.Store.Close()
	}
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalf("Failed to generate signing key: %v", err)
	}
	return hex.EncodeToString(buf)
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
