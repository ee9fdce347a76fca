// authcore - multi-tenant identity and access service
//
// It issues RS256 access tokens and rotating HS256 refresh tokens backed by
// persisted records, publishes its verification keys as a JWKS, and exposes
// tenant and user administration over a role-guarded REST API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lanebridge/authcore/migrations"

	"github.com/lanebridge/authcore/internal/api"
	"github.com/lanebridge/authcore/internal/auth"
	"github.com/lanebridge/authcore/internal/infrastructure/config"
	"github.com/lanebridge/authcore/internal/infrastructure/database"
	"github.com/lanebridge/authcore/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting authcore",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Repositories
	userRepo := auth.NewUserRepository(db.DB)
	tenantRepo := auth.NewTenantRepository(db.DB)
	tokenRepo := auth.NewTokenRepository(db.DB)

	// Signing key and token service
	keys := auth.NewKeyProvider(cfg.Security.JWT.PrivateKeyFile)
	if _, keyErr := keys.KeyID(); keyErr != nil {
		return fmt.Errorf("loading signing key: %w", keyErr)
	}
	tokens := auth.NewTokenService(keys, tokenRepo, cfg.Security.JWT)

	// Seed the initial admin account on an empty database
	if _, seedErr := auth.SeedAdmin(ctx, userRepo, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding admin account: %w", seedErr)
	}

	// API server
	server, err := api.New(api.Deps{
		Config:     cfg.API,
		Security:   cfg.Security,
		Logger:     log,
		DB:         db,
		Keys:       keys,
		Tokens:     tokens,
		UserRepo:   userRepo,
		TenantRepo: tenantRepo,
		TokenRepo:  tokenRepo,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("authcore ready",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		"issuer", cfg.Security.JWT.Issuer,
	)

	// Block until shutdown signal
	<-ctx.Done()
	log.Info("shutdown signal received")

	return nil
}

// getConfigPath returns the config file path from args, env, or default.
func getConfigPath() string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	if path := os.Getenv("AUTHCORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
