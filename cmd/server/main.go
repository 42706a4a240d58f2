package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	antientropy "github.com/iudanet/deltasync/internal/client/sync"
	"github.com/iudanet/deltasync/internal/config"
	"github.com/iudanet/deltasync/internal/crypto"
	"github.com/iudanet/deltasync/internal/metrics"
	"github.com/iudanet/deltasync/internal/node"
	"github.com/iudanet/deltasync/internal/server"
	"github.com/iudanet/deltasync/internal/server/handlers"
	"github.com/iudanet/deltasync/internal/storage"
	"github.com/iudanet/deltasync/internal/storage/boltdb"
	"github.com/iudanet/deltasync/internal/storage/memory"
	"github.com/iudanet/deltasync/internal/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Parse flags
	showVersion := flag.Bool("version", false, "Show version information")
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	level, _ := cfg.Log.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("node stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	replicaID := cfg.Node.ID
	if replicaID == "" {
		replicaID = uuid.NewString()
		logger.Warn("node.id not configured, using generated id", "replica_id", replicaID)
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("failed to close storage", "error", err)
		}
	}()

	m := metrics.New()
	n, err := node.New(node.Config{
		Store:     store,
		Metrics:   m,
		ReplicaID: replicaID,
		Options:   cfg.ReplicaOptions(logger),
	})
	if err != nil {
		return err
	}

	if _, err := n.Open(ctx, cfg.Collab.Name, cfg.Collab.Type); err != nil {
		return fmt.Errorf("failed to open collaboration %q: %w", cfg.Collab.Name, err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := n.Close(closeCtx); err != nil {
			logger.Error("failed to close node", "error", err)
		}
	}()

	srvCfg := server.Config{
		Listen:  cfg.Node.Listen,
		Version: Version,
		RateLimit: server.RateLimit{
			Enabled:           cfg.RateLimit.Enabled,
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		},
	}

	var credentials antientropy.Credentials
	if cfg.Auth.Secret != "" {
		keys, err := handlers.NewStaticKeys(cfg.Auth.Secret, cfg.Collab.Name)
		if err != nil {
			return err
		}
		jwtSecret, err := tokenSecret(cfg.Auth.JWTSecret)
		if err != nil {
			return err
		}
		srvCfg.Keys = keys
		srvCfg.JWT = handlers.JWTConfig{Secret: jwtSecret, TokenTTL: cfg.Auth.TokenTTL}

		credentials, err = antientropy.SecretCredentials(cfg.Auth.Secret, cfg.Collab.Name)
		if err != nil {
			return err
		}
	}

	syncService, err := antientropy.NewService(antientropy.Config{
		Host:        n,
		Credentials: credentials,
		Recorder:    m,
		Logger:      logger,
		Peers:       cfg.Node.Peers,
		IsPinner:    cfg.Collab.ReplicateOnly,
	})
	if err != nil {
		return err
	}

	srv := server.New(srvCfg, n, m, logger)

	logger.Info("Starting deltasync node",
		"version", Version,
		"replica_id", replicaID,
		"collaboration", cfg.Collab.Name,
		"type", cfg.Collab.Type,
		"listen", cfg.Node.Listen,
		"peers", len(cfg.Node.Peers),
		"auth", cfg.Auth.Secret != "")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		return syncService.Run(gctx, cfg.Node.SyncInterval)
	})
	g.Go(func() error {
		return n.RunFlushLoop(gctx, cfg.DeltaTrimTimeout())
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Node stopped")
	return nil
}

// openStore открывает хранилище снимков согласно storage.driver
func openStore(ctx context.Context, cfg *config.Config) (storage.ReplicaStore, func() error, error) {
	var key []byte
	if cfg.Storage.Secret != "" {
		var err error
		key, err = crypto.DeriveStorageKey(cfg.Storage.Secret)
		if err != nil {
			return nil, nil, err
		}
	}

	switch cfg.Storage.Driver {
	case config.DriverBolt:
		s, err := boltdb.New(ctx, cfg.Storage.Path, key)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open bolt storage: %w", err)
		}
		return s, s.Close, nil
	case config.DriverSQLite:
		s, err := sqlite.New(ctx, cfg.Storage.Path, key)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite storage: %w", err)
		}
		return s, s.Close, nil
	default:
		return memory.New(), func() error { return nil }, nil
	}
}

// tokenSecret возвращает ключ подписи токенов; без настройки генерирует случайный,
// тогда токены действительны только до перезапуска узла
func tokenSecret(configured string) ([]byte, error) {
	if configured != "" {
		return []byte(configured), nil
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate jwt secret: %w", err)
	}
	return secret, nil
}

func printVersion() {
	fmt.Printf("DeltaSync Node\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
