package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/snapflowhq/snapflow/internal/config"
	"github.com/snapflowhq/snapflow/internal/database"
	"github.com/snapflowhq/snapflow/internal/migrations"
	"github.com/snapflowhq/snapflow/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- Admin SQLite ---
	if err := os.MkdirAll(filepath.Dir(cfg.AdminDBPath), 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating project data dir: %w", err)
	}

	adminDB, err := database.Open(ctx, cfg.AdminDBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer adminDB.Close()

	if err := migrations.Admin(ctx, adminDB); err != nil {
		return fmt.Errorf("running admin migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.AdminDBPath)

	admin, err := server.NewAdminSQLiteStore(ctx, adminDB)
	if err != nil {
		return fmt.Errorf("initializing admin store: %w", err)
	}

	projects := server.NewRegistry(cfg.DataDir)
	defer projects.Close()

	// --- Redis (optional; enables cross-instance session fan-out) ---
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis")
	}
	broker := server.NewBroker(rdb)

	if err := server.SeedDemo(ctx, logger, admin, projects); err != nil {
		return fmt.Errorf("seeding demo project: %w", err)
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, admin, projects, adminDB, broker, cfg.SPADir)

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return broker.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
