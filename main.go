package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pabloandrewguevara/healthkit/internal/config"
	"github.com/pabloandrewguevara/healthkit/internal/pipeline"
	"github.com/pabloandrewguevara/healthkit/internal/warehouse"
)

func main() {
	exportPath := flag.String("export", "", "Override EXPORT_PATH for this run")
	dryRun := flag.Bool("dry-run", false, "Transform the export but skip all warehouse writes")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *exportPath != "" {
		cfg.ExportPath = *exportPath
	}

	// Set up logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting healthkit refresh",
		"export", cfg.ExportPath,
		"warehouse", cfg.WarehouseDriver,
		"log_level", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open warehouse", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	p := pipeline.New(cfg, store, pipeline.Options{DryRun: *dryRun})
	result, err := p.Run(ctx)
	if err != nil {
		logger.Error("Refresh failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Refresh succeeded",
		"run_id", result.RunID,
		"rows", len(result.Rows),
		"sessions", len(result.Sessions),
		"duration", result.Duration)
}

func openStore(ctx context.Context, cfg *config.Config) (warehouse.Store, error) {
	if cfg.WarehouseDriver == config.DriverPostgres {
		return warehouse.OpenPostgres(ctx, cfg.DatabaseURL)
	}
	return warehouse.OpenSQLite(cfg.SQLitePath)
}
