// Package cli wires configuration, storage and the HTTP server into the
// tareas-api command.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ingenieria/tareas-api/engine/infra/postgres"
	"github.com/ingenieria/tareas-api/engine/infra/server"
	"github.com/ingenieria/tareas-api/engine/reconciler"
	"github.com/ingenieria/tareas-api/pkg/config"
	"github.com/ingenieria/tareas-api/pkg/logger"
)

func NewRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "tareas-api",
		Short:         "API de tareas de cambios de ingeniería",
		Long:          "Ingests planner spreadsheet exports, reconciles them against the tareas table and serves the filtered read API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	// Load .env if present, without failing when missing.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: failed to load .env: %v\n", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.NewLogger(&logger.Config{
		Level:      cfg.Log.Level,
		JSON:       cfg.Log.JSON,
		TimeFormat: "15:04:05",
	})
	ctx = logger.ContextWithLogger(ctx, log)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dsn := cfg.Database.DSN()
	if err := postgres.ApplyMigrations(ctx, dsn); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	store, err := postgres.NewStore(ctx, &postgres.Config{ConnString: dsn})
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	repo := postgres.NewTareaRepo(store.Pool())
	rec := reconciler.New(repo)
	srv := server.New(cfg, log, rec, repo)
	return srv.Run(ctx)
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
