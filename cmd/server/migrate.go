package main

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/soaringjerry/quizly/internal/config"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations for the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), configPath)
		},
	}
}

func runMigrations(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Store.Kind == config.StoreMemory {
		log.Printf("memory store selected, nothing to migrate")
		return nil
	}
	// openStore migrates as part of opening.
	_, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	closeStore()
	log.Printf("migrations applied")
	return nil
}
