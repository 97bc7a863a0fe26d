package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/chartvault/chartvault/internal/config"
	"github.com/chartvault/chartvault/internal/pipeline"
	"github.com/chartvault/chartvault/internal/repository/sqlite"
	"github.com/chartvault/chartvault/internal/schema"
	"github.com/chartvault/chartvault/pkg/logger"
	"github.com/chartvault/chartvault/pkg/metrics"
)

func main() {
	root := &cobra.Command{
		Use:           "chartvault",
		Short:         "Consolidate CCD export archives into a normalized SQLite store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newIngestCmd(), newMigrateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newIngestCmd() *cobra.Command {
	var inputDir, storePath, attachmentDir string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest every archive in the input directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if inputDir != "" {
				cfg.Ingest.InputDir = inputDir
			}
			if storePath != "" {
				cfg.Store.Path = storePath
			}
			if attachmentDir != "" {
				cfg.Ingest.AttachmentDir = attachmentDir
			}

			log := logger.New(&logger.Config{Level: cfg.Log.Level})

			db, err := sqlite.NewDB(cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer db.Close()

			ctx := cmd.Context()
			if err := schema.Migrate(ctx, db, log); err != nil {
				return fmt.Errorf("migrate store: %w", err)
			}

			m := metrics.New("chartvault", prometheus.DefaultRegisterer)
			orchestrator := pipeline.New(db, cfg.Ingest.AttachmentDir, m, log)
			if _, err := orchestrator.Run(ctx, cfg.Ingest.InputDir); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inputDir, "input", "", "directory of source zip archives")
	cmd.Flags().StringVar(&storePath, "store", "", "path to the SQLite store")
	cmd.Flags().StringVar(&attachmentDir, "attachments", "", "directory for retained source documents")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	var storePath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if storePath != "" {
				cfg.Store.Path = storePath
			}

			log := logger.New(&logger.Config{Level: cfg.Log.Level})

			db, err := sqlite.NewDB(cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer db.Close()

			if err := schema.Migrate(cmd.Context(), db, log); err != nil {
				return fmt.Errorf("migrate store: %w", err)
			}
			version, err := schema.Version(cmd.Context(), db)
			if err != nil {
				return err
			}
			log.Info().Int("version", version).Msg("store is up to date")
			return nil
		},
	}

	cmd.Flags().StringVar(&storePath, "store", "", "path to the SQLite store")
	return cmd
}
