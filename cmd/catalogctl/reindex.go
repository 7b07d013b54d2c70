package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/catalogmatch/backend/internal/bootstrap"
	"github.com/catalogmatch/backend/internal/usecase"
)

var reindexAll bool

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Embed catalog items and store their vectors",
	Long: `Reindex embeds every catalog item that has no embedding yet. With --all every
item is re-embedded, which is needed after switching embedding models.`,
	Args: cobra.NoArgs,
	RunE: runReindex,
}

func init() {
	reindexCmd.Flags().BoolVar(&reindexAll, "all", false, "re-embed items that already have an embedding")
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
	defer cancel()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.EmbeddingsEnabled() {
		return fmt.Errorf("no embedding provider configured")
	}

	res, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer res.Close()

	indexer := bootstrap.NewServices(cfg, res, logger).Indexer

	var stats usecase.IndexStats
	if reindexAll {
		stats, err = indexer.Reindex(ctx)
	} else {
		stats, err = indexer.EnsureIndexed(ctx)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d, skipped %d, failed %d\n", stats.Indexed, stats.Skipped, stats.Failed)
	if stats.Failed > 0 {
		return fmt.Errorf("%d items failed to index", stats.Failed)
	}
	return nil
}
