package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/catalogmatch/backend/internal/bootstrap"
	"github.com/catalogmatch/backend/internal/infrastructure/catalog"
	"github.com/catalogmatch/backend/internal/infrastructure/events"
)

var importPublish bool

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import catalog items from a YAML or JSON seed file",
	Long: `Import validates every item in the file and upserts them into the configured
catalog store. With --publish the items are sent as change events instead, so
running servers update their catalog and vector index.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importPublish, "publish", false, "publish upsert events instead of writing to the store")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	items, err := catalog.LoadSeedFile(args[0])
	if err != nil {
		return err
	}

	if importPublish {
		nc, err := connectNATS(cfg)
		if err != nil {
			return err
		}
		defer nc.Close()

		for i := range items {
			change := events.CatalogChange{Type: events.ChangeUpsert, ItemID: items[i].ID, Item: &items[i]}
			if err := events.Publish(ctx, nc, cfg.Events.Subject, change); err != nil {
				return fmt.Errorf("publish %s: %w", items[i].ID, err)
			}
		}
		if err := nc.FlushWithContext(ctx); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "published %d items to %s\n", len(items), cfg.Events.Subject)
		return nil
	}

	// the seed file is the input here, not something to apply on open
	cfg.Catalog.SeedFile = ""
	res, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer res.Close()

	if err := res.Catalog.Upsert(ctx, items); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d items into the %s catalog\n", len(items), cfg.Catalog.Backend)
	return nil
}
