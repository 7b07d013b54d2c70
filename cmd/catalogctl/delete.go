package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/catalogmatch/backend/internal/infrastructure/events"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Publish delete events for catalog items",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	nc, err := connectNATS(cfg)
	if err != nil {
		return err
	}
	defer nc.Close()

	for _, id := range args {
		if err := events.Publish(ctx, nc, cfg.Events.Subject, events.CatalogChange{Type: events.ChangeDelete, ItemID: id}); err != nil {
			return fmt.Errorf("publish %s: %w", id, err)
		}
	}
	if err := nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "published %d deletes\n", len(args))
	return nil
}
