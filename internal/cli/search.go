package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/memento-ai/mementod/internal/config"
)

// SearchCmd returns the search command
func SearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search ingested documents",
		Long:  "Run a tenant-scoped similarity query over ingested chunks",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}

	cmd.Flags().StringP("tenant", "t", "", "Tenant ID (required)")
	cmd.Flags().IntP("limit", "n", 10, "Maximum number of results")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	app, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	tenantID, _ := cmd.Flags().GetString("tenant")
	limit, _ := cmd.Flags().GetInt("limit")

	results, err := app.searchSvc.Search(ctx, tenantID, strings.Join(args, " "), limit)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("no results")
		return nil
	}
	for i, res := range results {
		fmt.Printf("%d. [%.4f] %s#%d\n%s\n\n", i+1, res.Score, res.FileName, res.ChunkIndex, res.Content)
	}
	return nil
}
