package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memento-ai/mementod/internal/config"
	"github.com/memento-ai/mementod/internal/service"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file-id>...",
		Short: "Ingest documents from the source bucket",
		Long:  "Run the ingestion pipeline for the given file IDs of one tenant",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runIngest,
	}

	cmd.Flags().StringP("tenant", "t", "", "Tenant ID (required)")
	cmd.Flags().Bool("force", false, "Purge prior results and reprocess")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
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
	force, _ := cmd.Flags().GetBool("force")

	reqs := make([]service.IngestRequest, len(args))
	for i, fileID := range args {
		reqs[i] = service.IngestRequest{TenantID: tenantID, FileID: fileID, Force: force}
	}

	results, err := app.ingestionSvc.IngestBatch(ctx, reqs)
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		detail := ""
		if res.Detail != "" {
			detail = " (" + res.Detail + ")"
		}
		fmt.Printf("%s: %s%s chunks=%d images=%d\n", res.FileID, res.Status, detail, res.Chunks, res.Images)
		if res.Status == "failed" {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}
