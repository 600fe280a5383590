package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/memento-ai/mementod/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mementod",
		Short: "Memento ingestion daemon and CLI",
		Long:  "Memento daemon for ingesting tenant documents into the vector index and querying them",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.IngestCmd())
	rootCmd.AddCommand(cli.SearchCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
