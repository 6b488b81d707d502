package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"katalog/cmd/events"
	"katalog/cmd/export"
	"katalog/cmd/migrate"
	"katalog/cmd/seed"
	"katalog/cmd/serve"
)

func newRootCommand() *cobra.Command {
	serveCmd := serve.NewServeCommand()

	root := &cobra.Command{
		Use:   "katalog",
		Short: "Product catalog backend",
		Long: `katalog manages a product catalog: products with prices, stock and
quantity rules, the units they are sold in, and the brands, stores and
categories they belong to.

Running katalog without a subcommand starts the HTTP API.`,
		SilenceUsage: true,
		RunE:         serveCmd.RunE,
	}
	root.Flags().AddFlagSet(serveCmd.Flags())

	root.AddCommand(serveCmd)
	root.AddCommand(migrate.NewMigrateCommand())
	root.AddCommand(seed.NewSeedCommand())
	root.AddCommand(export.NewExportCommand())
	root.AddCommand(events.NewEventsCommand())
	return root
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
