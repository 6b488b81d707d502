package serve

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"katalog/internal/app"
)

const configFlag = "config"

var serveFlags = map[string]cobraflags.Flag{
	configFlag: &cobraflags.StringFlag{
		Name:  configFlag,
		Value: "",
		Usage: "Path to a YAML config file (optional, environment variables always apply)",
	},
}

const shutdownTimeout = 10 * time.Second

func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the catalog HTTP API",
		Long: `Run the catalog HTTP API.

Admin endpoints are mounted under /admin/v1, the storefront product listing
under /products and Prometheus metrics under /metrics. Catalog events are
published to RabbitMQ when RABBITMQ_URL is set. Run "katalog migrate" first on
a fresh database.`,
		RunE: serveCommand,
	}
	cobraflags.RegisterMap(cmd, serveFlags)
	return cmd
}

func serveCommand(cmd *cobra.Command, _ []string) error {
	rt, err := app.Open(serveFlags[configFlag].GetString())
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			rt.Log.Error("failed to close connections", "error", err)
		}
	}()

	if err := rt.ConnectBroker(); err != nil {
		return err
	}
	if rt.MQ == nil {
		rt.Log.Warn("RABBITMQ_URL is not set, catalog events will not be published")
	}

	srv := rt.HTTP(rt.Services())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		rt.Log.Info("starting server", "addr", rt.Config.HTTP.Addr)
		errCh <- srv.Listen(rt.Config.HTTP.Addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	rt.Log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("error during shutdown: %w", err)
	}
	rt.Log.Info("server stopped")
	return nil
}
