package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/movie-catalog/internal/config"
	"github.com/Sternrassler/movie-catalog/pkg/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog as a JSON API",
	Long: `Start an HTTP server that proxies the catalog through the cached,
rate limited client and manages favorites.

The server provides:
  - /health                        liveness
  - /ready                         catalog reachability and redis ping
  - /metrics                       Prometheus metrics
  - /api/movies?page=N             top rated page
  - /api/movies/{id}               movie details with favorite flag
  - /api/search?q=QUERY&page=N     search page
  - /api/favorites                 GET list, POST/DELETE /api/favorites/{id}

The log level follows changes to the config file while running.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		d, err := loadDeps(ctx)
		if err != nil {
			return err
		}
		defer d.Close()

		cfg := d.cfg
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}

		if cfgManager.FileUsed() != "" {
			cfgManager.OnChange(func(c *config.Config) {
				logging.Setup(c.LoggerConfig(os.Stderr))
			})
			cfgManager.WatchConfig()
		}

		var ping func(context.Context) error
		if d.redis != nil {
			ping = func(ctx context.Context) error { return d.redis.Ping(ctx).Err() }
		}
		srv := &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      newServer(d.client, d.favorites, d.probe, ping).routes(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("addr", srv.Addr).Msg("Starting catalog server")
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		log.Info().Msg("Shutting down catalog server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr)")

	rootCmd.AddCommand(serveCmd)
}
