package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"pagebot-core-console/internal/infrastructure/api"

	"github.com/spf13/cobra"
)

var portFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web console",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := loadConfig()
		if portFlag != "" {
			cfg.Port = portFlag
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a := newApp(ctx, cfg, logger)
		defer a.close()

		opts := api.Options{Events: a.events}
		if cfg.OAuthEnabled() {
			opts.OAuth = a.provider
		} else {
			logger.Info().Msg("FACEBOOK_APP_ID or FACEBOOK_APP_SECRET not set, OAuth login disabled")
		}
		console := api.NewConsole(a.engine, opts, component(logger, "console"))

		srv := &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           console.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info().Str("port", cfg.Port).Msg("Starting console server")
			logger.Info().Msg("Swagger documentation available at http://localhost:" + cfg.Port + "/swagger/index.html")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutdown signal received")
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("failed to start server: %w", err)
			}
		}

		// open event streams end with the bus, otherwise Shutdown waits on them
		a.events.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		logger.Info().Msg("Console server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&portFlag, "port", "", "Listen port (default $PORT)")
}
