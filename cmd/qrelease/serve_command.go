package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/qrelease/api"
	"github.com/warp/qrelease/store/sqlite"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	var checkInterval time.Duration
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API backed by the configured SQLite database.

Use QRELEASE_DB=":memory:" for a throwaway in-memory database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := ctx.ensureLogger(cmd)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			clock, err := ctx.clock()
			if err != nil {
				return err
			}
			if strings.TrimSpace(bind) == "" {
				bind = cfg.Server.Bind
			}

			return ctx.withStore(func(store *sqlite.Store) error {
				handler := api.NewHandler(store, clock, logger)
				handler.Defaults = api.Defaults{
					Width:     cfg.Calendar.Width,
					Alignment: cfg.AlignmentValue(),
					Previous:  cfg.Calendar.Previous,
					Next:      cfg.Calendar.Next,
				}

				watcher := api.NewRolloverWatcher(store, clock, logger)
				watcher.CheckInterval = checkInterval
				watcher.Enabled = !noWatch
				handler.Watcher = watcher
				watcher.Start()
				defer watcher.Stop()

				server := &http.Server{
					Addr:         bind,
					Handler:      api.NewRouter(handler, cfg.Server.AllowedOrigins),
					ReadTimeout:  15 * time.Second,
					WriteTimeout: 15 * time.Second,
					IdleTimeout:  60 * time.Second,
				}

				errCh := make(chan error, 1)
				go func() {
					logger.Info("server starting",
						"bind", bind,
						"database", cfg.Server.DatabasePath,
						"width", cfg.Calendar.Width,
						"alignment", cfg.Calendar.Alignment,
					)
					if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						errCh <- err
					}
					close(errCh)
				}()

				select {
				case err, ok := <-errCh:
					if ok {
						return fmt.Errorf("server failed: %w", err)
					}
					return nil
				case <-signalCtx.Done():
				}

				logger.Info("shutting down server")
				shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancelShutdown()
				if err := server.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("server forced to shutdown: %w", err)
				}
				logger.Info("server stopped")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (default from config, or QRELEASE_BIND)")
	cmd.Flags().DurationVar(&checkInterval, "check-interval", time.Hour, "How often the rollover watcher checks stored calendars")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Disable the rollover watcher")
	return cmd
}
