package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sonicframe/atlas-bridge/internal/api"
	"github.com/sonicframe/atlas-bridge/internal/lifecycle"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP/JSON API server and the stale-reference janitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			reg, perc, exec, cleanup := newStack(logger)
			defer cleanup()

			jan := lifecycle.New(reg, logger)
			srv := api.NewServer(reg, perc, exec, jan, logger, cfg.API.AuthToken)

			if cfg.API.AuthToken == "" {
				logger.Warn("HTTP API: auth is DISABLED; set ATLAS_BRIDGE_API_AUTH_TOKEN or cfg.api.auth_token for production use")
			}

			httpSrv := &http.Server{
				Addr:              cfg.API.ListenAddr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      60 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			group, groupCtx := errgroup.WithContext(cmd.Context())

			group.Go(func() error {
				logger.Info("HTTP API server starting", "addr", cfg.API.ListenAddr)
				if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					return fmt.Errorf("serve: HTTP server: %w", err)
				}
				return nil
			})

			group.Go(func() error {
				err := jan.RunLoop(groupCtx, cfg.Registry.JanitorInterval())
				if err != nil && err != context.Canceled {
					return fmt.Errorf("serve: janitor: %w", err)
				}
				return nil
			})

			group.Go(func() error {
				<-groupCtx.Done()
				logger.Info("shutting down")
				const shutdownTimeout = 10 * time.Second
				if err := api.Shutdown(httpSrv, shutdownTimeout); err != nil {
					return fmt.Errorf("serve: graceful shutdown: %w", err)
				}
				return nil
			})

			return group.Wait()
		},
	}
	return cmd
}
