package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/sonicframe/atlas-bridge/internal/api"
	"github.com/sonicframe/atlas-bridge/internal/lifecycle"
	atlasmcp "github.com/sonicframe/atlas-bridge/internal/mcp"
)

func mcpCmd() *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP (Model Context Protocol) server over stdio",
		Long: `Starts an MCP JSON-RPC 2.0 server that reads from stdin and writes to stdout.
All diagnostic logs go to stderr so that stdout remains exclusively MCP protocol traffic.

Tools exposed:
  perceive_ui     — snapshot all registered elements, actions, and context
  query_entities  — natural-language search over the registry
  find_relevant   — rank elements by relevance to a task context
  describe_entity — prose description of one element
  execute_action  — invoke a declared capability
  entity_graph    — containment and link edges
  ui_stats        — aggregate registry statistics

With --listen set, an HTTP registration API is served concurrently so UI
hosts can announce their elements while the agent talks MCP.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()

			reg, perc, exec, cleanup := newStack(logger)
			defer cleanup()

			srv := atlasmcp.NewServer(reg, perc, exec, logger)

			if listenAddr != "" {
				jan := lifecycle.New(reg, logger)
				httpAPI := api.NewServer(reg, perc, exec, jan, logger, cfg.API.AuthToken)
				httpSrv := &http.Server{
					Addr:              listenAddr,
					Handler:           httpAPI.Handler(),
					ReadHeaderTimeout: 10 * time.Second,
				}
				go func() {
					logger.Info("mcp: registration API starting", "addr", listenAddr)
					if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						logger.Error("mcp: registration API failed", "error", err)
					}
				}()
				defer func() {
					const shutdownTimeout = 5 * time.Second
					if err := api.Shutdown(httpSrv, shutdownTimeout); err != nil {
						logger.Warn("mcp: registration API shutdown", "error", err)
					}
				}()
			}

			// Use a standard log.Logger pointing at stderr for the mcp-go error logger.
			errLogger := log.New(os.Stderr, "mcp: ", log.LstdFlags)

			logger.Info("mcp: atlas-bridge MCP server starting", "transport", "stdio")

			if err := mcpserver.ServeStdio(
				srv.MCPServer(),
				mcpserver.WithErrorLogger(errLogger),
			); err != nil {
				return fmt.Errorf("mcp: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "also serve the HTTP registration API on this address")

	return cmd
}
