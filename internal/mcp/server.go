// Package mcp implements the Model Context Protocol server for atlas-bridge.
// It exposes the registry's perception and action surface as MCP tools so
// an orchestrating agent can enumerate, query, and act on live UI elements.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/sonicframe/atlas-bridge/internal/bridge"
	"github.com/sonicframe/atlas-bridge/internal/perception"
	"github.com/sonicframe/atlas-bridge/internal/registry"
	"github.com/sonicframe/atlas-bridge/pkg/prose"
)

const (
	// defaultRelevantLimit is the default number of results for find_relevant.
	defaultRelevantLimit = 5

	// defaultDescribeBudget is the default token budget for multi-entity
	// description output.
	defaultDescribeBudget = 1500
)

// Server wraps an MCPServer with atlas-bridge dependencies.
type Server struct {
	mcp       *mcpserver.MCPServer
	reg       *registry.Registry
	perceiver *perception.Perceiver
	executor  *bridge.Executor
	logger    *slog.Logger
}

// NewServer creates a new MCP server over the given registry, perceiver,
// and executor.
func NewServer(reg *registry.Registry, perc *perception.Perceiver, exec *bridge.Executor, logger *slog.Logger) *Server {
	s := &Server{
		reg:       reg,
		perceiver: perc,
		executor:  exec,
		logger:    logger,
	}

	mcpSrv := mcpserver.NewMCPServer(
		"atlas-bridge",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(buildPerceiveTool(), s.handlePerceive)
	mcpSrv.AddTool(buildQueryTool(), s.handleQuery)
	mcpSrv.AddTool(buildRelevantTool(), s.handleRelevant)
	mcpSrv.AddTool(buildDescribeTool(), s.handleDescribe)
	mcpSrv.AddTool(buildExecuteTool(), s.handleExecute)
	mcpSrv.AddTool(buildGraphTool(), s.handleGraph)
	mcpSrv.AddTool(buildStatsTool(), s.handleStats)

	s.mcp = mcpSrv
	return s
}

// MCPServer returns the underlying mcp-go MCPServer for use with ServeStdio.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// Exported handlers for direct testing without the mcp-go transport layer.

// HandlePerceive is the exported handler for the "perceive_ui" tool.
func (s *Server) HandlePerceive(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handlePerceive(ctx, req)
}

// HandleQuery is the exported handler for the "query_entities" tool.
func (s *Server) HandleQuery(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleQuery(ctx, req)
}

// HandleRelevant is the exported handler for the "find_relevant" tool.
func (s *Server) HandleRelevant(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleRelevant(ctx, req)
}

// HandleDescribe is the exported handler for the "describe_entity" tool.
func (s *Server) HandleDescribe(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleDescribe(ctx, req)
}

// HandleExecute is the exported handler for the "execute_action" tool.
func (s *Server) HandleExecute(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleExecute(ctx, req)
}

// HandleGraph is the exported handler for the "entity_graph" tool.
func (s *Server) HandleGraph(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleGraph(ctx, req)
}

// HandleStats is the exported handler for the "ui_stats" tool.
func (s *Server) HandleStats(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleStats(ctx, req)
}

// --- helpers ---

// toolResultJSON marshals v to JSON and returns it as a tool text result.
func toolResultJSON(v any) (*mcpgo.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshaling result: %w", err)
	}
	return mcpgo.NewToolResultText(string(b)), nil
}

// --- tool definitions ---

func buildPerceiveTool() mcpgo.Tool {
	return mcpgo.NewTool("perceive_ui",
		mcpgo.WithDescription("Snapshot the live UI: every registered element, all invocable actions, and the current context (location, active elements, hotspots)."),
	)
}

func buildQueryTool() mcpgo.Tool {
	return mcpgo.NewTool("query_entities",
		mcpgo.WithDescription("Find UI elements matching a natural-language query, e.g. 'disabled buttons' or 'the \"Save\" element'."),
		mcpgo.WithString("query",
			mcpgo.Required(),
			mcpgo.Description("The natural-language query"),
		),
	)
}

func buildRelevantTool() mcpgo.Tool {
	return mcpgo.NewTool("find_relevant",
		mcpgo.WithDescription("Rank UI elements by relevance to a task context string."),
		mcpgo.WithString("context",
			mcpgo.Required(),
			mcpgo.Description("The task context to score against"),
		),
		mcpgo.WithNumber("limit",
			mcpgo.Description("Maximum number of results (default: 5)"),
		),
	)
}

func buildDescribeTool() mcpgo.Tool {
	return mcpgo.NewTool("describe_entity",
		mcpgo.WithDescription("Get a human-readable description of one UI element by id."),
		mcpgo.WithString("id",
			mcpgo.Required(),
			mcpgo.Description("The entity id"),
		),
	)
}

func buildExecuteTool() mcpgo.Tool {
	return mcpgo.NewTool("execute_action",
		mcpgo.WithDescription("Invoke a declared capability on a UI element. Failures come back as informative messages, not errors."),
		mcpgo.WithString("entity_id",
			mcpgo.Required(),
			mcpgo.Description("The entity id"),
		),
		mcpgo.WithString("action",
			mcpgo.Required(),
			mcpgo.Description("The capability display name or action identifier"),
		),
		mcpgo.WithObject("parameters",
			mcpgo.Description("Parameters for the capability"),
		),
		mcpgo.WithBoolean("confirmed",
			mcpgo.Description("Set after the user has approved a capability that requires confirmation"),
		),
	)
}

func buildGraphTool() mcpgo.Tool {
	return mcpgo.NewTool("entity_graph",
		mcpgo.WithDescription("Get the entity relationship graph: all elements as nodes plus containment and link edges."),
	)
}

func buildStatsTool() mcpgo.Tool {
	return mcpgo.NewTool("ui_stats",
		mcpgo.WithDescription("Get registry statistics: counts by category and state, average resonance, critical and hotspot counts."),
	)
}

// --- tool handlers ---

// handlePerceive returns the full UI snapshot.
func (s *Server) handlePerceive(_ context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return toolResultJSON(s.perceiver.PerceiveUI())
}

// handleQuery translates the query and returns matching entities.
func (s *Server) handleQuery(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	query := req.GetString("query", "")
	if strings.TrimSpace(query) == "" {
		return mcpgo.NewToolResultError("query is required and must not be empty"), nil
	}

	results := s.perceiver.QueryEntities(ctx, query)
	s.logger.Debug("mcp: query_entities", "query", query, "matches", len(results))

	return toolResultJSON(map[string]any{
		"count":    len(results),
		"entities": results,
	})
}

// handleRelevant scores entities against a context string.
func (s *Server) handleRelevant(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	contextStr := req.GetString("context", "")
	if strings.TrimSpace(contextStr) == "" {
		return mcpgo.NewToolResultError("context is required and must not be empty"), nil
	}
	limit := req.GetInt("limit", defaultRelevantLimit)
	if limit <= 0 {
		limit = defaultRelevantLimit
	}

	scored := s.perceiver.FindRelevantEntities(contextStr, limit)

	// Also render descriptions as prose within a token budget, so the
	// caller can drop the text straight into its context window.
	lines := make([]string, 0, len(scored))
	for i := range scored {
		lines = append(lines, s.perceiver.DescribeEntity(scored[i].Entity.ID))
	}
	text, count := prose.JoinWithBudget(lines, defaultDescribeBudget)

	return toolResultJSON(map[string]any{
		"results":         scored,
		"described":       count,
		"described_prose": text,
	})
}

// handleDescribe returns a prose description of one entity.
func (s *Server) handleDescribe(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	id := req.GetString("id", "")
	if strings.TrimSpace(id) == "" {
		return mcpgo.NewToolResultError("id is required and must not be empty"), nil
	}
	return mcpgo.NewToolResultText(s.perceiver.DescribeEntity(id)), nil
}

// handleExecute invokes a capability through the action bridge.
func (s *Server) handleExecute(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	entityID := req.GetString("entity_id", "")
	action := req.GetString("action", "")
	if strings.TrimSpace(entityID) == "" || strings.TrimSpace(action) == "" {
		return mcpgo.NewToolResultError("entity_id and action are required"), nil
	}

	params := req.GetArguments()
	var callParams map[string]any
	if raw, ok := params["parameters"].(map[string]any); ok {
		callParams = raw
	}
	confirmed := req.GetBool("confirmed", false)

	result := s.executor.ExecuteAction(ctx, entityID, action, callParams, bridge.Options{Confirmed: confirmed})
	return toolResultJSON(result)
}

// handleGraph returns the entity relationship graph.
func (s *Server) handleGraph(_ context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return toolResultJSON(s.reg.EntityGraph())
}

// handleStats returns the perception summary.
func (s *Server) handleStats(_ context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return toolResultJSON(s.reg.PerceptionSummary())
}
