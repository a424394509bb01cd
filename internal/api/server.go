package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sonicframe/atlas-bridge/internal/bridge"
	"github.com/sonicframe/atlas-bridge/internal/lifecycle"
	"github.com/sonicframe/atlas-bridge/internal/models"
	"github.com/sonicframe/atlas-bridge/internal/perception"
	"github.com/sonicframe/atlas-bridge/internal/registry"
)

// defaultRelevantLimit caps GET /v1/relevant results when no limit is given.
const defaultRelevantLimit = 10

// Server is an HTTP API server exposing the entity registry: registration
// for UI hosts on the inbound side, perception and action invocation for
// orchestrating callers on the outbound side.
type Server struct {
	reg       *registry.Registry
	perceiver *perception.Perceiver
	executor  *bridge.Executor
	janitor   *lifecycle.Janitor
	logger    *slog.Logger
	authToken string // empty = no auth required
}

// NewServer creates a new Server with the given dependencies.
func NewServer(reg *registry.Registry, perc *perception.Perceiver, exec *bridge.Executor, jan *lifecycle.Janitor, logger *slog.Logger, authToken string) *Server {
	return &Server{
		reg:       reg,
		perceiver: perc,
		executor:  exec,
		janitor:   jan,
		logger:    logger,
		authToken: authToken,
	}
}

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check — no auth required.
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	// Inbound registration convention for UI hosts.
	mux.HandleFunc("POST /v1/entities", s.auth(s.handleRegister))
	mux.HandleFunc("DELETE /v1/entities/{id}", s.auth(s.handleUnregister))
	mux.HandleFunc("PATCH /v1/entities/{id}/state", s.auth(s.handleUpdateState))
	mux.HandleFunc("POST /v1/entities/{id}/interactions", s.auth(s.handleRecordInteraction))
	mux.HandleFunc("POST /v1/links", s.auth(s.handleLink))

	// Outbound perception and action surface.
	mux.HandleFunc("GET /v1/entities/{id}", s.auth(s.handleGetEntity))
	mux.HandleFunc("GET /v1/entities", s.auth(s.handleListEntities))
	mux.HandleFunc("GET /v1/entities/{id}/description", s.auth(s.handleDescribe))
	mux.HandleFunc("GET /v1/perceive", s.auth(s.handlePerceive))
	mux.HandleFunc("GET /v1/query", s.auth(s.handleQuery))
	mux.HandleFunc("GET /v1/relevant", s.auth(s.handleRelevant))
	mux.HandleFunc("GET /v1/graph", s.auth(s.handleGraph))
	mux.HandleFunc("GET /v1/summary", s.auth(s.handleSummary))
	mux.HandleFunc("POST /v1/actions", s.auth(s.handleExecuteAction))
	mux.HandleFunc("POST /v1/janitor/run", s.auth(s.handleJanitorRun))

	return mux
}

// --- middleware ---

// auth wraps a handler with Bearer token authentication when authToken is set.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" {
			next(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// --- inbound handlers ---

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// capabilityRequest is one declared capability in a registration body.
// The handler is bound to the callback URL: the bridge POSTs the invocation
// parameters there and relays the response body back to the caller.
type capabilityRequest struct {
	Name                 string                          `json:"name"`
	Action               string                          `json:"action"`
	Description          string                          `json:"description"`
	CallbackURL          string                          `json:"callback_url"`
	Parameters           map[string]models.ParameterSpec `json:"parameters"`
	RequiresConfirmation bool                            `json:"requires_confirmation"`
	CooldownMS           int                             `json:"cooldown_ms"`
}

// registerRequest is the body accepted by POST /v1/entities.
type registerRequest struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	ComponentPath string              `json:"component_path"`
	ComponentType string              `json:"component_type"`
	Category      models.Category     `json:"category"`
	State         models.State        `json:"state"`
	ParentID      string              `json:"parent_id"`
	Importance    models.Importance   `json:"importance"`
	Hidden        bool                `json:"hidden"`
	AccessLevel   string              `json:"access_level"`
	Capabilities  []capabilityRequest `json:"capabilities"`
	Properties    map[string]any      `json:"properties"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		s.writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.ComponentPath == "" {
		s.writeError(w, http.StatusBadRequest, "component_path is required")
		return
	}
	if !req.Category.IsValid() {
		s.writeError(w, http.StatusBadRequest, "invalid category")
		return
	}
	if req.State != "" && !req.State.IsValid() {
		s.writeError(w, http.StatusBadRequest, "invalid state")
		return
	}
	if req.Importance != "" && !req.Importance.IsValid() {
		s.writeError(w, http.StatusBadRequest, "invalid importance")
		return
	}

	capabilities := make([]models.Capability, 0, len(req.Capabilities))
	for i := range req.Capabilities {
		c := &req.Capabilities[i]
		if c.Name == "" || c.Action == "" {
			s.writeError(w, http.StatusBadRequest, "capability name and action are required")
			return
		}
		capabilities = append(capabilities, models.Capability{
			Name:                 c.Name,
			Action:               c.Action,
			Description:          c.Description,
			Handler:              webhookHandler(c.CallbackURL, c.Action),
			Parameters:           c.Parameters,
			RequiresConfirmation: c.RequiresConfirmation,
			Cooldown:             time.Duration(c.CooldownMS) * time.Millisecond,
		})
	}

	ent := s.reg.Register(registry.RegisterConfig{
		ID:            req.ID,
		Name:          req.Name,
		ComponentPath: req.ComponentPath,
		ComponentType: req.ComponentType,
		Category:      req.Category,
		State:         req.State,
		ParentID:      req.ParentID,
		Importance:    req.Importance,
		Hidden:        req.Hidden,
		AccessLevel:   req.AccessLevel,
		Capabilities:  capabilities,
		Properties:    req.Properties,
	})

	s.writeJSON(w, http.StatusCreated, ent)
}

func (s *Server) handleUnregister(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.reg.Unregister(id) {
		s.writeError(w, http.StatusNotFound, "entity not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

// stateRequest is the body accepted by PATCH /v1/entities/{id}/state.
type stateRequest struct {
	State models.State `json:"state"`
}

func (s *Server) handleUpdateState(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req stateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.State.IsValid() {
		s.writeError(w, http.StatusBadRequest, "invalid state")
		return
	}
	if !s.reg.UpdateState(r.PathValue("id"), req.State) {
		s.writeError(w, http.StatusNotFound, "entity not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (s *Server) handleRecordInteraction(w http.ResponseWriter, r *http.Request) {
	if !s.reg.RecordInteraction(r.PathValue("id")) {
		s.writeError(w, http.StatusNotFound, "entity not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"recorded": true})
}

// linkRequest is the body accepted by POST /v1/links.
type linkRequest struct {
	ID1 string `json:"id1"`
	ID2 string `json:"id2"`
}

func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !s.reg.LinkEntities(req.ID1, req.ID2) {
		s.writeError(w, http.StatusNotFound, "one or both entities not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"linked": true})
}

// --- outbound handlers ---

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	ent := s.reg.Get(r.PathValue("id"))
	if ent == nil {
		s.writeError(w, http.StatusNotFound, "entity not found")
		return
	}
	s.writeJSON(w, http.StatusOK, ent)
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	if path := r.URL.Query().Get("path"); path != "" {
		ent := s.reg.GetByComponentPath(path)
		if ent == nil {
			s.writeError(w, http.StatusNotFound, "no entity at component path")
			return
		}
		s.writeJSON(w, http.StatusOK, ent)
		return
	}

	if category := r.URL.Query().Get("category"); category != "" {
		c := models.Category(category)
		if !c.IsValid() {
			s.writeError(w, http.StatusBadRequest, "invalid category")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"entities": s.reg.GetByCategory(c)})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"entities": s.reg.GetAll()})
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	desc := s.perceiver.DescribeEntity(r.PathValue("id"))
	s.writeJSON(w, http.StatusOK, map[string]string{"description": desc})
}

func (s *Server) handlePerceive(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.perceiver.PerceiveUI())
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		s.writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	results := s.perceiver.QueryEntities(r.Context(), q)
	s.writeJSON(w, http.StatusOK, map[string]any{"entities": results})
}

func (s *Server) handleRelevant(w http.ResponseWriter, r *http.Request) {
	contextStr := r.URL.Query().Get("context")
	if contextStr == "" {
		s.writeError(w, http.StatusBadRequest, "context is required")
		return
	}
	limit := defaultRelevantLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"results": s.perceiver.FindRelevantEntities(contextStr, limit)})
}

func (s *Server) handleGraph(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.reg.EntityGraph())
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.reg.PerceptionSummary())
}

// actionRequest is the body accepted by POST /v1/actions.
type actionRequest struct {
	EntityID   string         `json:"entity_id"`
	Action     string         `json:"action"`
	Parameters map[string]any `json:"parameters"`
	Confirmed  bool           `json:"confirmed"`
}

func (s *Server) handleExecuteAction(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.EntityID == "" || req.Action == "" {
		s.writeError(w, http.StatusBadRequest, "entity_id and action are required")
		return
	}

	result := s.executor.ExecuteAction(r.Context(), req.EntityID, req.Action, req.Parameters, bridge.Options{Confirmed: req.Confirmed})
	// Failures are part of the contract; the HTTP status stays 200 and the
	// result carries the outcome.
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleJanitorRun(w http.ResponseWriter, r *http.Request) {
	dryRun := r.URL.Query().Get("dry_run") == "true"
	s.writeJSON(w, http.StatusOK, s.janitor.Run(r.Context(), dryRun))
}

// --- helpers ---

// writeJSON encodes v as JSON and writes it to w with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(v); encErr != nil {
		s.logger.Error("failed to encode response", "error", encErr)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// Shutdown gracefully shuts down an http.Server with the given timeout.
// This is a convenience helper used by the serve command.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
