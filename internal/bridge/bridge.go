// Package bridge invokes declared capabilities on registered entities and
// records the interactions back into the registry. Misuse (unknown ids,
// unknown actions, missing parameters) degrades to informative failure
// results, never errors, so a malformed instruction from an orchestrating
// caller cannot crash the session.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sonicframe/atlas-bridge/internal/metrics"
	"github.com/sonicframe/atlas-bridge/internal/models"
	"github.com/sonicframe/atlas-bridge/internal/registry"
)

// DefaultActiveReset is how long an entity stays active after a successful
// action before it is reset to idle.
const DefaultActiveReset = 300 * time.Millisecond

// Result is the outcome of one action invocation, shaped for direct
// presentation to a conversational caller.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Output  any    `json:"output,omitempty"`
}

func failure(format string, args ...any) Result {
	metrics.Inc(metrics.ActionFailures)
	return Result{Success: false, Message: fmt.Sprintf(format, args...)}
}

// Options modifies one invocation.
type Options struct {
	// Confirmed acknowledges a capability's confirmation requirement.
	// The confirmation UX itself lives with the external caller; the
	// bridge only checks the contract.
	Confirmed bool `json:"confirmed,omitempty"`
}

// Executor resolves and invokes entity capabilities.
type Executor struct {
	reg         *registry.Registry
	logger      *slog.Logger
	activeReset time.Duration

	// lastRun tracks the last successful invocation per entity+action for
	// cooldown enforcement. Entries for unregistered entities are dropped
	// via the registry event stream.
	mu          sync.Mutex
	lastRun     map[string]time.Time
	unsubscribe func()
}

// NewExecutor creates an executor over the given registry. activeReset <= 0
// selects DefaultActiveReset. Call Close when done to detach from the
// registry event stream.
func NewExecutor(reg *registry.Registry, activeReset time.Duration, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if activeReset <= 0 {
		activeReset = DefaultActiveReset
	}
	e := &Executor{
		reg:         reg,
		logger:      logger,
		activeReset: activeReset,
		lastRun:     make(map[string]time.Time),
	}
	e.unsubscribe = reg.Subscribe(func(ev models.Event) {
		if ev.Type != models.EventUnregister {
			return
		}
		prefix := ev.EntityID + "\x00"
		e.mu.Lock()
		for key := range e.lastRun {
			if strings.HasPrefix(key, prefix) {
				delete(e.lastRun, key)
			}
		}
		e.mu.Unlock()
	})
	return e
}

// Close detaches the executor from the registry event stream.
func (e *Executor) Close() {
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
}

// ExecuteAction resolves the named capability on the entity, validates its
// parameters, enforces confirmation and cooldown contracts, and invokes the
// bound handler. On success the interaction is recorded and the entity is
// flashed active with a tracked reset back to idle.
func (e *Executor) ExecuteAction(ctx context.Context, entityID, actionName string, params map[string]any, opts Options) Result {
	ent := e.reg.Get(entityID)
	if ent == nil {
		return failure("Entity %q not found.", entityID)
	}

	capability := resolveCapability(ent, actionName)
	if capability == nil {
		available := ent.CapabilityNames()
		if len(available) == 0 {
			return failure("%s has no capabilities.", ent.Name)
		}
		return failure("%s has no action %q. Available actions: %s.",
			ent.Name, actionName, strings.Join(available, ", "))
	}

	for _, name := range capability.RequiredParameters() {
		if _, ok := params[name]; !ok {
			return failure("Missing required parameter %q for %s.", name, capability.Name)
		}
	}

	if capability.RequiresConfirmation && !opts.Confirmed {
		return failure("%s requires confirmation. Re-invoke with confirmed set once the user has approved.", capability.Name)
	}

	key := cooldownKey(entityID, capability.Action)
	if capability.Cooldown > 0 {
		e.mu.Lock()
		last, ran := e.lastRun[key]
		e.mu.Unlock()
		if ran {
			if wait := capability.Cooldown - time.Since(last); wait > 0 {
				return failure("%s is cooling down. Try again in %s.", capability.Name, wait.Round(time.Millisecond))
			}
		}
	}

	if capability.Handler == nil {
		return failure("%s has no handler bound for %q.", ent.Name, capability.Name)
	}

	output, err := e.invoke(ctx, capability.Handler, params)
	if err != nil {
		e.logger.Warn("action handler failed", "entity", entityID, "action", capability.Action, "error", err)
		return failure("Action %s failed: %s", capability.Name, err.Error())
	}

	e.mu.Lock()
	e.lastRun[key] = time.Now()
	e.mu.Unlock()

	e.reg.RecordInteraction(entityID)
	e.reg.FlashActive(entityID, e.activeReset)

	metrics.Inc(metrics.ActionsExecuted)
	e.logger.Info("executed action", "entity", entityID, "action", capability.Action)

	return Result{
		Success: true,
		Message: fmt.Sprintf("Executed %s on %s.", capability.Name, ent.Name),
		Output:  output,
	}
}

// invoke runs the handler, converting a panic into an error so a
// misbehaving handler surfaces as a failure result.
func (e *Executor) invoke(ctx context.Context, handler models.Handler, params map[string]any) (output any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panicked: %v", rec)
		}
	}()
	return handler(ctx, params)
}

// resolveCapability matches actionName case-insensitively against each
// capability's display name and action identifier.
func resolveCapability(ent *models.Entity, actionName string) *models.Capability {
	for i := range ent.Capabilities {
		c := &ent.Capabilities[i]
		if strings.EqualFold(c.Name, actionName) || strings.EqualFold(c.Action, actionName) {
			return c
		}
	}
	return nil
}

func cooldownKey(entityID, action string) string {
	return entityID + "\x00" + action
}
