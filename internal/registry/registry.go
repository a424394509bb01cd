// Package registry owns the authoritative catalog of live UI entities:
// the id map, the category and component-path indices, the listener set,
// and the interaction-derived scores.
package registry

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sonicframe/atlas-bridge/internal/metrics"
	"github.com/sonicframe/atlas-bridge/internal/models"
	"github.com/sonicframe/atlas-bridge/internal/signature"
)

const (
	// interactionWeightDivisor normalizes interaction count to [0,1].
	interactionWeightDivisor = 100
	// affinityDivisor normalizes interaction count to a user affinity score.
	affinityDivisor = 50
	// connectionDivisor normalizes link count to a connection strength.
	connectionDivisor = 10
)

// Listener receives registry events. Panics inside a listener are recovered
// and logged; they never propagate to the mutation caller or block other
// listeners.
type Listener func(models.Event)

// RegisterConfig is the announcement a UI host makes for one element.
type RegisterConfig struct {
	// ID is optional; a UUID is assigned when empty.
	ID            string         `json:"id,omitempty"`
	Name          string         `json:"name"`
	ComponentPath string         `json:"component_path"`
	ComponentType string         `json:"component_type,omitempty"`
	Category      models.Category `json:"category"`
	State         models.State    `json:"state,omitempty"`
	ParentID      string         `json:"parent_id,omitempty"`
	Importance    models.Importance `json:"importance,omitempty"`
	Hidden        bool           `json:"hidden,omitempty"`
	AccessLevel   string         `json:"access_level,omitempty"`
	Capabilities  []models.Capability `json:"capabilities,omitempty"`
	Properties    map[string]any `json:"properties,omitempty"`
}

// Registry is the process-wide mutable catalog for the subsystem. It is
// constructed once at startup and passed by reference to every consumer.
// All operations are safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	entities   map[string]*models.Entity
	byCategory map[models.Category][]string
	byPath     map[string]string

	listeners    map[int]Listener
	listenerSeq  []int
	nextListener int

	// resetTimers tracks pending active→idle resets so they can be
	// cancelled on unregistration or an explicit state change.
	resetTimers map[string]pendingReset
	resetToken  uint64

	signer *signature.Generator
	logger *slog.Logger
}

// pendingReset is one scheduled active→idle reset. Stop only prevents a
// timer that has not fired yet; the token lets a callback that fired before
// cancellation, and is waiting on the lock, detect it is no longer wanted.
type pendingReset struct {
	timer *time.Timer
	token uint64
}

// New creates an empty registry using the given signature generator.
func New(signer *signature.Generator, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		entities:    make(map[string]*models.Entity),
		byCategory:  make(map[models.Category][]string),
		byPath:      make(map[string]string),
		listeners:   make(map[int]Listener),
		resetTimers: make(map[string]pendingReset),
		signer:      signer,
		logger:      logger,
	}
}

// Register creates and stores an entity from the given announcement and
// returns a snapshot of the stored record. A second registration at an
// already-registered component path takes over the path index; the earlier
// entity stays reachable by id until unregistered. Reusing a live id
// replaces that entity outright, index entries included.
func (r *Registry) Register(cfg RegisterConfig) *models.Entity {
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}

	state := cfg.State
	if state == "" {
		state = models.StateIdle
	}
	importance := cfg.Importance
	if importance == "" {
		importance = models.ImportanceMedium
	}

	sig := r.signer.Generate(cfg.ComponentPath, cfg.Category, cfg.Properties)

	ent := &models.Entity{
		ID:                  id,
		Name:                cfg.Name,
		ComponentPath:       cfg.ComponentPath,
		ComponentType:       cfg.ComponentType,
		Category:            cfg.Category,
		State:               state,
		Signature:           sig,
		ParentID:            cfg.ParentID,
		Capabilities:        append([]models.Capability(nil), cfg.Capabilities...),
		RegisteredAt:        time.Now().UTC(),
		Visible:             !cfg.Hidden,
		Importance:          importance,
		ContextualRelevance: sig.SemanticResonance,
		AccessLevel:         cfg.AccessLevel,
		Properties:          copyProperties(cfg.Properties),
	}

	r.mu.Lock()
	// A caller-supplied id may collide with a live entity (a UI host
	// re-announcing after a remount). The new registration replaces the
	// old one, so every index trace of the displaced entry goes first.
	if prev, ok := r.entities[id]; ok {
		r.byCategory[prev.Category] = removeString(r.byCategory[prev.Category], id)
		if r.byPath[prev.ComponentPath] == id {
			delete(r.byPath, prev.ComponentPath)
		}
		if prev.ParentID != "" {
			if parent, ok := r.entities[prev.ParentID]; ok {
				parent.ChildIDs = removeString(parent.ChildIDs, id)
			}
		}
		r.cancelResetLocked(id)
	}
	r.entities[id] = ent
	r.byCategory[ent.Category] = append(r.byCategory[ent.Category], id)
	r.byPath[ent.ComponentPath] = id

	if ent.ParentID != "" {
		if parent, ok := r.entities[ent.ParentID]; ok {
			parent.ChildIDs = append(parent.ChildIDs, id)
		}
	}
	snap := snapshot(ent)
	listeners := r.listenerSnapshot()
	r.mu.Unlock()

	metrics.Inc(metrics.Registrations)
	r.logger.Debug("registered entity", "id", id, "name", ent.Name, "category", ent.Category, "path", ent.ComponentPath)
	r.notify(listeners, models.Event{Type: models.EventRegister, EntityID: id, Time: time.Now().UTC()})

	return snap
}

// Unregister removes the entity and its index entries, prunes the id from
// its parent's child list, and cancels any pending state reset. Children
// and linked entities keep stale references to the removed id; read paths
// filter them and the janitor prunes them.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	ent, ok := r.entities[id]
	if !ok {
		r.mu.Unlock()
		return false
	}

	delete(r.entities, id)
	r.byCategory[ent.Category] = removeString(r.byCategory[ent.Category], id)
	if r.byPath[ent.ComponentPath] == id {
		delete(r.byPath, ent.ComponentPath)
	}
	if ent.ParentID != "" {
		if parent, ok := r.entities[ent.ParentID]; ok {
			parent.ChildIDs = removeString(parent.ChildIDs, id)
		}
	}
	r.cancelResetLocked(id)
	listeners := r.listenerSnapshot()
	r.mu.Unlock()

	metrics.Inc(metrics.Unregistrations)
	r.logger.Debug("unregistered entity", "id", id, "path", ent.ComponentPath)
	r.notify(listeners, models.Event{Type: models.EventUnregister, EntityID: id, Time: time.Now().UTC()})

	return true
}

// Get returns a snapshot of the entity, or nil if the id is unknown.
func (r *Registry) Get(id string) *models.Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if ent, ok := r.entities[id]; ok {
		return snapshot(ent)
	}
	return nil
}

// GetByComponentPath returns the entity most recently registered at the
// given path, or nil.
func (r *Registry) GetByComponentPath(path string) *models.Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.byPath[path]; ok {
		if ent, ok := r.entities[id]; ok {
			return snapshot(ent)
		}
	}
	return nil
}

// GetByCategory returns snapshots of all entities in the category, in
// registration order.
func (r *Registry) GetByCategory(category models.Category) []*models.Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byCategory[category]
	out := make([]*models.Entity, 0, len(ids))
	for _, id := range ids {
		if ent, ok := r.entities[id]; ok {
			out = append(out, snapshot(ent))
		}
	}
	return out
}

// GetAll returns snapshots of every registered entity in registration order.
func (r *Registry) GetAll() []*models.Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.allLocked()
}

// allLocked returns snapshots ordered by registration time then id.
// Callers must hold at least the read lock.
func (r *Registry) allLocked() []*models.Entity {
	out := make([]*models.Entity, 0, len(r.entities))
	for _, ent := range r.entities {
		out = append(out, snapshot(ent))
	}
	sortEntities(out)
	return out
}

// Len returns the number of registered entities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// UpdateState sets the entity's state and cancels any pending reset timer.
// Returns false if the id is unknown.
func (r *Registry) UpdateState(id string, state models.State) bool {
	r.mu.Lock()
	ent, ok := r.entities[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	r.cancelResetLocked(id)
	ent.State = state
	listeners := r.listenerSnapshot()
	r.mu.Unlock()

	r.notify(listeners, models.Event{Type: models.EventStateChange, EntityID: id, State: state, Time: time.Now().UTC()})
	return true
}

// FlashActive marks the entity active and schedules a tracked reset back to
// idle after resetAfter. A later UpdateState or Unregister cancels the
// pending reset, so a removed or repurposed id is never resurrected.
func (r *Registry) FlashActive(id string, resetAfter time.Duration) bool {
	if !r.UpdateState(id, models.StateActive) {
		return false
	}
	if resetAfter <= 0 {
		return true
	}

	r.mu.Lock()
	if _, ok := r.entities[id]; !ok {
		r.mu.Unlock()
		return false
	}
	r.resetToken++
	token := r.resetToken
	r.resetTimers[id] = pendingReset{
		timer: time.AfterFunc(resetAfter, func() { r.resetToIdle(id, token) }),
		token: token,
	}
	r.mu.Unlock()
	return true
}

// resetToIdle is the deferred half of FlashActive. The reset applies only
// while its token is still the pending one for the id: a callback that
// fired before cancellation but after a state change or unregistration
// finds its token gone and backs off.
func (r *Registry) resetToIdle(id string, token uint64) {
	r.mu.Lock()
	pending, ok := r.resetTimers[id]
	if !ok || pending.token != token {
		r.mu.Unlock()
		return
	}
	delete(r.resetTimers, id)
	ent, ok := r.entities[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	ent.State = models.StateIdle
	listeners := r.listenerSnapshot()
	r.mu.Unlock()

	r.notify(listeners, models.Event{Type: models.EventStateChange, EntityID: id, State: models.StateIdle, Time: time.Now().UTC()})
}

// cancelResetLocked discards any pending reset for the id. Callers must
// hold the write lock.
func (r *Registry) cancelResetLocked(id string) {
	if pending, ok := r.resetTimers[id]; ok {
		pending.timer.Stop()
		delete(r.resetTimers, id)
	}
}

// RecordInteraction increments the interaction count, stamps the
// interaction time, and recomputes the interaction-derived scores.
// Returns false if the id is unknown.
func (r *Registry) RecordInteraction(id string) bool {
	r.mu.Lock()
	ent, ok := r.entities[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	ent.InteractionCount++
	ent.LastInteraction = time.Now().UTC()
	ent.Signature.InteractionWeight = min1(float64(ent.InteractionCount) / interactionWeightDivisor)
	ent.UserAffinity = min1(float64(ent.InteractionCount) / affinityDivisor)
	listeners := r.listenerSnapshot()
	r.mu.Unlock()

	metrics.Inc(metrics.Interactions)
	r.notify(listeners, models.Event{Type: models.EventInteraction, EntityID: id, Time: time.Now().UTC()})
	return true
}

// LinkEntities adds a symmetric link between the two entities. Linking the
// same pair twice is a no-op for the link lists but still recomputes
// connection strengths. Returns false if either id is unknown or the ids
// are equal.
func (r *Registry) LinkEntities(id1, id2 string) bool {
	if id1 == id2 {
		return false
	}

	r.mu.Lock()
	a, ok1 := r.entities[id1]
	b, ok2 := r.entities[id2]
	if !ok1 || !ok2 {
		r.mu.Unlock()
		return false
	}
	a.LinkedIDs = appendUnique(a.LinkedIDs, id2)
	b.LinkedIDs = appendUnique(b.LinkedIDs, id1)
	a.Signature.ConnectionStrength = min1(float64(len(a.LinkedIDs)) / connectionDivisor)
	b.Signature.ConnectionStrength = min1(float64(len(b.LinkedIDs)) / connectionDivisor)
	listeners := r.listenerSnapshot()
	r.mu.Unlock()

	metrics.Inc(metrics.Links)
	r.notify(listeners, models.Event{Type: models.EventLink, EntityID: id1, PeerID: id2, Time: time.Now().UTC()})
	return true
}

// Subscribe registers a listener for all subsequent events and returns an
// unsubscribe function. Listeners are invoked in subscription order.
func (r *Registry) Subscribe(listener Listener) func() {
	r.mu.Lock()
	id := r.nextListener
	r.nextListener++
	r.listeners[id] = listener
	r.listenerSeq = append(r.listenerSeq, id)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		for i, seq := range r.listenerSeq {
			if seq == id {
				r.listenerSeq = append(r.listenerSeq[:i], r.listenerSeq[i+1:]...)
				break
			}
		}
		r.mu.Unlock()
	}
}

// listenerSnapshot copies the current listener set in subscription order.
// Callers must hold the lock.
func (r *Registry) listenerSnapshot() []Listener {
	out := make([]Listener, 0, len(r.listenerSeq))
	for _, id := range r.listenerSeq {
		if fn, ok := r.listeners[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

// notify delivers the event to each listener, recovering panics so one
// misbehaving subscriber cannot block the rest.
func (r *Registry) notify(listeners []Listener, ev models.Event) {
	for _, fn := range listeners {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Warn("registry listener panicked", "event", ev.Type, "entity", ev.EntityID, "panic", rec)
				}
			}()
			fn(ev)
		}()
	}
}

// --- helpers ---

func snapshot(ent *models.Entity) *models.Entity {
	cp := *ent
	cp.ChildIDs = append([]string(nil), ent.ChildIDs...)
	cp.LinkedIDs = append([]string(nil), ent.LinkedIDs...)
	cp.Capabilities = append([]models.Capability(nil), ent.Capabilities...)
	cp.Properties = copyProperties(ent.Properties)
	return &cp
}

func copyProperties(props map[string]any) map[string]any {
	if len(props) == 0 {
		return nil
	}
	cp := make(map[string]any, len(props))
	for k, v := range props {
		cp[k] = v
	}
	return cp
}

func sortEntities(ents []*models.Entity) {
	// Registration order, with id as a stable tiebreaker for entities
	// registered within the same clock tick.
	sort.Slice(ents, func(i, j int) bool {
		if !ents[i].RegisteredAt.Equal(ents[j].RegisteredAt) {
			return ents[i].RegisteredAt.Before(ents[j].RegisteredAt)
		}
		return ents[i].ID < ents[j].ID
	})
}

func removeString(s []string, v string) []string {
	for i := range s {
		if s[i] == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

func appendUnique(s []string, v string) []string {
	for i := range s {
		if s[i] == v {
			return s
		}
	}
	return append(s, v)
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
