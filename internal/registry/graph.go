package registry

import (
	"sort"

	"github.com/sonicframe/atlas-bridge/internal/models"
)

// parentEdgeStrength is the fixed weight of a parent→child containment edge.
const parentEdgeStrength = 0.8

// Edge is a directed relationship in the entity graph.
type Edge struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Strength float64 `json:"strength"`
}

// Graph is the registry contents as nodes plus a deduplicated edge list.
type Graph struct {
	Nodes []*models.Entity `json:"nodes"`
	Edges []Edge           `json:"edges"`
}

// EntityGraph returns all entities as nodes plus parent→child edges (fixed
// strength) and link edges. Each symmetric link is emitted once, from the
// lexicographically smaller id, with strength equal to the mean of both
// endpoints' connection strengths. Edges referencing unregistered ids are
// filtered out.
func (r *Registry) EntityGraph() Graph {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g := Graph{Nodes: r.allLocked()}

	for _, ent := range r.entities {
		for _, childID := range ent.ChildIDs {
			if _, ok := r.entities[childID]; !ok {
				continue // stale reference left by a later unregistration
			}
			g.Edges = append(g.Edges, Edge{From: ent.ID, To: childID, Strength: parentEdgeStrength})
		}
		for _, peerID := range ent.LinkedIDs {
			peer, ok := r.entities[peerID]
			if !ok {
				continue
			}
			if ent.ID > peerID {
				continue // counted from the smaller id
			}
			strength := (ent.Signature.ConnectionStrength + peer.Signature.ConnectionStrength) / 2
			g.Edges = append(g.Edges, Edge{From: ent.ID, To: peerID, Strength: strength})
		}
	}

	sort.Slice(g.Edges, func(i, j int) bool {
		if g.Edges[i].From != g.Edges[j].From {
			return g.Edges[i].From < g.Edges[j].From
		}
		return g.Edges[i].To < g.Edges[j].To
	})
	return g
}

// PruneReport counts the stale references removed in one janitor pass.
type PruneReport struct {
	Children int `json:"children"`
	Links    int `json:"links"`
	Parents  int `json:"parents"`
}

// PruneStaleRefs removes child ids, link ids, and parent pointers that no
// longer resolve to a registered entity. Unregistration leaves these in
// place as tombstones; this is the cleanup half of that policy.
func (r *Registry) PruneStaleRefs() PruneReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	var report PruneReport
	for _, ent := range r.entities {
		ent.ChildIDs, report.Children = pruneDead(r.entities, ent.ChildIDs, report.Children)

		before := len(ent.LinkedIDs)
		ent.LinkedIDs, report.Links = pruneDead(r.entities, ent.LinkedIDs, report.Links)
		if len(ent.LinkedIDs) != before {
			ent.Signature.ConnectionStrength = min1(float64(len(ent.LinkedIDs)) / connectionDivisor)
		}

		if ent.ParentID != "" {
			if _, ok := r.entities[ent.ParentID]; !ok {
				ent.ParentID = ""
				report.Parents++
			}
		}
	}
	return report
}

// pruneDead filters ids that do not resolve, accumulating the removal count.
func pruneDead(live map[string]*models.Entity, ids []string, count int) ([]string, int) {
	kept := ids[:0]
	for _, id := range ids {
		if _, ok := live[id]; ok {
			kept = append(kept, id)
		} else {
			count++
		}
	}
	return kept, count
}
