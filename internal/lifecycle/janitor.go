// Package lifecycle prunes the stale references unregistration leaves
// behind. Removing an entity keeps its id in other entities' child, link,
// and parent fields as tombstones; read paths filter them, and the janitor
// removes them for good on a schedule.
package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/sonicframe/atlas-bridge/internal/metrics"
	"github.com/sonicframe/atlas-bridge/internal/registry"
)

// Report summarizes the results of one janitor run.
type Report struct {
	PrunedChildren int `json:"pruned_children"`
	PrunedLinks    int `json:"pruned_links"`
	ClearedParents int `json:"cleared_parents"`
}

// Total returns the number of references removed.
func (r *Report) Total() int {
	return r.PrunedChildren + r.PrunedLinks + r.ClearedParents
}

// Janitor runs stale-reference pruning over a registry.
type Janitor struct {
	reg    *registry.Registry
	logger *slog.Logger
}

// New creates a janitor for the given registry.
func New(reg *registry.Registry, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{reg: reg, logger: logger}
}

// Run executes one pruning pass. With dryRun set it only reports what a
// real pass would remove.
func (j *Janitor) Run(_ context.Context, dryRun bool) *Report {
	if dryRun {
		return j.preview()
	}

	pruned := j.reg.PruneStaleRefs()
	report := &Report{
		PrunedChildren: pruned.Children,
		PrunedLinks:    pruned.Links,
		ClearedParents: pruned.Parents,
	}

	if report.Total() > 0 {
		metrics.Add(metrics.PrunedRefs, int64(report.Total()))
		j.logger.Info("janitor pruned stale references",
			"children", report.PrunedChildren,
			"links", report.PrunedLinks,
			"parents", report.ClearedParents)
	}
	return report
}

// preview counts stale references without mutating the registry.
func (j *Janitor) preview() *Report {
	live := make(map[string]struct{})
	all := j.reg.GetAll()
	for _, ent := range all {
		live[ent.ID] = struct{}{}
	}

	report := &Report{}
	for _, ent := range all {
		for _, id := range ent.ChildIDs {
			if _, ok := live[id]; !ok {
				report.PrunedChildren++
			}
		}
		for _, id := range ent.LinkedIDs {
			if _, ok := live[id]; !ok {
				report.PrunedLinks++
			}
		}
		if ent.ParentID != "" {
			if _, ok := live[ent.ParentID]; !ok {
				report.ClearedParents++
			}
		}
	}
	return report
}

// RunLoop prunes on the given interval until the context is cancelled.
func (j *Janitor) RunLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			j.Run(ctx, false)
		}
	}
}
