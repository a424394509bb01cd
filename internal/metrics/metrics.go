// Package metrics provides application-level counters using stdlib expvar.
// Counters are automatically exported on the /debug/vars HTTP endpoint
// when net/http/pprof is imported in the main binary.
package metrics

import "expvar"

// Operation counters.
var (
	Registrations   = expvar.NewInt("atlas_registrations_total")
	Unregistrations = expvar.NewInt("atlas_unregistrations_total")
	Interactions    = expvar.NewInt("atlas_interactions_total")
	Links           = expvar.NewInt("atlas_links_total")
	ActionsExecuted = expvar.NewInt("atlas_actions_executed_total")
	ActionFailures  = expvar.NewInt("atlas_action_failures_total")
	PrunedRefs      = expvar.NewInt("atlas_janitor_pruned_refs_total")
)

// Inc increments the given counter by 1.
func Inc(counter *expvar.Int) { counter.Add(1) }

// Add increments the given counter by n.
func Add(counter *expvar.Int, n int64) { counter.Add(n) }
