package registry

import (
	"regexp"
	"strings"

	"github.com/sonicframe/atlas-bridge/internal/models"
)

// Filters narrows a registry query. Nil/empty fields are unconstrained;
// supplied fields are combined as a conjunction.
type Filters struct {
	Category     *models.Category   `json:"category,omitempty"`
	State        *models.State      `json:"state,omitempty"`
	Importance   *models.Importance `json:"importance,omitempty"`
	MinResonance *float64           `json:"min_resonance,omitempty"`
	// NamePattern is a case-insensitive regular expression matched against
	// the entity name. An invalid pattern degrades to a case-insensitive
	// substring match rather than failing the query.
	NamePattern string `json:"name_pattern,omitempty"`
}

// Empty reports whether no filter dimension is set.
func (f *Filters) Empty() bool {
	return f == nil ||
		(f.Category == nil && f.State == nil && f.Importance == nil &&
			f.MinResonance == nil && f.NamePattern == "")
}

// nameMatcher returns a predicate for the name pattern.
func (f *Filters) nameMatcher() func(string) bool {
	if f.NamePattern == "" {
		return nil
	}
	re, err := regexp.Compile("(?i)" + f.NamePattern)
	if err != nil {
		needle := strings.ToLower(f.NamePattern)
		return func(name string) bool {
			return strings.Contains(strings.ToLower(name), needle)
		}
	}
	return re.MatchString
}

// Query returns snapshots of all entities matching the conjunction of the
// supplied filters, in registration order. It never fails; no matches
// yields an empty slice.
func (r *Registry) Query(f Filters) []*models.Entity {
	var matchName func(string) bool
	if !f.Empty() {
		matchName = f.nameMatcher()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Entity
	for _, ent := range r.entities {
		if f.Category != nil && ent.Category != *f.Category {
			continue
		}
		if f.State != nil && ent.State != *f.State {
			continue
		}
		if f.Importance != nil && ent.Importance != *f.Importance {
			continue
		}
		if f.MinResonance != nil && ent.Signature.SemanticResonance < *f.MinResonance {
			continue
		}
		if matchName != nil && !matchName(ent.Name) {
			continue
		}
		out = append(out, snapshot(ent))
	}
	sortEntities(out)
	return out
}

// Summary aggregates the registry contents for perception reporting.
type Summary struct {
	Total         int                     `json:"total"`
	ByCategory    map[models.Category]int `json:"by_category"`
	ByState       map[models.State]int    `json:"by_state"`
	AvgResonance  float64                 `json:"avg_resonance"`
	CriticalCount int                     `json:"critical_count"`
	// HotspotCount is the number of entities whose interaction weight
	// exceeds the hotspot threshold of 0.5.
	HotspotCount int `json:"hotspot_count"`
}

// hotspotThreshold is the interaction weight above which an entity counts
// as a hotspot.
const hotspotThreshold = 0.5

// PerceptionSummary computes aggregate counts and scores over all entities.
func (r *Registry) PerceptionSummary() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Summary{
		Total:      len(r.entities),
		ByCategory: make(map[models.Category]int),
		ByState:    make(map[models.State]int),
	}

	var resonanceSum float64
	for _, ent := range r.entities {
		s.ByCategory[ent.Category]++
		s.ByState[ent.State]++
		resonanceSum += ent.Signature.SemanticResonance
		if ent.Importance == models.ImportanceCritical {
			s.CriticalCount++
		}
		if ent.Signature.InteractionWeight > hotspotThreshold {
			s.HotspotCount++
		}
	}
	if s.Total > 0 {
		s.AvgResonance = resonanceSum / float64(s.Total)
	}
	return s
}
