package perception

import (
	"sort"
	"strings"

	"github.com/sonicframe/atlas-bridge/internal/models"
)

// Weights controls the relative importance of each relevance factor.
type Weights struct {
	NameMatch       float64 `json:"name_match" mapstructure:"name_match"`
	CategoryMention float64 `json:"category_mention" mapstructure:"category_mention"`
	CapabilityMatch float64 `json:"capability_match" mapstructure:"capability_match"`
	CriticalBonus   float64 `json:"critical_bonus" mapstructure:"critical_bonus"`
	HighBonus       float64 `json:"high_bonus" mapstructure:"high_bonus"`
	Interaction     float64 `json:"interaction" mapstructure:"interaction"`
}

// DefaultWeights returns the standard relevance weights.
func DefaultWeights() Weights {
	return Weights{
		NameMatch:       0.5,
		CategoryMention: 0.3,
		CapabilityMatch: 0.2,
		CriticalBonus:   0.3,
		HighBonus:       0.2,
		Interaction:     0.2,
	}
}

// ScoredEntity pairs an entity snapshot with its relevance score.
type ScoredEntity struct {
	Entity *models.Entity `json:"entity"`
	Score  float64        `json:"score"`
}

// FindRelevantEntities scores every entity against the context string and
// returns the top-limit by descending score. Ties keep registration order.
func (p *Perceiver) FindRelevantEntities(contextStr string, limit int) []ScoredEntity {
	all := p.reg.GetAll()
	lower := strings.ToLower(contextStr)

	scored := make([]ScoredEntity, 0, len(all))
	for _, ent := range all {
		scored = append(scored, ScoredEntity{
			Entity: ent,
			Score:  p.score(ent, lower),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// score computes one entity's relevance to the lowercased context string.
func (p *Perceiver) score(ent *models.Entity, lowerContext string) float64 {
	score := ent.Signature.SemanticResonance

	if lowerContext != "" {
		if strings.Contains(strings.ToLower(ent.Name), lowerContext) {
			score += p.weights.NameMatch
		}
		if strings.Contains(lowerContext, string(ent.Category)) {
			score += p.weights.CategoryMention
		}
		for i := range ent.Capabilities {
			if desc := strings.ToLower(ent.Capabilities[i].Description); desc != "" && strings.Contains(desc, lowerContext) {
				score += p.weights.CapabilityMatch
			}
		}
	}

	switch ent.Importance {
	case models.ImportanceCritical:
		score += p.weights.CriticalBonus
	case models.ImportanceHigh:
		score += p.weights.HighBonus
	}

	score += p.weights.Interaction * ent.Signature.InteractionWeight
	return score
}
