package perception

import (
	"context"
	"regexp"
	"strings"

	"github.com/sonicframe/atlas-bridge/internal/models"
	"github.com/sonicframe/atlas-bridge/internal/registry"
)

// Translator converts a free-text query into registry filters when the
// keyword heuristics find nothing. Implementations must degrade gracefully:
// a nil result with a nil error means "no translation available".
type Translator interface {
	Translate(ctx context.Context, query string) (*registry.Filters, error)
}

// keywordCategory maps query keywords to entity categories. Order matters:
// the first matching keyword wins.
type keywordCategory struct {
	keyword  string
	category models.Category
}

var categoryKeywords = []keywordCategory{
	{"button", models.CategoryAction},
	{"nav", models.CategoryNavigation},
	{"menu", models.CategoryNavigation},
	{"link", models.CategoryNavigation},
	{"chart", models.CategoryVisualization},
	{"graph", models.CategoryVisualization},
	{"visualization", models.CategoryVisualization},
	{"form", models.CategoryInput},
	{"field", models.CategoryInput},
	{"input", models.CategoryInput},
	{"text box", models.CategoryInput},
	{"panel", models.CategoryContainer},
	{"card", models.CategoryContainer},
	{"container", models.CategoryContainer},
	{"toast", models.CategoryFeedback},
	{"alert", models.CategoryFeedback},
	{"notification", models.CategoryFeedback},
	{"label", models.CategoryDisplay},
	{"table", models.CategoryDisplay},
	{"list", models.CategoryDisplay},
}

// keywordState maps query keywords to entity states, first match wins.
type keywordState struct {
	keyword string
	state   models.State
}

var stateKeywords = []keywordState{
	{"active", models.StateActive},
	{"disabled", models.StateDisabled},
	{"loading", models.StateLoading},
	{"hidden", models.StateHidden},
	{"error", models.StateError},
	{"broken", models.StateError},
	{"idle", models.StateIdle},
}

// quotedPattern extracts the first double-quoted substring from a query.
var quotedPattern = regexp.MustCompile(`"([^"]+)"`)

// TranslateQuery maps free text to registry filters using the keyword
// dictionaries. The result may be empty (unconstrained) when no keyword
// matches.
func TranslateQuery(query string) registry.Filters {
	lower := strings.ToLower(query)
	var f registry.Filters

	for _, kc := range categoryKeywords {
		if strings.Contains(lower, kc.keyword) {
			category := kc.category
			f.Category = &category
			break
		}
	}

	for _, ks := range stateKeywords {
		if strings.Contains(lower, ks.keyword) {
			state := ks.state
			f.State = &state
			break
		}
	}

	switch {
	case strings.Contains(lower, "critical"):
		importance := models.ImportanceCritical
		f.Importance = &importance
	case strings.Contains(lower, "important"), strings.Contains(lower, "high priority"):
		importance := models.ImportanceHigh
		f.Importance = &importance
	}

	if m := quotedPattern.FindStringSubmatch(query); m != nil {
		f.NamePattern = regexp.QuoteMeta(m[1])
	}

	return f
}

// QueryEntities translates a natural-language query and runs it against
// the registry. A query the dictionaries cannot constrain is optionally
// handed to the translator; when that also yields nothing, the
// unconstrained query returns everything.
func (p *Perceiver) QueryEntities(ctx context.Context, query string) []*models.Entity {
	filters := TranslateQuery(query)

	if filters.Empty() && p.translator != nil {
		translated, err := p.translator.Translate(ctx, query)
		if err != nil {
			p.logger.Warn("query translation failed, falling back to unconstrained query", "error", err)
		} else if translated != nil {
			filters = *translated
		}
	}

	return p.reg.Query(filters)
}
