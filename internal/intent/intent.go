// Package intent translates free-text UI queries into registry filters
// using Claude, for queries the keyword heuristics cannot constrain.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/sonicframe/atlas-bridge/internal/models"
	"github.com/sonicframe/atlas-bridge/internal/registry"
	"github.com/sonicframe/atlas-bridge/pkg/xmlutil"
)

// translateMaxTokens bounds the Claude response for a filter translation.
const translateMaxTokens = 256

// translatePromptTemplate asks Claude for a filter object. User content is
// injected via an XML tag to prevent prompt injection attacks.
const translatePromptTemplate = `You translate natural-language queries about a UI element catalog into a JSON filter object.

The filter fields, all optional:
- category: one of "navigation", "action", "display", "input", "container", "feedback", "visualization"
- state: one of "idle", "active", "disabled", "loading", "error", "hidden"
- importance: one of "critical", "high", "medium", "low"
- name_pattern: a substring of the element name the user is looking for
- min_resonance: a number in [0,1], only when the user asks for "important" or "prominent" elements without naming an importance level

Output ONLY a valid JSON object with the applicable fields, or {} when nothing applies.

<query>%s</query>

Filter JSON:`

// translatedFilter is the raw JSON shape returned by Claude.
type translatedFilter struct {
	Category     string   `json:"category"`
	State        string   `json:"state"`
	Importance   string   `json:"importance"`
	NamePattern  string   `json:"name_pattern"`
	MinResonance *float64 `json:"min_resonance"`
}

// Translator maps queries to registry filters via the Claude API.
// On any API failure it degrades gracefully and reports no translation so
// the caller always gets a usable (if unconstrained) query.
type Translator struct {
	client *anthropic.Client
	model  string
	logger *slog.Logger
}

// NewTranslator creates a Claude-backed query translator.
func NewTranslator(apiKey, model string, logger *slog.Logger) *Translator {
	if logger == nil {
		logger = slog.Default()
	}
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Translator{
		client: &c,
		model:  model,
		logger: logger,
	}
}

// Translate asks Claude for a filter translation of the query.
// A nil result with a nil error means no translation is available.
func (t *Translator) Translate(ctx context.Context, query string) (*registry.Filters, error) {
	prompt := fmt.Sprintf(translatePromptTemplate, xmlutil.Escape(query))

	resp, err := t.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(t.model),
		MaxTokens: translateMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		System: []anthropic.TextBlockParam{
			{Text: "You are a precise query translation system. Output only valid JSON."},
		},
	})
	if err != nil {
		t.logger.Warn("intent: Claude API error, skipping translation", "error", err)
		return nil, nil
	}

	var responseText string
	for i := range resp.Content {
		if resp.Content[i].Type == "text" {
			responseText = strings.TrimSpace(resp.Content[i].Text)
			break
		}
	}
	if responseText == "" {
		t.logger.Warn("intent: empty response from Claude")
		return nil, nil
	}

	var raw translatedFilter
	if jsonErr := json.Unmarshal([]byte(responseText), &raw); jsonErr != nil {
		return nil, fmt.Errorf("intent: parsing response: %w (raw: %s)", jsonErr, responseText)
	}

	return raw.toFilters(t.logger), nil
}

// toFilters validates the raw translation against the model enums and
// drops unknown values.
func (raw *translatedFilter) toFilters(logger *slog.Logger) *registry.Filters {
	var f registry.Filters

	if raw.Category != "" {
		if c := models.Category(raw.Category); c.IsValid() {
			f.Category = &c
		} else {
			logger.Warn("intent: unknown category in translation", "category", raw.Category)
		}
	}
	if raw.State != "" {
		if s := models.State(raw.State); s.IsValid() {
			f.State = &s
		} else {
			logger.Warn("intent: unknown state in translation", "state", raw.State)
		}
	}
	if raw.Importance != "" {
		if imp := models.Importance(raw.Importance); imp.IsValid() {
			f.Importance = &imp
		} else {
			logger.Warn("intent: unknown importance in translation", "importance", raw.Importance)
		}
	}
	if raw.NamePattern != "" {
		// The translation is a literal substring, not a pattern.
		f.NamePattern = regexp.QuoteMeta(raw.NamePattern)
	}
	if raw.MinResonance != nil && *raw.MinResonance >= 0 && *raw.MinResonance <= 1 {
		f.MinResonance = raw.MinResonance
	}

	if f.Empty() {
		return nil
	}
	return &f
}
