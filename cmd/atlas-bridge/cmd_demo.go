package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sonicframe/atlas-bridge/internal/bridge"
	"github.com/sonicframe/atlas-bridge/internal/models"
	"github.com/sonicframe/atlas-bridge/internal/registry"
)

func demoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Seed a sample UI into the registry and print a perception snapshot",
		Long: `Registers a small sample dashboard (navigation, a form, buttons, a chart),
links and exercises a few entities, then prints the perception snapshot,
a relevance ranking, and the entity graph as JSON. Useful for inspecting
what an orchestrating agent would see, without a UI host.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()

			reg, perc, exec, cleanup := newStack(logger)
			defer cleanup()

			seedDemo(cmd.Context(), reg, exec)

			out := map[string]any{
				"snapshot": perc.PerceiveUI(),
				"relevant": perc.FindRelevantEntities("save the report", 3),
				"graph":    reg.EntityGraph(),
				"summary":  reg.PerceptionSummary(),
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	return cmd
}

// seedDemo registers a representative little dashboard and pokes at it.
func seedDemo(ctx context.Context, reg *registry.Registry, exec *bridge.Executor) {
	nav := reg.Register(registry.RegisterConfig{
		Name:          "Reports",
		ComponentPath: "/nav/reports",
		ComponentType: "NavItem",
		Category:      models.CategoryNavigation,
		State:         models.StateActive,
		Importance:    models.ImportanceHigh,
	})

	form := reg.Register(registry.RegisterConfig{
		Name:          "Report Form",
		ComponentPath: "/reports/form",
		ComponentType: "Form",
		Category:      models.CategoryContainer,
	})

	saveBtn := reg.Register(registry.RegisterConfig{
		Name:          "Save Report",
		ComponentPath: "/reports/form/save",
		ComponentType: "Button",
		Category:      models.CategoryAction,
		ParentID:      form.ID,
		Importance:    models.ImportanceCritical,
		Properties:    map[string]any{"primary": true, "onClick": "handleSave"},
		Capabilities: []models.Capability{{
			Name:        "Save",
			Action:      "save",
			Description: "Persist the current report draft",
			Handler: func(context.Context, map[string]any) (any, error) {
				return map[string]any{"saved": true}, nil
			},
		}},
	})

	titleInput := reg.Register(registry.RegisterConfig{
		Name:          "Report Title",
		ComponentPath: "/reports/form/title",
		ComponentType: "TextField",
		Category:      models.CategoryInput,
		ParentID:      form.ID,
		Capabilities: []models.Capability{{
			Name:   "Set Value",
			Action: "setValue",
			Parameters: map[string]models.ParameterSpec{
				"value": {Type: "string", Required: true, Description: "The new title"},
			},
			Handler: func(_ context.Context, params map[string]any) (any, error) {
				return map[string]any{"value": params["value"]}, nil
			},
		}},
	})

	reg.Register(registry.RegisterConfig{
		Name:          "Usage Chart",
		ComponentPath: "/reports/chart",
		ComponentType: "LineChart",
		Category:      models.CategoryVisualization,
	})

	reg.LinkEntities(saveBtn.ID, titleInput.ID)
	reg.LinkEntities(nav.ID, form.ID)

	exec.ExecuteAction(ctx, titleInput.ID, "Set Value", map[string]any{"value": "Q3 Usage"}, bridge.Options{})
	exec.ExecuteAction(ctx, saveBtn.ID, "save", nil, bridge.Options{})
	reg.RecordInteraction(saveBtn.ID)
}
