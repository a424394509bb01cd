package bridge_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonicframe/atlas-bridge/internal/bridge"
	"github.com/sonicframe/atlas-bridge/internal/models"
	"github.com/sonicframe/atlas-bridge/internal/registry"
	"github.com/sonicframe/atlas-bridge/internal/signature"
)

func newTestExecutor(t *testing.T) (*registry.Registry, *bridge.Executor) {
	t.Helper()
	reg := registry.New(signature.NewGenerator(1), nil)
	exec := bridge.NewExecutor(reg, 20*time.Millisecond, nil)
	t.Cleanup(exec.Close)
	return reg, exec
}

func registerSaveButton(reg *registry.Registry, caps ...models.Capability) *models.Entity {
	return reg.Register(registry.RegisterConfig{
		Name:          "Save Report",
		ComponentPath: "/save",
		Category:      models.CategoryAction,
		Capabilities:  caps,
	})
}

func clickCapability(handler models.Handler) models.Capability {
	return models.Capability{
		Name:    "Save",
		Action:  "save",
		Handler: handler,
	}
}

func TestExecuteAction_Success(t *testing.T) {
	reg, exec := newTestExecutor(t)

	var gotParams map[string]any
	ent := registerSaveButton(reg, clickCapability(func(ctx context.Context, params map[string]any) (any, error) {
		gotParams = params
		return map[string]any{"saved": true}, nil
	}))

	res := exec.ExecuteAction(context.Background(), ent.ID, "save", map[string]any{"draft": false}, bridge.Options{})

	assert.True(t, res.Success)
	assert.Equal(t, "Executed Save on Save Report.", res.Message)
	assert.Equal(t, map[string]any{"saved": true}, res.Output)
	assert.Equal(t, false, gotParams["draft"])

	got := reg.Get(ent.ID)
	assert.Equal(t, int64(1), got.InteractionCount)
	assert.Equal(t, models.StateActive, got.State)

	// The flash resets back to idle on its own.
	assert.Eventually(t, func() bool {
		return reg.Get(ent.ID).State == models.StateIdle
	}, time.Second, 5*time.Millisecond)
}

func TestExecuteAction_MatchesCapabilityNameCaseInsensitively(t *testing.T) {
	reg, exec := newTestExecutor(t)
	ent := registerSaveButton(reg, clickCapability(func(context.Context, map[string]any) (any, error) {
		return nil, nil
	}))

	assert.True(t, exec.ExecuteAction(context.Background(), ent.ID, "SAVE", nil, bridge.Options{}).Success)
	assert.True(t, exec.ExecuteAction(context.Background(), ent.ID, "Save", nil, bridge.Options{}).Success)
}

func TestExecuteAction_UnknownEntity(t *testing.T) {
	_, exec := newTestExecutor(t)

	res := exec.ExecuteAction(context.Background(), "ghost", "save", nil, bridge.Options{})
	assert.False(t, res.Success)
	assert.Equal(t, `Entity "ghost" not found.`, res.Message)
}

func TestExecuteAction_UnknownActionEnumeratesCapabilities(t *testing.T) {
	reg, exec := newTestExecutor(t)
	ent := registerSaveButton(reg,
		models.Capability{Name: "Save", Action: "save"},
		models.Capability{Name: "Discard", Action: "discard"},
	)

	res := exec.ExecuteAction(context.Background(), ent.ID, "teleport", nil, bridge.Options{})
	assert.False(t, res.Success)
	assert.Equal(t, `Save Report has no action "teleport". Available actions: Save, Discard.`, res.Message)
}

func TestExecuteAction_NoCapabilities(t *testing.T) {
	reg, exec := newTestExecutor(t)
	ent := registerSaveButton(reg)

	res := exec.ExecuteAction(context.Background(), ent.ID, "save", nil, bridge.Options{})
	assert.False(t, res.Success)
	assert.Equal(t, "Save Report has no capabilities.", res.Message)
}

func TestExecuteAction_MissingRequiredParameter(t *testing.T) {
	reg, exec := newTestExecutor(t)
	ent := reg.Register(registry.RegisterConfig{
		Name:          "Report Title",
		ComponentPath: "/title",
		Category:      models.CategoryInput,
		Capabilities: []models.Capability{{
			Name:   "Set Value",
			Action: "set_value",
			Parameters: map[string]models.ParameterSpec{
				"value": {Type: "string", Required: true},
			},
			Handler: func(context.Context, map[string]any) (any, error) { return nil, nil },
		}},
	})

	res := exec.ExecuteAction(context.Background(), ent.ID, "set_value", nil, bridge.Options{})
	assert.False(t, res.Success)
	assert.Equal(t, `Missing required parameter "value" for Set Value.`, res.Message)

	res = exec.ExecuteAction(context.Background(), ent.ID, "set_value", map[string]any{"value": "Q3"}, bridge.Options{})
	assert.True(t, res.Success)
}

func TestExecuteAction_ConfirmationGate(t *testing.T) {
	reg, exec := newTestExecutor(t)
	ent := registerSaveButton(reg, models.Capability{
		Name:                 "Delete",
		Action:               "delete",
		RequiresConfirmation: true,
		Handler:              func(context.Context, map[string]any) (any, error) { return nil, nil },
	})

	res := exec.ExecuteAction(context.Background(), ent.ID, "delete", nil, bridge.Options{})
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "requires confirmation")
	assert.Equal(t, int64(0), reg.Get(ent.ID).InteractionCount, "refused action records nothing")

	res = exec.ExecuteAction(context.Background(), ent.ID, "delete", nil, bridge.Options{Confirmed: true})
	assert.True(t, res.Success)
}

func TestExecuteAction_Cooldown(t *testing.T) {
	reg, exec := newTestExecutor(t)
	ent := registerSaveButton(reg, models.Capability{
		Name:     "Save",
		Action:   "save",
		Cooldown: 50 * time.Millisecond,
		Handler:  func(context.Context, map[string]any) (any, error) { return nil, nil },
	})

	require.True(t, exec.ExecuteAction(context.Background(), ent.ID, "save", nil, bridge.Options{}).Success)

	res := exec.ExecuteAction(context.Background(), ent.ID, "save", nil, bridge.Options{})
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "cooling down")

	time.Sleep(60 * time.Millisecond)
	assert.True(t, exec.ExecuteAction(context.Background(), ent.ID, "save", nil, bridge.Options{}).Success)
}

func TestExecuteAction_CooldownClearedOnReregistration(t *testing.T) {
	reg, exec := newTestExecutor(t)
	capability := models.Capability{
		Name:     "Save",
		Action:   "save",
		Cooldown: time.Hour,
		Handler:  func(context.Context, map[string]any) (any, error) { return nil, nil },
	}
	ent := reg.Register(registry.RegisterConfig{
		ID:            "save-btn",
		Name:          "Save Report",
		ComponentPath: "/save",
		Category:      models.CategoryAction,
		Capabilities:  []models.Capability{capability},
	})

	require.True(t, exec.ExecuteAction(context.Background(), ent.ID, "save", nil, bridge.Options{}).Success)
	require.False(t, exec.ExecuteAction(context.Background(), ent.ID, "save", nil, bridge.Options{}).Success)

	// Unregistering drops the cooldown bookkeeping, so a fresh registration
	// under the same id starts clean.
	require.True(t, reg.Unregister(ent.ID))
	reg.Register(registry.RegisterConfig{
		ID:            "save-btn",
		Name:          "Save Report",
		ComponentPath: "/save",
		Category:      models.CategoryAction,
		Capabilities:  []models.Capability{capability},
	})
	assert.True(t, exec.ExecuteAction(context.Background(), "save-btn", "save", nil, bridge.Options{}).Success)
}

func TestExecuteAction_HandlerError(t *testing.T) {
	reg, exec := newTestExecutor(t)
	ent := registerSaveButton(reg, clickCapability(func(context.Context, map[string]any) (any, error) {
		return nil, errors.New("disk full")
	}))

	res := exec.ExecuteAction(context.Background(), ent.ID, "save", nil, bridge.Options{})
	assert.False(t, res.Success)
	assert.Equal(t, "Action Save failed: disk full", res.Message)
	assert.Equal(t, int64(0), reg.Get(ent.ID).InteractionCount, "failed action records nothing")
}

func TestExecuteAction_HandlerPanicBecomesFailure(t *testing.T) {
	reg, exec := newTestExecutor(t)
	ent := registerSaveButton(reg, clickCapability(func(context.Context, map[string]any) (any, error) {
		panic("boom")
	}))

	res := exec.ExecuteAction(context.Background(), ent.ID, "save", nil, bridge.Options{})
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "handler panicked: boom")
}

func TestExecuteAction_NilHandler(t *testing.T) {
	reg, exec := newTestExecutor(t)
	ent := registerSaveButton(reg, models.Capability{Name: "Save", Action: "save"})

	res := exec.ExecuteAction(context.Background(), ent.ID, "save", nil, bridge.Options{})
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "no handler bound")
}
