package statemachine

import (
	"context"
	"testing"

	"github.com/eclipse-pullpiri/pullpiri/pkg/kv"
	"github.com/eclipse-pullpiri/pullpiri/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func newTestEngine(t *testing.T) (*Engine, kv.Store) {
	t.Helper()
	store := kv.NewMemStore()
	return NewEngine(store, Options{}), store
}

func TestProcessStateChangeCommitsValidTransition(t *testing.T) {
	engine, _ := newTestEngine(t)

	result := engine.ProcessStateChange(context.Background(), types.StateChange{
		ResourceType: types.KindScenario,
		ResourceName: "demo",
		CurrentState: ScenarioIdle,
		TargetState:  ScenarioWaiting,
		TransitionID: "t-1",
	})

	require.True(t, result.Success)
	assert.Equal(t, ScenarioWaiting, result.CurrentState)
	assert.Equal(t, types.ErrSuccess, result.ErrorCode)

	state, ok := engine.Get(types.KindScenario, "demo")
	require.True(t, ok)
	assert.Equal(t, ScenarioWaiting, state.CurrentState)
	assert.Equal(t, uint32(1), state.TransitionCount)
	assert.True(t, state.HealthStatus.Healthy)
}

func TestProcessStateChangeRejectsUnknownTransition(t *testing.T) {
	engine, _ := newTestEngine(t)

	result := engine.ProcessStateChange(context.Background(), types.StateChange{
		ResourceType: types.KindScenario,
		ResourceName: "demo",
		CurrentState: ScenarioIdle,
		TargetState:  ScenarioPlaying,
		TransitionID: "t-2",
	})

	assert.False(t, result.Success)
	assert.Equal(t, types.ErrInvalidStateTransition, result.ErrorCode)
}

func TestProcessStateChangeRejectsEmptyResourceName(t *testing.T) {
	engine, _ := newTestEngine(t)

	result := engine.ProcessStateChange(context.Background(), types.StateChange{
		ResourceType: types.KindScenario,
		TargetState:  ScenarioWaiting,
	})

	assert.False(t, result.Success)
	assert.Equal(t, types.ErrInvalidRequest, result.ErrorCode)
}

func TestProcessStateChangeGuardFailureIsPreconditionFailed(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.guards = fixedGuardTable{value: false}

	// Package Initializing -> Running requires the "all_models_normal" guard.
	_ = engine.ProcessStateChange(context.Background(), types.StateChange{
		ResourceType: types.KindPackage,
		ResourceName: "pkg-a",
		CurrentState: PackageUnspecified,
		TargetState:  PackageInitializing,
		TransitionID: "t-3",
	})

	result := engine.ProcessStateChange(context.Background(), types.StateChange{
		ResourceType: types.KindPackage,
		ResourceName: "pkg-a",
		CurrentState: PackageInitializing,
		TargetState:  PackageRunning,
		TransitionID: "t-4",
	})

	assert.False(t, result.Success)
	assert.Equal(t, types.ErrPreconditionFailed, result.ErrorCode)
}

func TestProcessStateChangeWritesThroughBeforeCacheUpdate(t *testing.T) {
	engine, store := newTestEngine(t)

	result := engine.ProcessStateChange(context.Background(), types.StateChange{
		ResourceType: types.KindModel,
		ResourceName: "model-a",
		CurrentState: ModelUnspecified,
		TargetState:  ModelPending,
		TransitionID: "t-5",
	})
	require.True(t, result.Success)

	raw, err := store.Get(context.Background(), kvKey(types.KindModel, "model-a"))
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
}

func TestProcessStateChangeCrashLoopBackOffGatesRetry(t *testing.T) {
	engine, _ := newTestEngine(t)
	// Running -> CrashLoopBackOff is guarded by consecutive_restart_failures,
	// which the default guard table reports as false.
	engine.guards = fixedGuardTable{value: true}
	ctx := context.Background()

	require.True(t, engine.ProcessStateChange(ctx, types.StateChange{
		ResourceType: types.KindModel, ResourceName: "m", CurrentState: ModelUnspecified, TargetState: ModelPending, TransitionID: "1",
	}).Success)
	require.True(t, engine.ProcessStateChange(ctx, types.StateChange{
		ResourceType: types.KindModel, ResourceName: "m", CurrentState: ModelPending, TargetState: ModelContainerCreating, TransitionID: "2",
	}).Success)
	require.True(t, engine.ProcessStateChange(ctx, types.StateChange{
		ResourceType: types.KindModel, ResourceName: "m", CurrentState: ModelContainerCreating, TargetState: ModelRunning, TransitionID: "3",
	}).Success)
	require.True(t, engine.ProcessStateChange(ctx, types.StateChange{
		ResourceType: types.KindModel, ResourceName: "m", CurrentState: ModelRunning, TargetState: ModelCrashLoopBackOff, TransitionID: "4",
	}).Success)

	// Immediately retrying should be gated by the freshly-armed backoff timer.
	result := engine.ProcessStateChange(ctx, types.StateChange{
		ResourceType: types.KindModel, ResourceName: "m", CurrentState: ModelCrashLoopBackOff, TargetState: ModelRunning, TransitionID: "5",
	})
	assert.False(t, result.Success)
	assert.Equal(t, types.ErrPreconditionFailed, result.ErrorCode)
}

func TestProcessStateChangeEnqueuesActionCommand(t *testing.T) {
	engine, _ := newTestEngine(t)

	result := engine.ProcessStateChange(context.Background(), types.StateChange{
		ResourceType: types.KindScenario,
		ResourceName: "demo",
		CurrentState: ScenarioIdle,
		TargetState:  ScenarioWaiting,
		TransitionID: "t-6",
	})
	require.True(t, result.Success)

	select {
	case cmd := <-engine.Actions():
		assert.Equal(t, "start_condition_evaluation", cmd.Action)
		assert.Equal(t, "t-6", cmd.TransitionID)
	default:
		t.Fatal("expected an enqueued action command")
	}
}

func TestProcessStateChangeDropsActionWhenQueueFull(t *testing.T) {
	store := kv.NewMemStore()
	dropped := 0
	engine := NewEngine(store, Options{
		ActionQueueCapacity: 1,
		OnActionDropped:     func(types.ActionCommand) { dropped++ },
	})
	ctx := context.Background()

	require.True(t, engine.ProcessStateChange(ctx, types.StateChange{
		ResourceType: types.KindScenario, ResourceName: "a", CurrentState: ScenarioIdle, TargetState: ScenarioWaiting, TransitionID: "1",
	}).Success)
	require.True(t, engine.ProcessStateChange(ctx, types.StateChange{
		ResourceType: types.KindScenario, ResourceName: "b", CurrentState: ScenarioIdle, TargetState: ScenarioWaiting, TransitionID: "2",
	}).Success)

	assert.Equal(t, 1, dropped)
}

func TestLoadStartupStateDropsInvalidRecords(t *testing.T) {
	store := kv.NewMemStore()
	ctx := context.Background()

	valid := types.ResourceState{ResourceType: types.KindScenario, ResourceName: "demo", CurrentState: ScenarioWaiting, LastTransitionUnixTimestamp: 1}
	validRaw, err := yaml.Marshal(valid)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, kvKey(types.KindScenario, "demo"), validRaw))

	require.NoError(t, store.Put(ctx, kvKey(types.KindScenario, "bogus"), []byte("current_state: NotARealState\nresource_name: bogus\n")))

	engine := NewEngine(store, Options{})
	require.NoError(t, engine.LoadStartupState(ctx))

	_, ok := engine.Get(types.KindScenario, "demo")
	assert.True(t, ok)
	_, ok = engine.Get(types.KindScenario, "bogus")
	assert.False(t, ok)

	_, err = store.Get(ctx, kvKey(types.KindScenario, "bogus"))
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

type fixedGuardTable struct {
	value bool
}

func (f fixedGuardTable) Evaluate(string, GuardContext) bool {
	return f.value
}
