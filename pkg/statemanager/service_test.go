package statemanager

import (
	"context"
	"testing"
	"time"

	"github.com/eclipse-pullpiri/pullpiri/pkg/kv"
	"github.com/eclipse-pullpiri/pullpiri/pkg/statemachine"
	"github.com/eclipse-pullpiri/pullpiri/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCPURatioParsesValidStats(t *testing.T) {
	ratio, ok := cpuRatio(map[string]string{
		"cpu_kernel_ns": "10",
		"cpu_user_ns":   "20",
		"cpu_total_ns":  "100",
	})
	require.True(t, ok)
	assert.InDelta(t, 0.3, ratio, 0.0001)
}

func TestCPURatioIgnoresUnparseableFields(t *testing.T) {
	_, ok := cpuRatio(map[string]string{"cpu_kernel_ns": "oops", "cpu_user_ns": "1", "cpu_total_ns": "10"})
	assert.False(t, ok)
}

func TestMemoryRatioTreatsZeroLimitAsNoLimit(t *testing.T) {
	_, ok := memoryRatio(map[string]string{"memory_usage_bytes": "100", "memory_limit_bytes": "0"})
	assert.False(t, ok)
}

func TestMemoryRatioComputesUsageOverLimit(t *testing.T) {
	ratio, ok := memoryRatio(map[string]string{"memory_usage_bytes": "50", "memory_limit_bytes": "100"})
	require.True(t, ok)
	assert.InDelta(t, 0.5, ratio, 0.0001)
}

type recordingTrigger struct {
	triggered []string
}

func (r *recordingTrigger) Trigger(_ context.Context, scenarioName string) error {
	r.triggered = append(r.triggered, scenarioName)
	return nil
}

func TestServiceForwardsScenarioActionToController(t *testing.T) {
	engine := statemachine.NewEngine(kv.NewMemStore(), statemachine.Options{})
	trigger := &recordingTrigger{}
	svc := New(engine, NewControllerExecutor(trigger), 10, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	svc.SubmitStateChange(types.StateChange{
		ResourceType: types.KindScenario, ResourceName: "demo",
		CurrentState: statemachine.ScenarioIdle, TargetState: statemachine.ScenarioWaiting, TransitionID: "t-1",
	})
	svc.SubmitStateChange(types.StateChange{
		ResourceType: types.KindScenario, ResourceName: "demo",
		CurrentState: statemachine.ScenarioWaiting, TargetState: statemachine.ScenarioAllowed, TransitionID: "t-2",
	})
	svc.SubmitStateChange(types.StateChange{
		ResourceType: types.KindScenario, ResourceName: "demo",
		CurrentState: statemachine.ScenarioAllowed, TargetState: statemachine.ScenarioPlaying, TransitionID: "t-3",
	})

	require.Eventually(t, func() bool {
		return len(trigger.triggered) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "demo", trigger.triggered[0])
}

func TestServiceProcessesContainerListWithoutPanicking(t *testing.T) {
	engine := statemachine.NewEngine(kv.NewMemStore(), statemachine.Options{})
	svc := New(engine, nil, 10, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	svc.SubmitContainerList(types.ContainerList{
		NodeName: "n1",
		Containers: []types.ContainerInfo{
			{ID: "c1", Stats: map[string]string{"cpu_kernel_ns": "96", "cpu_user_ns": "1", "cpu_total_ns": "100"}},
		},
	})

	time.Sleep(20 * time.Millisecond)
}
