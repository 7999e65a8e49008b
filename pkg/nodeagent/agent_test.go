package nodeagent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/eclipse-pullpiri/pullpiri/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMaster struct {
	mu             sync.Mutex
	registerCalls  int
	heartbeatCalls int
	heartbeatErr   error
}

func (f *fakeMaster) RegisterNode(context.Context, types.NodeInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registerCalls++
	return nil
}

func (f *fakeMaster) Heartbeat(context.Context, string, types.NodeStatus, types.NodeResources) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heartbeatCalls++
	return f.heartbeatErr
}

func TestTickRegistersOnceThenHeartbeats(t *testing.T) {
	master := &fakeMaster{}
	agent := New(Options{NodeID: "n1", NodeName: "node-1", Master: master})

	agent.tick(context.Background())
	agent.tick(context.Background())

	assert.Equal(t, 1, master.registerCalls)
	assert.Equal(t, 2, master.heartbeatCalls)
}

func TestTickReRegistersAfterHeartbeatFailure(t *testing.T) {
	master := &fakeMaster{heartbeatErr: errors.New("transport down")}
	agent := New(Options{NodeID: "n1", NodeName: "node-1", Master: master})

	agent.tick(context.Background())
	assert.False(t, agent.connected.Load())

	master.heartbeatErr = nil
	agent.tick(context.Background())
	assert.Equal(t, 2, master.registerCalls)
	assert.True(t, agent.connected.Load())
}

func TestSubmitYAMLReturnsUnavailableWhenFull(t *testing.T) {
	agent := New(Options{NodeID: "n1", NodeName: "node-1", Master: &fakeMaster{}})

	for i := 0; i < yamlIntakeCapacity; i++ {
		require.NoError(t, agent.SubmitYAML([]byte("manifest")))
	}
	assert.ErrorIs(t, agent.SubmitYAML([]byte("overflow")), ErrUnavailable)
}

type fakeRuntime struct {
	ids []string
}

func (f *fakeRuntime) ListContainerIDs(context.Context) ([]string, error) {
	return f.ids, nil
}

func (f *fakeRuntime) InspectContainer(_ context.Context, id string) (types.ContainerInfo, error) {
	return types.ContainerInfo{ID: id, Names: []string{"/" + id}}, nil
}

func TestInspectContainersCollectsAllResults(t *testing.T) {
	rt := &fakeRuntime{ids: []string{"c1", "c2", "c3"}}
	agent := New(Options{NodeID: "n1", NodeName: "node-1", Master: &fakeMaster{}, Runtime: rt})

	list, err := agent.InspectContainers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "node-1", list.NodeName)
	assert.Len(t, list.Containers, 3)
}

func TestInspectContainersWithoutRuntimeReturnsEmpty(t *testing.T) {
	agent := New(Options{NodeID: "n1", NodeName: "node-1", Master: &fakeMaster{}})
	list, err := agent.InspectContainers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list.Containers)
}
