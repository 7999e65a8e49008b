package registry

import (
	"context"
	"testing"
	"time"

	"github.com/eclipse-pullpiri/pullpiri/pkg/kv"
	"github.com/eclipse-pullpiri/pullpiri/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterBootstrapsClusterIDOnce(t *testing.T) {
	store := kv.NewMemStore()
	reg := New(store, 0)
	ctx := context.Background()

	_, err := reg.Register(ctx, types.NodeInfo{NodeID: "n1", NodeName: "node-1", Role: types.NodeRoleSub})
	require.NoError(t, err)

	first, err := reg.ensureClusterID(ctx)
	require.NoError(t, err)

	_, err = reg.Register(ctx, types.NodeInfo{NodeID: "n2", NodeName: "node-2", Role: types.NodeRoleSub})
	require.NoError(t, err)

	second, err := reg.ensureClusterID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRegisterStampsInitializingStatus(t *testing.T) {
	reg := New(kv.NewMemStore(), 0)
	node, err := reg.Register(context.Background(), types.NodeInfo{
		NodeID: "n1", NodeName: "node-1", Role: types.NodeRoleSub, Status: types.NodeStatusOnline,
	})
	require.NoError(t, err)
	assert.Equal(t, types.NodeStatusInitializing, node.Status)
}

func TestRegisterRejectsEmptyFields(t *testing.T) {
	reg := New(kv.NewMemStore(), 0)
	_, err := reg.Register(context.Background(), types.NodeInfo{NodeName: "node-1"})
	assert.Error(t, err)

	_, err = reg.Register(context.Background(), types.NodeInfo{NodeID: "n1"})
	assert.Error(t, err)
}

func TestSweepStaleMarksOfflineOnlyPastThreshold(t *testing.T) {
	reg := New(kv.NewMemStore(), 90*time.Second)
	ctx := context.Background()

	stale, err := reg.Register(ctx, types.NodeInfo{NodeID: "n1", NodeName: "n1"})
	require.NoError(t, err)
	stale.Status = types.NodeStatusOnline
	stale.LastHeartbeat = time.Now().Add(-120 * time.Second).Unix()
	_, err = reg.UpdateStatus(ctx, "n1", types.NodeStatusOnline, nil)
	require.NoError(t, err)
	reg.mu.Lock()
	n := reg.nodes["n1"]
	n.LastHeartbeat = time.Now().Add(-120 * time.Second).Unix()
	reg.nodes["n1"] = n
	reg.mu.Unlock()

	fresh, err := reg.Register(ctx, types.NodeInfo{NodeID: "n2", NodeName: "n2"})
	require.NoError(t, err)
	_ = fresh
	_, err = reg.UpdateStatus(ctx, "n2", types.NodeStatusOnline, nil)
	require.NoError(t, err)

	swept := reg.SweepStale(ctx)
	assert.ElementsMatch(t, []string{"n1"}, swept)

	n1, _ := reg.Get("n1")
	assert.Equal(t, types.NodeStatusOffline, n1.Status)
	n2, _ := reg.Get("n2")
	assert.Equal(t, types.NodeStatusOnline, n2.Status)
}

func TestTopologyPartitionsByRole(t *testing.T) {
	reg := New(kv.NewMemStore(), 0)
	ctx := context.Background()
	_, err := reg.Register(ctx, types.NodeInfo{NodeID: "m1", NodeName: "m1", Role: types.NodeRoleMaster})
	require.NoError(t, err)
	_, err = reg.Register(ctx, types.NodeInfo{NodeID: "s1", NodeName: "s1", Role: types.NodeRoleSub})
	require.NoError(t, err)

	topo := reg.Topology("cluster-a")
	assert.Len(t, topo.MasterNodes, 1)
	assert.Len(t, topo.SubNodes, 1)
}

func TestRemoveDeletesRecord(t *testing.T) {
	reg := New(kv.NewMemStore(), 0)
	ctx := context.Background()
	_, err := reg.Register(ctx, types.NodeInfo{NodeID: "n1", NodeName: "n1"})
	require.NoError(t, err)

	require.NoError(t, reg.Remove(ctx, "n1"))
	_, ok := reg.Get("n1")
	assert.False(t, ok)
}
