package actioncontroller

import (
	"context"
	"testing"

	"github.com/eclipse-pullpiri/pullpiri/pkg/config"
	"github.com/eclipse-pullpiri/pullpiri/pkg/kv"
	"github.com/eclipse-pullpiri/pullpiri/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type fakeFederation struct {
	started []string
	stopped []string
	reloads int
}

func (f *fakeFederation) UnitStart(_ context.Context, unit, node string) error {
	f.started = append(f.started, unit+"@"+node)
	return nil
}

func (f *fakeFederation) UnitStop(_ context.Context, unit, node string) error {
	f.stopped = append(f.stopped, unit+"@"+node)
	return nil
}

func (f *fakeFederation) ControllerReloadAllNodes(context.Context) error {
	f.reloads++
	return nil
}

func seedScenarioAndPackage(t *testing.T, store kv.Store, scenario types.Scenario, pkg types.Package) {
	t.Helper()
	raw, err := yaml.Marshal(scenario)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), "Scenario/"+scenario.Name, raw))

	raw, err = yaml.Marshal(pkg)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), "Package/"+pkg.Name, raw))
}

func TestTriggerLaunchDispatchesUnitStart(t *testing.T) {
	store := kv.NewMemStore()
	seedScenarioAndPackage(t, store,
		types.Scenario{Name: "s1", Action: types.ActionLaunch, Target: "p1"},
		types.Package{Name: "p1", Models: []types.ModelRef{{Name: "m1", Node: "HPC"}}},
	)
	fed := &fakeFederation{}
	ctrl := New(store, fed, nil, config.Config{Host: config.HostEntry{Name: "HPC", Class: config.ClassFederation}})

	require.NoError(t, ctrl.Trigger(context.Background(), "s1"))
	assert.Equal(t, []string{"m1.service@HPC"}, fed.started)
	assert.Empty(t, fed.stopped)
}

func TestTriggerUnknownScenarioErrors(t *testing.T) {
	ctrl := New(kv.NewMemStore(), &fakeFederation{}, nil, config.Config{})
	err := ctrl.Trigger(context.Background(), "missing")
	assert.ErrorContains(t, err, "not found")
}

func TestTriggerRejectsEmptyName(t *testing.T) {
	ctrl := New(kv.NewMemStore(), &fakeFederation{}, nil, config.Config{})
	err := ctrl.Trigger(context.Background(), "")
	assert.Error(t, err)
}

func TestTriggerUpdateCyclesSymlinkAndReload(t *testing.T) {
	store := kv.NewMemStore()
	seedScenarioAndPackage(t, store,
		types.Scenario{Name: "s1", Action: types.ActionUpdate, Target: "p1"},
		types.Package{Name: "p1", Models: []types.ModelRef{{Name: "m1", Node: "HPC"}}},
	)
	fed := &fakeFederation{}
	dir := t.TempDir()
	ctrl := New(store, fed, nil, config.Config{
		Host:        config.HostEntry{Name: "HPC", Class: config.ClassFederation},
		YamlStorage: dir,
	})

	require.NoError(t, ctrl.Trigger(context.Background(), "s1"))
	assert.Equal(t, 2, fed.reloads)
	assert.Equal(t, []string{"m1.service@HPC"}, fed.stopped)
	assert.Equal(t, []string{"m1.service@HPC"}, fed.started)
}

func TestReconcileNoOpWhenStatesMatch(t *testing.T) {
	ctrl := New(kv.NewMemStore(), &fakeFederation{}, nil, config.Config{})
	assert.NoError(t, ctrl.Reconcile(context.Background(), "s1", "Running", "Running"))
}

func TestReconcileRejectsSentinelStates(t *testing.T) {
	ctrl := New(kv.NewMemStore(), &fakeFederation{}, nil, config.Config{})
	assert.Error(t, ctrl.Reconcile(context.Background(), "s1", "Failed", "Running"))
	assert.Error(t, ctrl.Reconcile(context.Background(), "s1", "Running", "Unknown"))
}

func TestReconcileStartsModelsWhenDesiredIsRunning(t *testing.T) {
	store := kv.NewMemStore()
	seedScenarioAndPackage(t, store,
		types.Scenario{Name: "s1", Action: types.ActionLaunch, Target: "p1"},
		types.Package{Name: "p1", Models: []types.ModelRef{{Name: "m1", Node: "HPC"}}},
	)
	fed := &fakeFederation{}
	ctrl := New(store, fed, nil, config.Config{Host: config.HostEntry{Name: "HPC", Class: config.ClassFederation}})

	require.NoError(t, ctrl.Reconcile(context.Background(), "s1", "Degraded", "Running"))
	assert.Equal(t, []string{"m1.service@HPC"}, fed.started)
}

func TestNodeAgentDispatchUsesStubByDefault(t *testing.T) {
	store := kv.NewMemStore()
	seedScenarioAndPackage(t, store,
		types.Scenario{Name: "s1", Action: types.ActionLaunch, Target: "p1"},
		types.Package{Name: "p1", Models: []types.ModelRef{{Name: "m1", Node: "edge-1"}}},
	)
	ctrl := New(store, &fakeFederation{}, nil, config.Config{
		Host: config.HostEntry{Name: "HPC", Class: config.ClassFederation},
		Guests: []config.HostEntry{{Name: "edge-1", Class: config.ClassNodeAgent}},
	})

	require.NoError(t, ctrl.Trigger(context.Background(), "s1"))
}
