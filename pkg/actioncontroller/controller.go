// Package actioncontroller translates a Scenario trigger into per-Model
// workload lifecycle operations, routed to either a systemd-federation
// runtime or a per-node agent runtime based on static node classification.
package actioncontroller

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/eclipse-pullpiri/pullpiri/pkg/config"
	"github.com/eclipse-pullpiri/pullpiri/pkg/kv"
	"github.com/eclipse-pullpiri/pullpiri/pkg/log"
	"github.com/eclipse-pullpiri/pullpiri/pkg/metrics"
	"github.com/eclipse-pullpiri/pullpiri/pkg/types"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const reloadSettleDelay = 100 * time.Millisecond

// Controller owns workload start/stop/update/rollback by model. It holds
// no per-resource state of its own; concurrent trigger/reconcile calls for
// different scenarios may run in parallel, but callers must not issue
// conflicting calls for the same scenario concurrently.
type Controller struct {
	store       kv.Store
	federation  FederationClient
	nodeAgent   NodeAgentClient
	host        config.HostEntry
	guests      []config.HostEntry
	yamlStorage string
	logger      zerolog.Logger
}

// New constructs a Controller. nodeAgent may be nil to install the
// default stub client.
func New(store kv.Store, federation FederationClient, nodeAgent NodeAgentClient, cfg config.Config) *Controller {
	if nodeAgent == nil {
		nodeAgent = StubNodeAgentClient{}
	}
	return &Controller{
		store:       store,
		federation:  federation,
		nodeAgent:   nodeAgent,
		host:        cfg.Host,
		guests:      cfg.Guests,
		yamlStorage: cfg.YamlStorage,
		logger:      log.WithComponent("actioncontroller"),
	}
}

// classify resolves which runtime owns nodeName: the configured host, each
// configured guest, defaulting to the host's own class for an unlisted
// node (matching a single-host deployment where every Model runs locally).
func (c *Controller) classify(nodeName string) config.NodeClass {
	if nodeName == c.host.Name {
		return c.host.Class
	}
	for _, g := range c.guests {
		if g.Name == nodeName {
			return g.Class
		}
	}
	return c.host.Class
}

// Trigger reads Scenario/{name} and Package/{target} from KV and dispatches
// the scenario's action against every Model in the package. Per-model
// dispatch errors abort the trigger; already-dispatched models are not
// rolled back.
func (c *Controller) Trigger(ctx context.Context, scenarioName string) error {
	if scenarioName == "" {
		return errors.New("actioncontroller: scenario name must not be empty")
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ActionTriggerDuration, scenarioName)

	scenario, err := c.loadScenario(ctx, scenarioName)
	if err != nil {
		return err
	}

	pkg, err := c.loadPackage(ctx, scenario.Target)
	if err != nil {
		return err
	}

	for _, model := range pkg.Models {
		class := c.classify(model.Node)
		if err := c.dispatch(ctx, scenario.Action, model.Name, model.Node, pkg.Name, class); err != nil {
			return fmt.Errorf("actioncontroller: dispatch %s for model %q: %w", scenario.Action, model.Name, err)
		}
	}
	return nil
}

// Reconcile drives Models toward desired when current != desired. Either
// state being a sentinel (empty, Failed, Unknown) is an error: the
// reconciler has nothing legal to act on.
func (c *Controller) Reconcile(ctx context.Context, scenarioName, current, desired string) error {
	if current == desired {
		return nil
	}
	if isSentinelState(current) || isSentinelState(desired) {
		return fmt.Errorf("actioncontroller: cannot reconcile from %q to %q", current, desired)
	}

	scenario, err := c.loadScenario(ctx, scenarioName)
	if err != nil {
		return err
	}
	pkg, err := c.loadPackage(ctx, scenario.Target)
	if err != nil {
		return err
	}

	if desired != "Running" {
		return nil
	}
	for _, model := range pkg.Models {
		class := c.classify(model.Node)
		if err := c.start(ctx, model.Name, model.Node, class); err != nil {
			return fmt.Errorf("actioncontroller: reconcile start model %q: %w", model.Name, err)
		}
	}
	return nil
}

func isSentinelState(s string) bool {
	switch s {
	case "", "Failed", "Unknown":
		return true
	default:
		return false
	}
}

func (c *Controller) dispatch(ctx context.Context, action types.ScenarioAction, model, node, target string, class config.NodeClass) error {
	switch action {
	case types.ActionLaunch:
		return c.start(ctx, model, node, class)
	case types.ActionTerminate:
		return c.stop(ctx, model, node, class)
	case types.ActionUpdate, types.ActionRollback:
		if err := c.stop(ctx, model, node, class); err != nil {
			return err
		}
		if class == config.ClassFederation {
			c.removeSymlink(model)
			if err := c.reload(ctx); err != nil {
				return err
			}
			if err := c.createSymlink(model, target); err != nil {
				return err
			}
			if err := c.reload(ctx); err != nil {
				return err
			}
		}
		return c.start(ctx, model, node, class)
	default:
		c.logger.Warn().Str("action", string(action)).Msg("unknown scenario action, no-op")
		return nil
	}
}

func (c *Controller) start(ctx context.Context, model, node string, class config.NodeClass) error {
	switch class {
	case config.ClassFederation:
		return c.federation.UnitStart(ctx, model+".service", node)
	case config.ClassNodeAgent:
		accepted, err := c.nodeAgent.UnitStart(ctx, model, node)
		if err != nil {
			return err
		}
		if !accepted {
			return fmt.Errorf("node agent rejected unit start for %q on %q", model, node)
		}
		return nil
	default:
		return fmt.Errorf("unknown runtime class %q for node %q", class, node)
	}
}

func (c *Controller) stop(ctx context.Context, model, node string, class config.NodeClass) error {
	switch class {
	case config.ClassFederation:
		return c.federation.UnitStop(ctx, model+".service", node)
	case config.ClassNodeAgent:
		accepted, err := c.nodeAgent.UnitStop(ctx, model, node)
		if err != nil {
			return err
		}
		if !accepted {
			return fmt.Errorf("node agent rejected unit stop for %q on %q", model, node)
		}
		return nil
	default:
		return fmt.Errorf("unknown runtime class %q for node %q", class, node)
	}
}

func (c *Controller) reload(ctx context.Context) error {
	if err := c.federation.ControllerReloadAllNodes(ctx); err != nil {
		return err
	}
	time.Sleep(reloadSettleDelay)
	return nil
}

func (c *Controller) symlinkPath(model string) string {
	return filepath.Join("/etc/containers/systemd", model+".kube")
}

func (c *Controller) createSymlink(model, target string) error {
	targetPath := filepath.Join(c.yamlStorage, target+".kube")
	err := os.Symlink(targetPath, c.symlinkPath(model))
	metrics.SymlinkOperationsTotal.WithLabelValues("create", outcomeLabel(err)).Inc()
	return err
}

// removeSymlink is best-effort: absence of the symlink is not an error.
func (c *Controller) removeSymlink(model string) {
	err := os.Remove(c.symlinkPath(model))
	if err != nil && !os.IsNotExist(err) {
		c.logger.Warn().Str("model", model).Err(err).Msg("failed to remove unit symlink")
		metrics.SymlinkOperationsTotal.WithLabelValues("remove", "error").Inc()
		return
	}
	metrics.SymlinkOperationsTotal.WithLabelValues("remove", "ok").Inc()
}

func outcomeLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (c *Controller) loadScenario(ctx context.Context, name string) (types.Scenario, error) {
	raw, err := c.store.Get(ctx, "Scenario/"+name)
	if errors.Is(err, kv.ErrNotFound) {
		return types.Scenario{}, fmt.Errorf("actioncontroller: scenario %q not found", name)
	}
	if err != nil {
		return types.Scenario{}, fmt.Errorf("actioncontroller: load scenario %q: %w", name, err)
	}
	var s types.Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return types.Scenario{}, fmt.Errorf("actioncontroller: decode scenario %q: %w", name, err)
	}
	return s, nil
}

func (c *Controller) loadPackage(ctx context.Context, name string) (types.Package, error) {
	raw, err := c.store.Get(ctx, "Package/"+name)
	if errors.Is(err, kv.ErrNotFound) {
		return types.Package{}, fmt.Errorf("actioncontroller: package %q not found", name)
	}
	if err != nil {
		return types.Package{}, fmt.Errorf("actioncontroller: load package %q: %w", name, err)
	}
	var p types.Package
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return types.Package{}, fmt.Errorf("actioncontroller: decode package %q: %w", name, err)
	}
	return p, nil
}
