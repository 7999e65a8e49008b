/*
Package types defines the declarative artifacts and runtime records shared
across the reconciliation core: what a cluster member looks like to the
Registry, what a Scenario/Package/Model/Network/Volume manifest looks like
on disk, and the wire envelopes (StateChange, ActionCommand, ContainerList,
TransitionResult) that flow between the Node Agent, State Manager, State
Machine Engine, and Action Controller.

# Core Types

Cluster membership:
  - NodeInfo: one cluster member, owned exclusively by the Registry
  - NodeRole, NodeStatus: a node's coordination role and reachability
  - NodeResources: capacity and current utilization
  - ClusterTopology: known nodes partitioned by role

Declarative artifacts (YAML manifests stored in the KV port under {Kind}/{name}):
  - Scenario: a named rule whose trigger causes a Package-level action
  - Package: a deployable bundle of ModelRefs
  - Model: a single workload unit placed on one node
  - Network, Volume: opaque manifests referenced by a Model

Reconciliation records:
  - ResourceState: the durable, one-per-resource record the State Machine
    Engine owns, keyed by {ResourceKind}::{name}
  - StateTransition: one row of a per-kind, process-wide transition table
  - HealthStatus: consecutive transition outcomes for a ResourceState

Wire envelopes:
  - StateChange: an inbound request to move a resource toward a target state
  - ActionCommand: emitted after a committed transition, dispatched
    asynchronously by the Action Controller
  - ContainerList, ContainerInfo: a node's periodic container inspection report
  - TransitionResult, ErrorCode: the outcome of processing one StateChange

# Design Patterns

Enumeration pattern: every enum is a typed string constant, e.g.

	type ResourceKind string
	const (
	    KindScenario ResourceKind = "Scenario"
	    KindModel    ResourceKind = "Model"
	)

Optional fields use pointers (ResourceState.DesiredState is nil until a
target is set) or omitempty-tagged maps.

# Serialization

Declarative artifacts round-trip through YAML (gopkg.in/yaml.v3) since
they're authored and read by operators; ResourceState is stored in the
KV port as YAML as well. Wire envelopes round-trip through JSON for RPC,
and NodeInfo is stored in the KV port as JSON.
*/
package types
