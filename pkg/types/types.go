// Package types defines the declarative artifacts and runtime records the
// reconciliation core operates on: NodeInfo, Scenario, Package, Model,
// Network, Volume, ResourceState and the event/command envelopes that flow
// between the State Machine Engine, Action Controller and Registry.
package types

import "time"

// ResourceKind identifies which per-kind state machine a ResourceState
// belongs to.
type ResourceKind string

const (
	KindScenario ResourceKind = "Scenario"
	KindPackage  ResourceKind = "Package"
	KindModel    ResourceKind = "Model"
	KindNetwork  ResourceKind = "Network"
	KindVolume   ResourceKind = "Volume"
	KindNode     ResourceKind = "Node"
)

// NodeRole distinguishes cluster coordinators from workload executors.
type NodeRole string

const (
	NodeRoleMaster NodeRole = "Master"
	NodeRoleSub    NodeRole = "Sub"
)

// NodeStatus is the lifecycle state of a cluster member.
type NodeStatus string

const (
	NodeStatusOffline      NodeStatus = "Offline"
	NodeStatusOnline       NodeStatus = "Online"
	NodeStatusInitializing NodeStatus = "Initializing"
	NodeStatusError        NodeStatus = "Error"
	NodeStatusMaintenance  NodeStatus = "Maintenance"
)

// NodeResources carries the capacity and current utilization of a node.
type NodeResources struct {
	CPUCores    uint32  `json:"cpu_cores"`
	MemoryMB    uint64  `json:"memory_mb"`
	DiskGB      uint64  `json:"disk_gb"`
	CPUUsage    float64 `json:"cpu_usage"`
	MemoryUsage float64 `json:"memory_usage"`
}

// NodeInfo describes one cluster member. Owned exclusively by the Registry.
type NodeInfo struct {
	NodeID        string            `json:"node_id"`
	NodeName      string            `json:"node_name"`
	IP            string            `json:"ip"`
	Role          NodeRole          `json:"role"`
	Status        NodeStatus        `json:"status"`
	Resources     NodeResources     `json:"resources"`
	Labels        map[string]string `json:"labels"`
	CreatedAt     int64             `json:"created_at"`
	LastHeartbeat int64             `json:"last_heartbeat"`
}

// IsOnline reports whether the node is currently considered reachable.
func (n *NodeInfo) IsOnline() bool {
	return n.Status == NodeStatusOnline
}

// UpdateHeartbeat stamps LastHeartbeat to the current UNIX time.
func (n *NodeInfo) UpdateHeartbeat() {
	n.LastHeartbeat = time.Now().Unix()
}

// TopologyType describes the shape of a cluster's membership.
type TopologyType string

const (
	TopologySimple TopologyType = "simple"
)

// ClusterTopology partitions known nodes by role.
type ClusterTopology struct {
	ClusterID    string            `json:"cluster_id"`
	ClusterName  string            `json:"cluster_name"`
	TopologyType TopologyType      `json:"topology_type"`
	MasterNodes  []NodeInfo        `json:"master_nodes"`
	SubNodes     []NodeInfo        `json:"sub_nodes"`
	Config       map[string]string `json:"config"`
}

// ScenarioAction enumerates the operations a Scenario trigger can request.
type ScenarioAction string

const (
	ActionLaunch    ScenarioAction = "launch"
	ActionTerminate ScenarioAction = "terminate"
	ActionUpdate    ScenarioAction = "update"
	ActionRollback  ScenarioAction = "rollback"
)

// Scenario is a declarative rule whose trigger causes a Package-level action.
type Scenario struct {
	Name      string         `yaml:"name"`
	Action    ScenarioAction `yaml:"action"`
	Target    string         `yaml:"target"`
	Condition string         `yaml:"condition,omitempty"`
}

// ModelResources references the optional Volume/Network a Model depends on.
type ModelResources struct {
	Volume  string `yaml:"volume,omitempty"`
	Network string `yaml:"network,omitempty"`
}

// ModelRef is a Package's reference to one Model placed on one node.
type ModelRef struct {
	Name      string         `yaml:"name"`
	Node      string         `yaml:"node"`
	Resources ModelResources `yaml:"resources,omitempty"`
}

// Package is a deployable bundle composed of Models plus resource references.
type Package struct {
	Name   string     `yaml:"name"`
	Models []ModelRef `yaml:"models"`
}

// Model is a single workload unit (pod-like) mapped to one node. The
// container spec is carried as an opaque manifest; only the fields the
// reconciliation core needs to reason about are typed.
type Model struct {
	Name                string            `yaml:"name"`
	Node                string            `yaml:"node"`
	HostNetwork         bool              `yaml:"hostNetwork,omitempty"`
	TerminationGraceSec int               `yaml:"terminationGraceSeconds,omitempty"`
	Manifest            map[string]string `yaml:"manifest,omitempty"`
}

// Network is an opaque manifest keyed by name.
type Network struct {
	Name     string            `yaml:"name"`
	Manifest map[string]string `yaml:"manifest,omitempty"`
}

// Volume is an opaque manifest keyed by name.
type Volume struct {
	Name     string            `yaml:"name"`
	Manifest map[string]string `yaml:"manifest,omitempty"`
}

// HealthStatus tracks consecutive transition outcomes for a ResourceState.
type HealthStatus struct {
	Healthy              bool   `yaml:"healthy" json:"healthy"`
	StatusMessage        string `yaml:"status_message" json:"status_message"`
	LastCheckUnixTS       int64 `yaml:"last_check_unix_timestamp" json:"last_check_unix_timestamp"`
	ConsecutiveFailures  int    `yaml:"consecutive_failures" json:"consecutive_failures"`
}

// ResourceState is the durable, one-per-resource state record the State
// Machine Engine owns. Serialized as YAML under `state/{Kind}::{name}`.
type ResourceState struct {
	ResourceType               ResourceKind      `yaml:"resource_type"`
	ResourceName               string            `yaml:"resource_name"`
	CurrentState               string            `yaml:"current_state"`
	DesiredState                *string          `yaml:"desired_state,omitempty"`
	LastTransitionUnixTimestamp int64            `yaml:"last_transition_unix_timestamp"`
	TransitionCount             uint32           `yaml:"transition_count"`
	Metadata                    map[string]string `yaml:"metadata"`
	HealthStatus                HealthStatus      `yaml:"health_status"`
}

// StateTransition is one row of a per-kind, process-wide-immutable
// transition table.
type StateTransition struct {
	FromState string
	Event     string
	ToState   string
	Condition string // guard name, empty means unconditional
	Action    string
}

// StateChange is an inbound request to move a resource from its current
// state toward a target state.
type StateChange struct {
	ResourceType  ResourceKind `json:"resource_type"`
	ResourceName  string       `json:"resource_name"`
	CurrentState  string       `json:"current_state"`
	TargetState   string       `json:"target_state"`
	TransitionID  string       `json:"transition_id"`
	Source        string       `json:"source"`
	TimestampNs   int64        `json:"timestamp_ns"`
}

// ActionCommand is emitted by the engine after a committed transition, to
// be dispatched asynchronously by the Action Controller.
type ActionCommand struct {
	Action       string            `json:"action"`
	ResourceKey  string            `json:"resource_key"`
	ResourceType ResourceKind      `json:"resource_type"`
	TransitionID string            `json:"transition_id"`
	Context      map[string]string `json:"context"`
}

// ContainerInfo is one entry of a node's reported ContainerList.
type ContainerInfo struct {
	ID          string            `json:"id"`
	Names       []string          `json:"names"`
	Image       string            `json:"image"`
	State       map[string]string `json:"state"`
	Config      map[string]string `json:"config"`
	Annotations map[string]string `json:"annotations"`
	Stats       map[string]string `json:"stats"`
}

// ContainerList is a node's periodic container inspection report.
type ContainerList struct {
	NodeName   string          `json:"node_name"`
	Containers []ContainerInfo `json:"containers"`
}

// ErrorCode is the wire-visible outcome of a reconciliation operation.
type ErrorCode string

const (
	ErrSuccess                ErrorCode = "Success"
	ErrInvalidRequest         ErrorCode = "InvalidRequest"
	ErrInvalidStateTransition ErrorCode = "InvalidStateTransition"
	ErrPreconditionFailed     ErrorCode = "PreconditionFailed"
	ErrResourceNotFound       ErrorCode = "ResourceNotFound"
	ErrInternalError          ErrorCode = "InternalError"
)

// TransitionResult is the outcome of processing one StateChange.
type TransitionResult struct {
	Success      bool      `json:"success"`
	CurrentState string    `json:"current_state"`
	TransitionID string    `json:"transition_id"`
	ErrorCode    ErrorCode `json:"error_code"`
	Message      string    `json:"message"`
	Detail       string    `json:"detail,omitempty"`
}
