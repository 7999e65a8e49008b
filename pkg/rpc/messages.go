package rpc

import (
	"github.com/eclipse-pullpiri/pullpiri/pkg/types"
)

// RegisterNodeRequest/Response carry nodeagent.MasterClient.RegisterNode.
type RegisterNodeRequest struct {
	Node types.NodeInfo
}

type RegisterNodeResponse struct {
	ClusterID string
}

// HeartbeatRequest/Response carry nodeagent.MasterClient.Heartbeat.
type HeartbeatRequest struct {
	NodeID    string
	Status    types.NodeStatus
	Resources types.NodeResources
}

type HeartbeatResponse struct{}

// StateChangeRequest/Response carry a state manager state change submission.
type StateChangeRequest struct {
	Change types.StateChange
}

type StateChangeResponse struct {
	Result types.TransitionResult
}

// ContainerListRequest/Response carry a node's periodic container report.
type ContainerListRequest struct {
	List types.ContainerList
}

type ContainerListResponse struct{}

// UnitRequest/Response carry actioncontroller.FederationClient/NodeAgentClient
// UnitStart and UnitStop.
type UnitRequest struct {
	NodeName string
	Model    string
	Target   string
}

type UnitResponse struct {
	Accepted bool
}

// ReloadRequest/Response carry FederationClient.ControllerReloadAllNodes.
type ReloadRequest struct{}

type ReloadResponse struct{}
