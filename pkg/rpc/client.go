package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/eclipse-pullpiri/pullpiri/pkg/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Dial opens a client connection to a master or node-agent host. Insecure
// transport credentials are used for now; a later pass can slot in mTLS
// once a certificate source is chosen for this cluster.
func Dial(addr string) (*grpc.ClientConn, error) {
	return grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

func invoke(ctx context.Context, cc *grpc.ClientConn, method string, req, resp any) error {
	return cc.Invoke(ctx, method, req, resp, grpc.ForceCodec(jsonCodec{}))
}

// MasterClient is a grpc.ClientConn-backed implementation of
// nodeagent.MasterClient.
type MasterClient struct {
	conn *grpc.ClientConn
}

// NewMasterClient wraps an established connection.
func NewMasterClient(conn *grpc.ClientConn) *MasterClient {
	return &MasterClient{conn: conn}
}

func (c *MasterClient) RegisterNode(ctx context.Context, node types.NodeInfo) error {
	resp := new(RegisterNodeResponse)
	return invoke(ctx, c.conn, "/piccolo.MasterPlane/RegisterNode", &RegisterNodeRequest{Node: node}, resp)
}

func (c *MasterClient) Heartbeat(ctx context.Context, nodeID string, status types.NodeStatus, resources types.NodeResources) error {
	resp := new(HeartbeatResponse)
	return invoke(ctx, c.conn, "/piccolo.MasterPlane/Heartbeat", &HeartbeatRequest{NodeID: nodeID, Status: status, Resources: resources}, resp)
}

// SubmitStateChange forwards a state change to the state manager host.
func (c *MasterClient) SubmitStateChange(ctx context.Context, change types.StateChange) (types.TransitionResult, error) {
	resp := new(StateChangeResponse)
	if err := invoke(ctx, c.conn, "/piccolo.MasterPlane/SubmitStateChange", &StateChangeRequest{Change: change}, resp); err != nil {
		return types.TransitionResult{}, err
	}
	return resp.Result, nil
}

// SubmitContainerList forwards a container report to the state manager host.
func (c *MasterClient) SubmitContainerList(ctx context.Context, list types.ContainerList) error {
	resp := new(ContainerListResponse)
	return invoke(ctx, c.conn, "/piccolo.MasterPlane/SubmitContainerList", &ContainerListRequest{List: list}, resp)
}

// ControlClient is a grpc.ClientConn-backed implementation of
// actioncontroller.FederationClient. NodeAgentControlClient below adapts the
// same connection to actioncontroller.NodeAgentClient's distinct signature.
type ControlClient struct {
	conn    *grpc.ClientConn
	timeout time.Duration
}

// NewControlClient wraps an established connection.
func NewControlClient(conn *grpc.ClientConn) *ControlClient {
	return &ControlClient{conn: conn, timeout: 10 * time.Second}
}

// UnitStart satisfies actioncontroller.FederationClient (unit, node) -> error.
func (c *ControlClient) UnitStart(ctx context.Context, unit, node string) error {
	resp := new(UnitResponse)
	if err := invoke(ctx, c.conn, "/piccolo.ControlPlane/UnitStart", &UnitRequest{NodeName: node, Model: unit}, resp); err != nil {
		return err
	}
	if !resp.Accepted {
		return fmt.Errorf("unit start rejected by %s", node)
	}
	return nil
}

// UnitStop satisfies actioncontroller.FederationClient (unit, node) -> error.
func (c *ControlClient) UnitStop(ctx context.Context, unit, node string) error {
	resp := new(UnitResponse)
	if err := invoke(ctx, c.conn, "/piccolo.ControlPlane/UnitStop", &UnitRequest{NodeName: node, Model: unit}, resp); err != nil {
		return err
	}
	if !resp.Accepted {
		return fmt.Errorf("unit stop rejected by %s", node)
	}
	return nil
}

func (c *ControlClient) ControllerReloadAllNodes(ctx context.Context) error {
	resp := new(ReloadResponse)
	return invoke(ctx, c.conn, "/piccolo.ControlPlane/ReloadAllNodes", &ReloadRequest{}, resp)
}

// NodeAgentControlClient adapts a ControlClient connection to
// actioncontroller.NodeAgentClient's (model, node) -> (accepted, error)
// signature — the RPCs are identical, agent dispatch just reports whether
// the unit operation was accepted rather than returning a bare error.
type NodeAgentControlClient struct {
	conn *grpc.ClientConn
}

// NewNodeAgentControlClient wraps an established connection to a node agent.
func NewNodeAgentControlClient(conn *grpc.ClientConn) *NodeAgentControlClient {
	return &NodeAgentControlClient{conn: conn}
}

func (c *NodeAgentControlClient) UnitStart(ctx context.Context, model, node string) (bool, error) {
	resp := new(UnitResponse)
	if err := invoke(ctx, c.conn, "/piccolo.ControlPlane/UnitStart", &UnitRequest{NodeName: node, Model: model}, resp); err != nil {
		return false, err
	}
	return resp.Accepted, nil
}

func (c *NodeAgentControlClient) UnitStop(ctx context.Context, model, node string) (bool, error) {
	resp := new(UnitResponse)
	if err := invoke(ctx, c.conn, "/piccolo.ControlPlane/UnitStop", &UnitRequest{NodeName: node, Model: model}, resp); err != nil {
		return false, err
	}
	return resp.Accepted, nil
}
