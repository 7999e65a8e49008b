package actioncontroller

import "context"

// FederationClient is the systemd-federation controller RPC surface the
// Action Controller dispatches workload lifecycle operations to for nodes
// classified as federation-managed.
type FederationClient interface {
	UnitStart(ctx context.Context, unit, node string) error
	UnitStop(ctx context.Context, unit, node string) error
	ControllerReloadAllNodes(ctx context.Context) error
}

// NodeAgentClient is the per-node agent RPC surface for nodes classified
// as agent-managed. accepted is the remote side's answer; the controller
// treats accepted=false as a failed start/stop. StubNodeAgentClient and
// the agent's own unit handler always accept.
type NodeAgentClient interface {
	UnitStart(ctx context.Context, model, node string) (accepted bool, err error)
	UnitStop(ctx context.Context, model, node string) (accepted bool, err error)
}

// StubNodeAgentClient is the default NodeAgentClient: every call succeeds
// without doing anything, matching the node-agent runtime's documented
// stub status.
type StubNodeAgentClient struct{}

func (StubNodeAgentClient) UnitStart(context.Context, string, string) (bool, error) { return true, nil }
func (StubNodeAgentClient) UnitStop(context.Context, string, string) (bool, error)  { return true, nil }

// StubFederationClient is a no-op FederationClient, for deployments that
// run no federation-managed nodes.
type StubFederationClient struct{}

func (StubFederationClient) UnitStart(context.Context, string, string) error { return nil }
func (StubFederationClient) UnitStop(context.Context, string, string) error  { return nil }
func (StubFederationClient) ControllerReloadAllNodes(context.Context) error  { return nil }
