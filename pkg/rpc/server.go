package rpc

import (
	"context"
	"fmt"
	"net"

	"github.com/eclipse-pullpiri/pullpiri/pkg/log"
	"github.com/eclipse-pullpiri/pullpiri/pkg/perror"
	"github.com/eclipse-pullpiri/pullpiri/pkg/registry"
	"github.com/eclipse-pullpiri/pullpiri/pkg/statemanager"
	"github.com/eclipse-pullpiri/pullpiri/pkg/types"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
)

// MasterServer implements MasterPlane against a live Registry and state
// manager Service.
type MasterServer struct {
	registry *registry.Registry
	service  *statemanager.Service
	logger   zerolog.Logger
}

// NewMasterServer builds a MasterServer.
func NewMasterServer(reg *registry.Registry, svc *statemanager.Service) *MasterServer {
	return &MasterServer{registry: reg, service: svc, logger: log.WithComponent("rpc")}
}

func (s *MasterServer) RegisterNode(ctx context.Context, req *RegisterNodeRequest) (*RegisterNodeResponse, error) {
	if _, err := s.registry.Register(ctx, req.Node); err != nil {
		return nil, s.wireError("register_node", err)
	}
	clusterID, err := s.registry.ClusterID(ctx)
	if err != nil {
		return nil, s.wireError("register_node", err)
	}
	return &RegisterNodeResponse{ClusterID: clusterID}, nil
}

func (s *MasterServer) Heartbeat(ctx context.Context, req *HeartbeatRequest) (*HeartbeatResponse, error) {
	if _, err := s.registry.UpdateStatus(ctx, req.NodeID, req.Status, &req.Resources); err != nil {
		return nil, s.wireError("heartbeat", err)
	}
	return &HeartbeatResponse{}, nil
}

// wireError logs err tagged with its perror.Kind-derived wire error code
// before returning it to grpc, so an operator reading server logs sees the
// same classification a client would get back over SendStateChange.
func (s *MasterServer) wireError(rpc string, err error) error {
	s.logger.Error().Err(err).Str("rpc", rpc).Str("error_code", string(perror.Code(err))).Msg("rpc handler failed")
	return err
}

func (s *MasterServer) SubmitStateChange(ctx context.Context, req *StateChangeRequest) (*StateChangeResponse, error) {
	s.service.SubmitStateChange(req.Change)
	return &StateChangeResponse{Result: types.TransitionResult{Success: true, TransitionID: req.Change.TransitionID}}, nil
}

func (s *MasterServer) SubmitContainerList(ctx context.Context, req *ContainerListRequest) (*ContainerListResponse, error) {
	s.service.SubmitContainerList(req.List)
	return &ContainerListResponse{}, nil
}

// Serve starts a grpc.Server on addr with the MasterPlane service
// registered, blocking until the listener errors or the server stops.
func (s *MasterServer) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	grpcServer := grpc.NewServer()
	RegisterMasterPlaneServer(grpcServer, s)
	s.logger.Info().Str("addr", addr).Msg("master plane listening")
	return grpcServer.Serve(lis)
}

// UnitHandler implements ControlPlane for a single host: it adapts whatever
// local dispatcher (node agent intake, federation unit client) the host
// actually runs into the wire contract.
type UnitHandler struct {
	Start  func(ctx context.Context, model, node, target string) (bool, error)
	Stop   func(ctx context.Context, model, node string) (bool, error)
	Reload func(ctx context.Context) error
}

func (h UnitHandler) UnitStart(ctx context.Context, req *UnitRequest) (*UnitResponse, error) {
	accepted, err := h.Start(ctx, req.Model, req.NodeName, req.Target)
	if err != nil {
		return nil, err
	}
	return &UnitResponse{Accepted: accepted}, nil
}

func (h UnitHandler) UnitStop(ctx context.Context, req *UnitRequest) (*UnitResponse, error) {
	accepted, err := h.Stop(ctx, req.Model, req.NodeName)
	if err != nil {
		return nil, err
	}
	return &UnitResponse{Accepted: accepted}, nil
}

func (h UnitHandler) ReloadAllNodes(ctx context.Context, _ *ReloadRequest) (*ReloadResponse, error) {
	if h.Reload == nil {
		return &ReloadResponse{}, nil
	}
	return &ReloadResponse{}, h.Reload(ctx)
}

// ServeControlPlane starts a grpc.Server on addr with h registered as the
// ControlPlane implementation.
func ServeControlPlane(addr string, h UnitHandler) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	grpcServer := grpc.NewServer()
	RegisterControlPlaneServer(grpcServer, h)
	return grpcServer.Serve(lis)
}
