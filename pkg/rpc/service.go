package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// MasterPlane is the set of RPCs a node agent calls against the cluster's
// state manager host.
type MasterPlane interface {
	RegisterNode(ctx context.Context, req *RegisterNodeRequest) (*RegisterNodeResponse, error)
	Heartbeat(ctx context.Context, req *HeartbeatRequest) (*HeartbeatResponse, error)
	SubmitStateChange(ctx context.Context, req *StateChangeRequest) (*StateChangeResponse, error)
	SubmitContainerList(ctx context.Context, req *ContainerListRequest) (*ContainerListResponse, error)
}

// ControlPlane is the set of RPCs the Action Controller calls against a
// node agent or a federation member to carry out a dispatch.
type ControlPlane interface {
	UnitStart(ctx context.Context, req *UnitRequest) (*UnitResponse, error)
	UnitStop(ctx context.Context, req *UnitRequest) (*UnitResponse, error)
	ReloadAllNodes(ctx context.Context, req *ReloadRequest) (*ReloadResponse, error)
}

func decodeInto(dec func(any) error, v any) error { return dec(v) }

var masterPlaneServiceDesc = grpc.ServiceDesc{
	ServiceName: "piccolo.MasterPlane",
	HandlerType: (*MasterPlane)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RegisterNode", Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
			req := new(RegisterNodeRequest)
			if err := decodeInto(dec, req); err != nil {
				return nil, err
			}
			return srv.(MasterPlane).RegisterNode(ctx, req)
		}},
		{MethodName: "Heartbeat", Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
			req := new(HeartbeatRequest)
			if err := decodeInto(dec, req); err != nil {
				return nil, err
			}
			return srv.(MasterPlane).Heartbeat(ctx, req)
		}},
		{MethodName: "SubmitStateChange", Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
			req := new(StateChangeRequest)
			if err := decodeInto(dec, req); err != nil {
				return nil, err
			}
			return srv.(MasterPlane).SubmitStateChange(ctx, req)
		}},
		{MethodName: "SubmitContainerList", Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
			req := new(ContainerListRequest)
			if err := decodeInto(dec, req); err != nil {
				return nil, err
			}
			return srv.(MasterPlane).SubmitContainerList(ctx, req)
		}},
	},
	Metadata: "piccolo/masterplane.proto",
}

var controlPlaneServiceDesc = grpc.ServiceDesc{
	ServiceName: "piccolo.ControlPlane",
	HandlerType: (*ControlPlane)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "UnitStart", Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
			req := new(UnitRequest)
			if err := decodeInto(dec, req); err != nil {
				return nil, err
			}
			return srv.(ControlPlane).UnitStart(ctx, req)
		}},
		{MethodName: "UnitStop", Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
			req := new(UnitRequest)
			if err := decodeInto(dec, req); err != nil {
				return nil, err
			}
			return srv.(ControlPlane).UnitStop(ctx, req)
		}},
		{MethodName: "ReloadAllNodes", Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
			req := new(ReloadRequest)
			if err := decodeInto(dec, req); err != nil {
				return nil, err
			}
			return srv.(ControlPlane).ReloadAllNodes(ctx, req)
		}},
	},
	Metadata: "piccolo/controlplane.proto",
}

// RegisterMasterPlaneServer registers srv's RPCs on a grpc.Server.
func RegisterMasterPlaneServer(s *grpc.Server, srv MasterPlane) {
	s.RegisterService(&masterPlaneServiceDesc, srv)
}

// RegisterControlPlaneServer registers srv's RPCs on a grpc.Server.
func RegisterControlPlaneServer(s *grpc.Server, srv ControlPlane) {
	s.RegisterService(&controlPlaneServiceDesc, srv)
}
