// Package rpc exposes the navigator over gRPC. Messages are
// google.protobuf.Struct values and the service descriptor is declared here
// rather than generated.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "adalia.navigator.v1.NavigatorService"

// Fully qualified method names.
const (
	GetBodiesMethod     = "/" + ServiceName + "/GetBodies"
	GetPositionMethod   = "/" + ServiceName + "/GetPosition"
	GetOrbitMethod      = "/" + ServiceName + "/GetOrbit"
	GetCurrentDayMethod = "/" + ServiceName + "/GetCurrentDay"
	PlanRouteMethod     = "/" + ServiceName + "/PlanRoute"
)

// NavigatorServer is the server API for NavigatorService.
type NavigatorServer interface {
	GetBodies(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPosition(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetOrbit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCurrentDay(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PlanRoute(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(NavigatorServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(NavigatorServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(NavigatorServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes NavigatorService for grpc.Server registration.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*NavigatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetBodies", Handler: unaryHandler(GetBodiesMethod, NavigatorServer.GetBodies)},
		{MethodName: "GetPosition", Handler: unaryHandler(GetPositionMethod, NavigatorServer.GetPosition)},
		{MethodName: "GetOrbit", Handler: unaryHandler(GetOrbitMethod, NavigatorServer.GetOrbit)},
		{MethodName: "GetCurrentDay", Handler: unaryHandler(GetCurrentDayMethod, NavigatorServer.GetCurrentDay)},
		{MethodName: "PlanRoute", Handler: unaryHandler(PlanRouteMethod, NavigatorServer.PlanRoute)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "adalia/navigator/v1/navigator.proto",
}

// RegisterNavigatorServer registers srv on s.
func RegisterNavigatorServer(s grpc.ServiceRegistrar, srv NavigatorServer) {
	s.RegisterService(&ServiceDesc, srv)
}
