// Package lifecycle internal RPC used by the identity gateway to drive the user directory.
// Messages are protobuf well known types so no generated code is needed.
package lifecycle

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName full grpc service name
const ServiceName = "chatplatform.directory.UserLifecycle"

const (
	createUserMethod      = "/" + ServiceName + "/CreateUser"
	updateUserImageMethod = "/" + ServiceName + "/UpdateUserImage"
	setUserOnlineMethod   = "/" + ServiceName + "/SetUserOnline"
	setUserOfflineMethod  = "/" + ServiceName + "/SetUserOffline"
)

// UserLifecycleServer server side of the lifecycle service
type UserLifecycleServer interface {
	CreateUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateUserImage(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	SetUserOnline(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	SetUserOffline(context.Context, *structpb.Struct) (*emptypb.Empty, error)
}

// RegisterUserLifecycleServer register srv on s
func RegisterUserLifecycleServer(s grpc.ServiceRegistrar, srv UserLifecycleServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc grpc.ServiceDesc of UserLifecycle
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*UserLifecycleServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateUser", Handler: createUserHandler},
		{MethodName: "UpdateUserImage", Handler: updateUserImageHandler},
		{MethodName: "SetUserOnline", Handler: setUserOnlineHandler},
		{MethodName: "SetUserOffline", Handler: setUserOfflineHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lifecycle.proto",
}

func createUserHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(UserLifecycleServer).CreateUser(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: createUserMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(UserLifecycleServer).CreateUser(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// emptyHandler shared decode / intercept path of the methods returning Empty
func emptyHandler(method string, call func(UserLifecycleServer, context.Context, *structpb.Struct) (*emptypb.Empty, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(UserLifecycleServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(UserLifecycleServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var (
	updateUserImageHandler = emptyHandler(updateUserImageMethod, UserLifecycleServer.UpdateUserImage)
	setUserOnlineHandler   = emptyHandler(setUserOnlineMethod, UserLifecycleServer.SetUserOnline)
	setUserOfflineHandler  = emptyHandler(setUserOfflineMethod, UserLifecycleServer.SetUserOffline)
)

// UserLifecycleClient client side of the lifecycle service
type UserLifecycleClient interface {
	CreateUser(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	UpdateUserImage(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	SetUserOnline(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	SetUserOffline(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type userLifecycleClient struct {
	cc grpc.ClientConnInterface
}

// NewUserLifecycleClient wrap a client connection
func NewUserLifecycleClient(cc grpc.ClientConnInterface) UserLifecycleClient {
	return &userLifecycleClient{cc: cc}
}

func (c *userLifecycleClient) CreateUser(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, createUserMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *userLifecycleClient) UpdateUserImage(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return c.invokeEmpty(ctx, updateUserImageMethod, in, opts...)
}

func (c *userLifecycleClient) SetUserOnline(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return c.invokeEmpty(ctx, setUserOnlineMethod, in, opts...)
}

func (c *userLifecycleClient) SetUserOffline(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return c.invokeEmpty(ctx, setUserOfflineMethod, in, opts...)
}

func (c *userLifecycleClient) invokeEmpty(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
