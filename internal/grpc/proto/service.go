package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName полное имя gRPC сервиса
const ServiceName = "linkgate.v1.Redirector"

// Полные имена методов
const (
	ResolveMethod   = "/" + ServiceName + "/Resolve"
	CreateURLMethod = "/" + ServiceName + "/CreateURL"
	PingMethod      = "/" + ServiceName + "/Ping"
)

// RedirectorServer представляет интерфейс gRPC сервиса
type RedirectorServer interface {
	Resolve(ctx context.Context, req *ResolveRequest) (*ResolveResponse, error)
	CreateURL(ctx context.Context, req *CreateURLRequest) (*CreateURLResponse, error)
	Ping(ctx context.Context, req *PingRequest) (*PingResponse, error)
}

// UnimplementedRedirectorServer возвращает codes.Unimplemented для всех методов
type UnimplementedRedirectorServer struct{}

// Resolve не реализован
func (UnimplementedRedirectorServer) Resolve(context.Context, *ResolveRequest) (*ResolveResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Resolve not implemented")
}

// CreateURL не реализован
func (UnimplementedRedirectorServer) CreateURL(context.Context, *CreateURLRequest) (*CreateURLResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateURL not implemented")
}

// Ping не реализован
func (UnimplementedRedirectorServer) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Ping not implemented")
}

func resolveHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ResolveRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RedirectorServer).Resolve(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ResolveMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RedirectorServer).Resolve(ctx, req.(*ResolveRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func createURLHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CreateURLRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RedirectorServer).CreateURL(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CreateURLMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RedirectorServer).CreateURL(ctx, req.(*CreateURLRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func pingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PingRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RedirectorServer).Ping(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PingMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RedirectorServer).Ping(ctx, req.(*PingRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// RedirectorServiceDesc описание сервиса для grpc.Server
var RedirectorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RedirectorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Resolve", Handler: resolveHandler},
		{MethodName: "CreateURL", Handler: createURLHandler},
		{MethodName: "Ping", Handler: pingHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "linkgate/v1/redirector",
}

// RegisterRedirectorServer регистрирует реализацию сервиса в gRPC сервере
func RegisterRedirectorServer(s grpc.ServiceRegistrar, srv RedirectorServer) {
	s.RegisterService(&RedirectorServiceDesc, srv)
}

// RedirectorClient клиент сервиса; вызовы идут с JSON-кодеком
type RedirectorClient struct {
	cc grpc.ClientConnInterface
}

// NewRedirectorClient создаёт клиент поверх соединения
func NewRedirectorClient(cc grpc.ClientConnInterface) *RedirectorClient {
	return &RedirectorClient{cc: cc}
}

// Resolve вызывает метод Resolve
func (c *RedirectorClient) Resolve(ctx context.Context, in *ResolveRequest, opts ...grpc.CallOption) (*ResolveResponse, error) {
	out := new(ResolveResponse)
	if err := c.cc.Invoke(ctx, ResolveMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateURL вызывает метод CreateURL
func (c *RedirectorClient) CreateURL(ctx context.Context, in *CreateURLRequest, opts ...grpc.CallOption) (*CreateURLResponse, error) {
	out := new(CreateURLResponse)
	if err := c.cc.Invoke(ctx, CreateURLMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// Ping вызывает метод Ping
func (c *RedirectorClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	out := new(PingResponse)
	if err := c.cc.Invoke(ctx, PingMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}
