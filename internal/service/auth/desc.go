package auth

import (
	"context"

	"google.golang.org/grpc"

	"github.com/oggyb/pature/internal/server"
)

const ServiceName = "pature.auth.v1.AuthService"

// AuthServer is the server API for AuthService.
type AuthServer interface {
	Register(context.Context, *RegisterRequest) (*DetailResponse, error)
	ConfirmEmail(context.Context, *ConfirmEmailRequest) (*DetailResponse, error)
	Login(context.Context, *LoginRequest) (*TokenPair, error)
	Refresh(context.Context, *RefreshRequest) (*TokenPair, error)
	Logout(context.Context, *LogoutRequest) (*DetailResponse, error)
	LogoutAll(context.Context, *LogoutAllRequest) (*LogoutAllResponse, error)
}

// ServiceDesc describes AuthService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServer)(nil),
	Methods: []grpc.MethodDesc{
		server.UnaryMethod[AuthServer, RegisterRequest, DetailResponse](ServiceName, "Register", AuthServer.Register),
		server.UnaryMethod[AuthServer, ConfirmEmailRequest, DetailResponse](ServiceName, "ConfirmEmail", AuthServer.ConfirmEmail),
		server.UnaryMethod[AuthServer, LoginRequest, TokenPair](ServiceName, "Login", AuthServer.Login),
		server.UnaryMethod[AuthServer, RefreshRequest, TokenPair](ServiceName, "Refresh", AuthServer.Refresh),
		server.UnaryMethod[AuthServer, LogoutRequest, DetailResponse](ServiceName, "Logout", AuthServer.Logout),
		server.UnaryMethod[AuthServer, LogoutAllRequest, LogoutAllResponse](ServiceName, "LogoutAll", AuthServer.LogoutAll),
	},
	Streams: []grpc.StreamDesc{},
}

// FullMethod returns "/pature.auth.v1.AuthService/<name>".
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// Client is the client API for AuthService.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*DetailResponse, error) {
	return server.Invoke[RegisterRequest, DetailResponse](ctx, c.cc, FullMethod("Register"), in, opts...)
}

func (c *Client) ConfirmEmail(ctx context.Context, in *ConfirmEmailRequest, opts ...grpc.CallOption) (*DetailResponse, error) {
	return server.Invoke[ConfirmEmailRequest, DetailResponse](ctx, c.cc, FullMethod("ConfirmEmail"), in, opts...)
}

func (c *Client) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*TokenPair, error) {
	return server.Invoke[LoginRequest, TokenPair](ctx, c.cc, FullMethod("Login"), in, opts...)
}

func (c *Client) Refresh(ctx context.Context, in *RefreshRequest, opts ...grpc.CallOption) (*TokenPair, error) {
	return server.Invoke[RefreshRequest, TokenPair](ctx, c.cc, FullMethod("Refresh"), in, opts...)
}

func (c *Client) Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*DetailResponse, error) {
	return server.Invoke[LogoutRequest, DetailResponse](ctx, c.cc, FullMethod("Logout"), in, opts...)
}

func (c *Client) LogoutAll(ctx context.Context, in *LogoutAllRequest, opts ...grpc.CallOption) (*LogoutAllResponse, error) {
	return server.Invoke[LogoutAllRequest, LogoutAllResponse](ctx, c.cc, FullMethod("LogoutAll"), in, opts...)
}
