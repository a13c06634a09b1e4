package reaction

import (
	"context"

	"google.golang.org/grpc"

	"github.com/oggyb/pature/internal/server"
)

const ServiceName = "pature.reaction.v1.ReactionService"

// ReactionServer is the server API for ReactionService.
type ReactionServer interface {
	LikeAnimal(context.Context, *ReactRequest) (*ReactionResult, error)
	DislikeAnimal(context.Context, *ReactRequest) (*ReactionResult, error)
	ListOutgoingLikes(context.Context, *ListRequest) (*ListOutgoingLikesResponse, error)
	ListIncomingLikes(context.Context, *ListRequest) (*ListIncomingLikesResponse, error)
	CountIncomingLikes(context.Context, *CountIncomingLikesRequest) (*CountIncomingLikesResponse, error)
	ListMatches(context.Context, *ListRequest) (*ListMatchesResponse, error)
}

// ServiceDesc describes ReactionService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReactionServer)(nil),
	Methods: []grpc.MethodDesc{
		server.UnaryMethod[ReactionServer, ReactRequest, ReactionResult](ServiceName, "LikeAnimal", ReactionServer.LikeAnimal),
		server.UnaryMethod[ReactionServer, ReactRequest, ReactionResult](ServiceName, "DislikeAnimal", ReactionServer.DislikeAnimal),
		server.UnaryMethod[ReactionServer, ListRequest, ListOutgoingLikesResponse](ServiceName, "ListOutgoingLikes", ReactionServer.ListOutgoingLikes),
		server.UnaryMethod[ReactionServer, ListRequest, ListIncomingLikesResponse](ServiceName, "ListIncomingLikes", ReactionServer.ListIncomingLikes),
		server.UnaryMethod[ReactionServer, CountIncomingLikesRequest, CountIncomingLikesResponse](ServiceName, "CountIncomingLikes", ReactionServer.CountIncomingLikes),
		server.UnaryMethod[ReactionServer, ListRequest, ListMatchesResponse](ServiceName, "ListMatches", ReactionServer.ListMatches),
	},
	Streams: []grpc.StreamDesc{},
}

// FullMethod returns "/pature.reaction.v1.ReactionService/<name>".
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// Client is the client API for ReactionService.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) LikeAnimal(ctx context.Context, in *ReactRequest, opts ...grpc.CallOption) (*ReactionResult, error) {
	return server.Invoke[ReactRequest, ReactionResult](ctx, c.cc, FullMethod("LikeAnimal"), in, opts...)
}

func (c *Client) DislikeAnimal(ctx context.Context, in *ReactRequest, opts ...grpc.CallOption) (*ReactionResult, error) {
	return server.Invoke[ReactRequest, ReactionResult](ctx, c.cc, FullMethod("DislikeAnimal"), in, opts...)
}

func (c *Client) ListOutgoingLikes(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListOutgoingLikesResponse, error) {
	return server.Invoke[ListRequest, ListOutgoingLikesResponse](ctx, c.cc, FullMethod("ListOutgoingLikes"), in, opts...)
}

func (c *Client) ListIncomingLikes(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListIncomingLikesResponse, error) {
	return server.Invoke[ListRequest, ListIncomingLikesResponse](ctx, c.cc, FullMethod("ListIncomingLikes"), in, opts...)
}

func (c *Client) CountIncomingLikes(ctx context.Context, in *CountIncomingLikesRequest, opts ...grpc.CallOption) (*CountIncomingLikesResponse, error) {
	return server.Invoke[CountIncomingLikesRequest, CountIncomingLikesResponse](ctx, c.cc, FullMethod("CountIncomingLikes"), in, opts...)
}

func (c *Client) ListMatches(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListMatchesResponse, error) {
	return server.Invoke[ListRequest, ListMatchesResponse](ctx, c.cc, FullMethod("ListMatches"), in, opts...)
}
