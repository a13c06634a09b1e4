package server

import (
	"context"

	"google.golang.org/grpc"
)

// UnaryMethod builds a grpc.MethodDesc for a handler on service S that
// takes *Req and returns *Resp. It stands in for generated stubs.
func UnaryMethod[S any, Req any, Resp any](
	service, name string,
	call func(srv S, ctx context.Context, req *Req) (*Resp, error),
) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(S), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Invoke performs a unary call with the JSON codec.
func Invoke[Req any, Resp any](
	ctx context.Context,
	cc grpc.ClientConnInterface,
	fullMethod string,
	in *Req,
	opts ...grpc.CallOption,
) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
