package grpc

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/api"
	"google.golang.org/grpc"
)

// authServer is implemented by GRPCServer; serviceDesc routes to it.
type authServer interface {
	GetPublicKey(context.Context, *api.Empty) (*api.GetPublicKeyResponse, error)
	Register(context.Context, *api.RegisterRequest) (*api.RegisterResponse, error)
	Login(context.Context, *api.LoginRequest) (*api.LoginResponse, error)
	RedeemVerification(context.Context, *api.RedeemVerificationRequest) (*api.RedeemVerificationResponse, error)
	ResendVerification(context.Context, *api.SealedEmailRequest) (*api.Empty, error)
	ForgotPassword(context.Context, *api.SealedEmailRequest) (*api.Empty, error)
	RecoverPassword(context.Context, *api.RecoverPasswordRequest) (*api.Empty, error)
	ChangePassword(context.Context, *api.ChangePasswordRequest) (*api.Empty, error)
	Ping(context.Context, *api.Empty) (*api.PingResponse, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: api.ServiceName,
	HandlerType: (*authServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(api.MethodGetPublicKey, authServer.GetPublicKey),
		unary(api.MethodRegister, authServer.Register),
		unary(api.MethodLogin, authServer.Login),
		unary(api.MethodRedeemVerification, authServer.RedeemVerification),
		unary(api.MethodResendVerification, authServer.ResendVerification),
		unary(api.MethodForgotPassword, authServer.ForgotPassword),
		unary(api.MethodRecoverPassword, authServer.RecoverPassword),
		unary(api.MethodChangePassword, authServer.ChangePassword),
		unary(api.MethodPing, authServer.Ping),
	},
	Metadata: "gophauth/auth.proto",
}

// unary adapts a typed method to a grpc.MethodDesc, decoding the request
// with the negotiated codec and running the server interceptor chain.
func unary[Req, Resp any](method string, call func(authServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(authServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: api.FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(authServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
