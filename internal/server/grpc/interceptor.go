package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/api"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const loginKey ctxKey = "login"

// protected lists the methods that require a session token.
var protected = map[string]bool{
	api.FullMethod(api.MethodChangePassword): true,
}

// accessTokenInterceptor resolves the session token of protected methods and
// stores its subject in the context.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {

	if protected[info.FullMethod] {

		var accessToken string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			values := md.Get(common.AccessTokenHeaderName)
			if len(values) > 0 {
				accessToken = values[0]
			}
		}
		if len(accessToken) == 0 {
			return nil, api.ToStatus(common.ErrInvalidToken)
		}

		login, err := s.tokens.Subject(accessToken)
		if err != nil {
			return nil, api.ToStatus(err)
		}

		ctx = context.WithValue(ctx, loginKey, login)
	}

	return handler(ctx, req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Info(ctx, "gRPC call",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start))
	return resp, err
}

func loginFromContext(ctx context.Context) string {
	login, _ := ctx.Value(loginKey).(string)
	return login
}
