// Package grpc exposes the account flows as the gophauth.AuthService gRPC
// service, JSON encoded, plus the standard health service.
package grpc

import (
	"context"
	"errors"
	"net"

	"github.com/dmitrijs2005/gophauth/internal/api"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/validation"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type authService interface {
	PublicKey() string
	Login(ctx context.Context, login, nonce, signature string) (string, error)
	ChangePassword(ctx context.Context, login, nonce, signature, sealedVerifier string) error
}

type registrationService interface {
	Register(ctx context.Context, login, sealedEmail, nonce, sealedVerifier string) (*models.User, error)
}

type verificationService interface {
	Redeem(ctx context.Context, token string) (*models.User, error)
	ResendVerification(ctx context.Context, sealedEmail, nonce string) (*models.User, error)
}

type recoveryService interface {
	RequestRecovery(ctx context.Context, sealedEmail, nonce string) (*models.PasswordRecover, error)
	Redeem(ctx context.Context, code int, sealedVerifier, nonce string) (*models.User, error)
}

// Services are the flows the server dispatches to.
type Services struct {
	Auth         authService
	Registration registrationService
	Verification verificationService
	Recovery     recoveryService
}

type GRPCServer struct {
	address   string
	services  Services
	tokens    *auth.TokenIssuer
	validator *validation.Validator
	metrics   *metrics.Metrics
	health    *health.Server
	logger    logging.Logger
}

// NewGRPCServer builds a server listening on address. m may be nil.
func NewGRPCServer(address string, l logging.Logger, svc Services, tokens *auth.TokenIssuer, v *validation.Validator, m *metrics.Metrics) *GRPCServer {
	return &GRPCServer{
		address:   address,
		services:  svc,
		tokens:    tokens,
		validator: v,
		metrics:   m,
		health:    health.NewServer(),
		logger:    l.With("module", "grpc_server"),
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))
	srv.RegisterService(&serviceDesc, s)
	healthpb.RegisterHealthServer(srv, s.health)
	s.health.SetServingStatus(api.ServiceName, healthpb.HealthCheckResponse_SERVING)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}

	return nil
}
