package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophauth/internal/api"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) GetPublicKey(ctx context.Context, _ *api.Empty) (*api.GetPublicKeyResponse, error) {
	return &api.GetPublicKeyResponse{PublicKey: s.services.Auth.PublicKey()}, nil
}

func (s *GRPCServer) Register(ctx context.Context, req *api.RegisterRequest) (*api.RegisterResponse, error) {

	s.logger.Info(ctx, "Registration request", "login", req.Login)

	var user *models.User
	err := s.validator.Struct(req)
	if err == nil {
		user, err = s.services.Registration.Register(ctx, req.Login, req.Email, req.Nonce, req.Verifier)
	}
	s.metrics.Registration(err)

	if err != nil {
		return nil, s.fail(ctx, api.MethodRegister, err)
	}

	return &api.RegisterResponse{UserID: user.ID, Login: user.Login}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *api.LoginRequest) (*api.LoginResponse, error) {

	var token string
	err := s.validator.Struct(req)
	if err == nil {
		token, err = s.services.Auth.Login(ctx, req.Login, req.Nonce, req.Signature)
	}
	s.metrics.Login(err)

	if err != nil {
		return nil, s.fail(ctx, api.MethodLogin, err)
	}

	return &api.LoginResponse{AccessToken: token}, nil
}

func (s *GRPCServer) RedeemVerification(ctx context.Context, req *api.RedeemVerificationRequest) (*api.RedeemVerificationResponse, error) {

	var user *models.User
	err := s.validator.Struct(req)
	if err == nil {
		user, err = s.services.Verification.Redeem(ctx, req.Token)
	}
	s.metrics.EmailVerification(err)

	if errors.Is(err, common.ErrAlreadyVerified) && user != nil {
		return &api.RedeemVerificationResponse{Login: user.Login, Verified: true, AlreadyVerified: true}, nil
	}
	if err != nil {
		return nil, s.fail(ctx, api.MethodRedeemVerification, err)
	}

	return &api.RedeemVerificationResponse{Login: user.Login, Verified: user.IsVerified()}, nil
}

func (s *GRPCServer) ResendVerification(ctx context.Context, req *api.SealedEmailRequest) (*api.Empty, error) {

	err := s.validator.Struct(req)
	if err == nil {
		_, err = s.services.Verification.ResendVerification(ctx, req.Email, req.Nonce)
	}

	if err != nil {
		return nil, s.fail(ctx, api.MethodResendVerification, err)
	}

	return &api.Empty{}, nil
}

// ForgotPassword mails an access code. The code itself is never returned.
func (s *GRPCServer) ForgotPassword(ctx context.Context, req *api.SealedEmailRequest) (*api.Empty, error) {

	err := s.validator.Struct(req)
	if err == nil {
		_, err = s.services.Recovery.RequestRecovery(ctx, req.Email, req.Nonce)
	}
	s.metrics.PasswordRecovery(metrics.StageRequest, err)

	if err != nil {
		return nil, s.fail(ctx, api.MethodForgotPassword, err)
	}

	return &api.Empty{}, nil
}

func (s *GRPCServer) RecoverPassword(ctx context.Context, req *api.RecoverPasswordRequest) (*api.Empty, error) {

	err := s.validator.Struct(req)
	if err == nil {
		_, err = s.services.Recovery.Redeem(ctx, req.AccessCode, req.Verifier, req.Nonce)
	}
	s.metrics.PasswordRecovery(metrics.StageRedeem, err)

	if err != nil {
		return nil, s.fail(ctx, api.MethodRecoverPassword, err)
	}

	return &api.Empty{}, nil
}

func (s *GRPCServer) ChangePassword(ctx context.Context, req *api.ChangePasswordRequest) (*api.Empty, error) {

	login := loginFromContext(ctx)
	if login == "" {
		return nil, status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
	}

	err := s.validator.Struct(req)
	if err == nil {
		err = s.services.Auth.ChangePassword(ctx, login, req.Nonce, req.Signature, req.Verifier)
	}
	s.metrics.PasswordChange(err)

	if err != nil {
		return nil, s.fail(ctx, api.MethodChangePassword, err)
	}

	return &api.Empty{}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, _ *api.Empty) (*api.PingResponse, error) {
	return &api.PingResponse{Status: "OK"}, nil
}

// fail logs err and converts it to a status. Server faults are logged as
// errors, client faults at info level.
func (s *GRPCServer) fail(ctx context.Context, method string, err error) error {
	st := api.ToStatus(err)
	switch status.Code(st) {
	case codes.Internal, codes.Unavailable:
		s.logger.Error(ctx, "request failed", "method", method, "error", err)
	default:
		s.logger.Info(ctx, "request rejected", "method", method, "reason", status.Convert(st).Message())
	}
	return st
}
