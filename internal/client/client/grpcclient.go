package client

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/api"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

// NewGRPCClient connects to endpoint without transport security. Extra
// options are appended, e.g. a custom dialer in tests.
func NewGRPCClient(endpoint string, opts ...grpc.DialOption) (*GRPCClient, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(api.CodecName)),
	}, opts...)

	conn, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return nil, err
	}
	return &GRPCClient{conn: conn, cc: conn}, nil
}

func (s *GRPCClient) invoke(ctx context.Context, method string, req, resp any) error {
	err := s.cc.Invoke(ctx, api.FullMethod(method), req, resp, grpc.CallContentSubtype(api.CodecName))
	return s.mapError(err)
}

func (s *GRPCClient) PublicKey(ctx context.Context) (string, error) {
	resp := &api.GetPublicKeyResponse{}
	if err := s.invoke(ctx, api.MethodGetPublicKey, &api.Empty{}, resp); err != nil {
		return "", err
	}
	return resp.PublicKey, nil
}

func (s *GRPCClient) Register(ctx context.Context, login, sealedEmail, nonce, sealedVerifier string) (string, error) {
	req := &api.RegisterRequest{Login: login, Email: sealedEmail, Nonce: nonce, Verifier: sealedVerifier}
	resp := &api.RegisterResponse{}
	if err := s.invoke(ctx, api.MethodRegister, req, resp); err != nil {
		return "", err
	}
	return resp.UserID, nil
}

// Login returns the session token.
func (s *GRPCClient) Login(ctx context.Context, login, nonce, signature string) (string, error) {
	req := &api.LoginRequest{Login: login, Nonce: nonce, Signature: signature}
	resp := &api.LoginResponse{}
	if err := s.invoke(ctx, api.MethodLogin, req, resp); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// RedeemVerification returns the login of the verified account and whether
// it had been verified already.
func (s *GRPCClient) RedeemVerification(ctx context.Context, token string) (string, bool, error) {
	resp := &api.RedeemVerificationResponse{}
	if err := s.invoke(ctx, api.MethodRedeemVerification, &api.RedeemVerificationRequest{Token: token}, resp); err != nil {
		return "", false, err
	}
	return resp.Login, resp.AlreadyVerified, nil
}

func (s *GRPCClient) ResendVerification(ctx context.Context, sealedEmail, nonce string) error {
	return s.invoke(ctx, api.MethodResendVerification, &api.SealedEmailRequest{Email: sealedEmail, Nonce: nonce}, &api.Empty{})
}

func (s *GRPCClient) ForgotPassword(ctx context.Context, sealedEmail, nonce string) error {
	return s.invoke(ctx, api.MethodForgotPassword, &api.SealedEmailRequest{Email: sealedEmail, Nonce: nonce}, &api.Empty{})
}

func (s *GRPCClient) RecoverPassword(ctx context.Context, code int, sealedVerifier, nonce string) error {
	req := &api.RecoverPasswordRequest{AccessCode: code, Verifier: sealedVerifier, Nonce: nonce}
	return s.invoke(ctx, api.MethodRecoverPassword, req, &api.Empty{})
}

func (s *GRPCClient) ChangePassword(ctx context.Context, accessToken, nonce, signature, sealedVerifier string) error {
	ctx = withAccessToken(ctx, accessToken)
	req := &api.ChangePasswordRequest{Nonce: nonce, Signature: signature, Verifier: sealedVerifier}
	return s.invoke(ctx, api.MethodChangePassword, req, &api.Empty{})
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp := &api.PingResponse{}
	if err := s.invoke(ctx, api.MethodPing, &api.Empty{}, resp); err != nil {
		return err
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	mapped := api.FromStatus(err)
	if mapped != err {
		return mapped
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
