package client

import (
	"context"
)

// Client is the transport-agnostic contract of the gophauth backend.
// Secrets are passed in already sealed; see cryptox.Seal.
type Client interface {
	Close() error
	PublicKey(ctx context.Context) (string, error)
	Register(ctx context.Context, login, sealedEmail, nonce, sealedVerifier string) (string, error)
	Login(ctx context.Context, login, nonce, signature string) (string, error)
	RedeemVerification(ctx context.Context, token string) (login string, alreadyVerified bool, err error)
	ResendVerification(ctx context.Context, sealedEmail, nonce string) error
	ForgotPassword(ctx context.Context, sealedEmail, nonce string) error
	RecoverPassword(ctx context.Context, code int, sealedVerifier, nonce string) error
	ChangePassword(ctx context.Context, accessToken, nonce, signature, sealedVerifier string) error
	Ping(ctx context.Context) error
}
