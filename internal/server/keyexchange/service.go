// Package keyexchange holds the server's RSA keypair. Clients fetch the
// public key, seal secrets (emails, password verifiers) with it, and the
// server opens them here. The private key never leaves this package.
package keyexchange

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
)

// Service encrypts and decrypts payloads under one keypair.
// It is immutable after construction and safe for concurrent use.
type Service struct {
	priv      *rsa.PrivateKey
	publicPEM string
}

// New wraps an existing private key.
func New(priv *rsa.PrivateKey) (*Service, error) {
	if priv == nil {
		return nil, errors.New("nil private key")
	}
	if err := priv.Validate(); err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	pemStr, err := cryptox.EncodePublicKeyPEM(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("export public key: %w", err)
	}
	return &Service{priv: priv, publicPEM: pemStr}, nil
}

// NewFromSource loads the private key from src and wraps it.
func NewFromSource(ctx context.Context, src Source) (*Service, error) {
	priv, err := src.PrivateKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("load private key: %w", err)
	}
	return New(priv)
}

// PublicKey returns the public half as a PKIX PEM string.
func (s *Service) PublicKey() string {
	return s.publicPEM
}

// Encrypt seals plaintext for this service; the result is base64.
func (s *Service) Encrypt(plaintext string) (string, error) {
	return cryptox.EncryptOAEP(&s.priv.PublicKey, []byte(plaintext))
}

// Decrypt opens a base64 ciphertext. Any decoding or decryption failure is
// reported as common.ErrMalformedCiphertext without further detail. The
// decrypted buffer is zeroed once copied out.
func (s *Service) Decrypt(ciphertext string) (string, error) {
	pt, err := cryptox.DecryptOAEP(s.priv, strings.TrimSpace(ciphertext))
	if err != nil {
		return "", common.ErrMalformedCiphertext
	}
	defer common.WipeByteArray(pt)
	return string(pt), nil
}

// Unseal decrypts a nonce-prefixed payload and strips exactly that prefix.
// An empty nonce or a plaintext that does not start with it yields
// common.ErrNonceMismatch.
func (s *Service) Unseal(ciphertext, nonce string) (string, error) {
	pt, err := s.Decrypt(ciphertext)
	if err != nil {
		return "", err
	}
	if nonce == "" {
		return "", common.ErrNonceMismatch
	}
	secret, ok := strings.CutPrefix(pt, nonce)
	if !ok {
		return "", common.ErrNonceMismatch
	}
	return secret, nil
}
