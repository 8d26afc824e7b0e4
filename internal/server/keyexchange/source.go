package keyexchange

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// Source yields the RSA private key the service runs with.
type Source interface {
	PrivateKey(ctx context.Context) (*rsa.PrivateKey, error)
}

// GenerateSource creates a fresh key on every start. Previously sealed
// payloads cannot be opened after a restart, which is fine for payloads that
// are only ever sealed right before a request.
type GenerateSource struct {
	Bits int
}

func (g GenerateSource) PrivateKey(ctx context.Context) (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, g.Bits)
}

// FileSource reads a PEM encoded key (PKCS#1 or PKCS#8) from disk.
type FileSource struct {
	Path string
}

func (f FileSource) PrivateKey(ctx context.Context) (*rsa.PrivateKey, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	return ParsePrivateKeyPEM(b)
}

// ParsePrivateKeyPEM accepts "RSA PRIVATE KEY" (PKCS#1) and "PRIVATE KEY" (PKCS#8) blocks.
func ParsePrivateKeyPEM(b []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		priv, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("unsupported private key type %T", key)
		}
		return priv, nil
	default:
		return nil, fmt.Errorf("unsupported PEM block %q", block.Type)
	}
}

// EncodePrivateKeyPEM writes priv as a PKCS#1 PEM block.
func EncodePrivateKeyPEM(priv *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})
}
