// Package cryptox holds the credential primitives shared by the server and
// its clients: password verifier derivation, the login signature, and the
// RSA-OAEP envelope used to move secrets over an untrusted channel.
package cryptox

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"golang.org/x/crypto/argon2"
)

const publicKeyPEMType = "PUBLIC KEY"

// DeriveMasterKey stretches a password with argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// MakeVerifier hashes a derived key once more so the stored value cannot be
// used to recompute the key.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

// DerivePasswordVerifier returns the hex verifier a client registers for
// login/password. The salt is bound to the lower-cased login so the same
// password yields different verifiers for different accounts.
func DerivePasswordVerifier(login string, password []byte) string {
	salt := sha256.Sum256([]byte("gophauth:" + strings.ToLower(login)))
	key := DeriveMasterKey(password, salt[:])
	defer common.WipeByteArray(key)
	return hex.EncodeToString(MakeVerifier(key))
}

// Signature is the login proof: lowercase hex SHA-256 of
// login ++ nonce ++ verifier.
func Signature(login, nonce, verifier string) string {
	h := sha256.New()
	h.Write([]byte(login))
	h.Write([]byte(nonce))
	h.Write([]byte(verifier))
	return hex.EncodeToString(h.Sum(nil))
}

// NewNonce returns 16 random bytes, hex encoded.
func NewNonce() (string, error) {
	return common.MakeRandHexString(16)
}

// EncryptOAEP encrypts plaintext with RSA-OAEP/SHA-256 and returns standard base64.
func EncryptOAEP(pub *rsa.PublicKey, plaintext []byte) (string, error) {
	ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plaintext, nil)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}

// DecryptOAEP reverses EncryptOAEP.
func DecryptOAEP(priv *rsa.PrivateKey, ciphertext string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return rsa.DecryptOAEP(sha256.New(), nil, priv, raw, nil)
}

// EncodePublicKeyPEM exports pub as a PKIX "PUBLIC KEY" PEM block.
func EncodePublicKeyPEM(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: publicKeyPEMType, Bytes: der})), nil
}

// ParsePublicKeyPEM parses the output of EncodePublicKeyPEM.
func ParsePublicKeyPEM(s string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(s))
	if block == nil || block.Type != publicKeyPEMType {
		return nil, errors.New("no public key PEM block")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("unexpected public key type %T", key)
	}
	return pub, nil
}

// Seal encrypts nonce ++ secret for the holder of publicKeyPEM. The nonce
// prefix makes two seals of the same secret differ even for a deterministic
// observer.
func Seal(publicKeyPEM, nonce, secret string) (string, error) {
	pub, err := ParsePublicKeyPEM(publicKeyPEM)
	if err != nil {
		return "", err
	}
	return EncryptOAEP(pub, []byte(nonce+secret))
}
