package cli

import (
	"bufio"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/stretchr/testify/require"
)

var testKey = sync.OnceValue(func() *rsa.PrivateKey {
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return k
})

// fakeClient records the arguments of the last call of each method.
type fakeClient struct {
	err     error
	pingErr error

	pubKeyCalls int
	calls       []string

	login, nonce, signature string
	sealedEmail, sealedVer  string
	token, accessToken      string
	code                    int
	alreadyVerified         bool
}

func (f *fakeClient) Close() error { return nil }

func (f *fakeClient) PublicKey(ctx context.Context) (string, error) {
	f.pubKeyCalls++
	return cryptox.EncodePublicKeyPEM(&testKey().PublicKey)
}

func (f *fakeClient) Register(ctx context.Context, login, sealedEmail, nonce, sealedVerifier string) (string, error) {
	f.calls = append(f.calls, "register")
	f.login, f.sealedEmail, f.nonce, f.sealedVer = login, sealedEmail, nonce, sealedVerifier
	return "u-1", f.err
}

func (f *fakeClient) Login(ctx context.Context, login, nonce, signature string) (string, error) {
	f.calls = append(f.calls, "login")
	f.login, f.nonce, f.signature = login, nonce, signature
	if f.err != nil {
		return "", f.err
	}
	return "session-token", nil
}

func (f *fakeClient) RedeemVerification(ctx context.Context, token string) (string, bool, error) {
	f.calls = append(f.calls, "verify")
	f.token = token
	return "alice", f.alreadyVerified, f.err
}

func (f *fakeClient) ResendVerification(ctx context.Context, sealedEmail, nonce string) error {
	f.calls = append(f.calls, "resend")
	f.sealedEmail, f.nonce = sealedEmail, nonce
	return f.err
}

func (f *fakeClient) ForgotPassword(ctx context.Context, sealedEmail, nonce string) error {
	f.calls = append(f.calls, "forgot")
	f.sealedEmail, f.nonce = sealedEmail, nonce
	return f.err
}

func (f *fakeClient) RecoverPassword(ctx context.Context, code int, sealedVerifier, nonce string) error {
	f.calls = append(f.calls, "recover")
	f.code, f.sealedVer, f.nonce = code, sealedVerifier, nonce
	return f.err
}

func (f *fakeClient) ChangePassword(ctx context.Context, accessToken, nonce, signature, sealedVerifier string) error {
	f.calls = append(f.calls, "passwd")
	f.accessToken, f.nonce, f.signature, f.sealedVer = accessToken, nonce, signature, sealedVerifier
	return f.err
}

func (f *fakeClient) Ping(ctx context.Context) error { return f.pingErr }

// stubInputs answers prompts from the given maps. Passwords are consumed in
// order so that "current" and "new" can differ.
func stubInputs(t *testing.T, answers map[string]string, passwords ...string) {
	t.Helper()
	origST, origGP, origGN := getSimpleText, getPassword, getNumber

	getSimpleText = func(_ *bufio.Reader, prompt string, _ io.Writer) (string, error) {
		v, ok := answers[prompt]
		if !ok {
			t.Fatalf("unexpected prompt %q", prompt)
		}
		return v, nil
	}
	getNumber = func(r *bufio.Reader, prompt string, w io.Writer) (int, error) {
		return GetNumber(bufio.NewReader(strings.NewReader(answers[prompt]+"\n")), prompt, w)
	}
	getPassword = func(_ string, _ io.Writer) ([]byte, error) {
		if len(passwords) == 0 {
			t.Fatal("no more passwords")
		}
		pw := passwords[0]
		passwords = passwords[1:]
		return []byte(pw), nil
	}

	t.Cleanup(func() {
		getSimpleText, getPassword, getNumber = origST, origGP, origGN
	})
}

func stubNonce(t *testing.T, nonce string) {
	t.Helper()
	orig := newNonce
	newNonce = func() (string, error) { return nonce, nil }
	t.Cleanup(func() { newNonce = orig })
}

// opened decrypts a sealed value with the test key.
func opened(t *testing.T, sealed string) string {
	t.Helper()
	plain, err := cryptox.DecryptOAEP(testKey(), sealed)
	require.NoError(t, err)
	return string(plain)
}
