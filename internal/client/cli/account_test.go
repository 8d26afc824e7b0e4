package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(c *fakeClient) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	return &App{client: c, out: &out, reader: bufio.NewReader(strings.NewReader(""))}, &out
}

func TestRegister_SealsEmailAndVerifier(t *testing.T) {
	c := &fakeClient{}
	a, out := newTestApp(c)
	stubNonce(t, "n-1")
	stubInputs(t, map[string]string{"Enter login": "alice", "Enter email": "alice@example.org"}, "secret")

	require.NoError(t, a.Register(context.Background()))

	assert.Equal(t, "alice", c.login)
	assert.Equal(t, "n-1", c.nonce)
	assert.Equal(t, "n-1alice@example.org", opened(t, c.sealedEmail))
	assert.Equal(t, "n-1"+cryptox.DerivePasswordVerifier("alice", []byte("secret")), opened(t, c.sealedVer))
	assert.Contains(t, out.String(), "Registered!")
}

func TestRegister_EmptyPassword(t *testing.T) {
	c := &fakeClient{}
	a, _ := newTestApp(c)
	stubInputs(t, map[string]string{"Enter login": "alice", "Enter email": "alice@example.org"}, "")

	assert.Error(t, a.Register(context.Background()))
	assert.Empty(t, c.calls)
}

func TestRegister_ServerError(t *testing.T) {
	c := &fakeClient{err: common.ErrLoginTaken}
	a, _ := newTestApp(c)
	stubInputs(t, map[string]string{"Enter login": "alice", "Enter email": "alice@example.org"}, "secret")

	assert.ErrorIs(t, a.Register(context.Background()), common.ErrLoginTaken)
}

func TestPublicKey_FetchedOnce(t *testing.T) {
	c := &fakeClient{}
	a, out := newTestApp(c)

	require.NoError(t, a.PublicKey(context.Background()))
	require.NoError(t, a.PublicKey(context.Background()))

	assert.Equal(t, 1, c.pubKeyCalls)
	assert.Contains(t, out.String(), "BEGIN PUBLIC KEY")
}

func TestLogin_SignsWithVerifier(t *testing.T) {
	c := &fakeClient{}
	a, _ := newTestApp(c)
	stubNonce(t, "n-2")
	stubInputs(t, map[string]string{"Enter login": "alice"}, "secret")

	require.NoError(t, a.Login(context.Background()))

	verifier := cryptox.DerivePasswordVerifier("alice", []byte("secret"))
	assert.Equal(t, cryptox.Signature("alice", "n-2", verifier), c.signature)
	assert.True(t, a.isLoggedIn())
	assert.Equal(t, "alice", a.userName)
	assert.Equal(t, 0, c.pubKeyCalls)

	require.NoError(t, a.Logout(context.Background()))
	assert.False(t, a.isLoggedIn())
}

func TestLogin_Rejected(t *testing.T) {
	c := &fakeClient{err: common.ErrNoMatch}
	a, _ := newTestApp(c)
	stubInputs(t, map[string]string{"Enter login": "alice"}, "wrong")

	assert.ErrorIs(t, a.Login(context.Background()), common.ErrNoMatch)
	assert.False(t, a.isLoggedIn())
}

func TestVerify(t *testing.T) {
	c := &fakeClient{}
	a, out := newTestApp(c)
	stubInputs(t, map[string]string{"Enter verification token": "aaa.bbb.ccc"})

	require.NoError(t, a.Verify(context.Background()))
	assert.Equal(t, "aaa.bbb.ccc", c.token)
	assert.Contains(t, out.String(), "Email of alice is verified.")
}

func TestVerify_AlreadyVerified(t *testing.T) {
	c := &fakeClient{alreadyVerified: true}
	a, out := newTestApp(c)
	stubInputs(t, map[string]string{"Enter verification token": "aaa.bbb.ccc"})

	require.NoError(t, a.Verify(context.Background()))
	assert.Contains(t, out.String(), "Email of alice was already verified.")
}

func TestResendAndForgot_SealEmail(t *testing.T) {
	c := &fakeClient{}
	a, _ := newTestApp(c)
	stubNonce(t, "n-3")
	stubInputs(t, map[string]string{"Enter email": " alice@example.org "})

	require.NoError(t, a.Resend(context.Background()))
	assert.Equal(t, "n-3alice@example.org", opened(t, c.sealedEmail))

	require.NoError(t, a.Forgot(context.Background()))
	assert.Equal(t, []string{"resend", "forgot"}, c.calls)
	assert.Equal(t, "n-3", c.nonce)
}

func TestRecover(t *testing.T) {
	c := &fakeClient{}
	a, _ := newTestApp(c)
	stubNonce(t, "n-4")
	stubInputs(t, map[string]string{"Enter access code": "123456", "Enter login": "alice"}, "fresh")

	require.NoError(t, a.Recover(context.Background()))
	assert.Equal(t, 123456, c.code)
	assert.Equal(t, "n-4"+cryptox.DerivePasswordVerifier("alice", []byte("fresh")), opened(t, c.sealedVer))
}

func TestRecover_BadCode(t *testing.T) {
	c := &fakeClient{}
	a, _ := newTestApp(c)
	stubInputs(t, map[string]string{"Enter access code": "12ab"})

	assert.Error(t, a.Recover(context.Background()))
	assert.Empty(t, c.calls)
}

func TestPasswd(t *testing.T) {
	t.Run("requires login", func(t *testing.T) {
		a, _ := newTestApp(&fakeClient{})
		assert.ErrorIs(t, a.Passwd(context.Background()), errNotLoggedIn)
	})

	t.Run("signs with current, seals new", func(t *testing.T) {
		c := &fakeClient{}
		a, _ := newTestApp(c)
		a.accessToken, a.userName = "session-token", "alice"
		stubNonce(t, "n-5")
		stubInputs(t, nil, "old", "new")

		require.NoError(t, a.Passwd(context.Background()))

		old := cryptox.DerivePasswordVerifier("alice", []byte("old"))
		assert.Equal(t, "session-token", c.accessToken)
		assert.Equal(t, cryptox.Signature("alice", "n-5", old), c.signature)
		assert.Equal(t, "n-5"+cryptox.DerivePasswordVerifier("alice", []byte("new")), opened(t, c.sealedVer))
	})

	t.Run("expired session is dropped", func(t *testing.T) {
		c := &fakeClient{err: common.ErrTokenExpired}
		a, out := newTestApp(c)
		a.accessToken, a.userName = "session-token", "alice"
		stubInputs(t, nil, "old", "new")

		err := a.Passwd(context.Background())
		assert.True(t, errors.Is(err, common.ErrTokenExpired))
		assert.False(t, a.isLoggedIn())
		assert.Contains(t, out.String(), "log in again")
	})
}
