package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
)

// Input indirections, swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getNumber     = GetNumber
)

var errNotLoggedIn = errors.New("not logged in")

func (a *App) PublicKey(ctx context.Context) error {
	ctx, cancel := a.rpc(ctx)
	defer cancel()

	key, err := a.serverKey(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, key)
	return nil
}

// verifier asks for a password and derives the verifier for login. The
// password itself is wiped before returning.
func (a *App) verifier(login, prompt string) (string, error) {
	password, err := getPassword(prompt, a.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(password)

	if len(password) == 0 {
		return "", errors.New("password must not be empty")
	}
	return cryptox.DerivePasswordVerifier(login, password), nil
}

// Register creates an account. The server mails a verification link to the
// given address.
func (a *App) Register(ctx context.Context) error {
	login, err := getSimpleText(a.reader, "Enter login", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	verifier, err := a.verifier(login, "Enter password")
	if err != nil {
		return err
	}

	ctx, cancel := a.rpc(ctx)
	defer cancel()

	nonce, sealed, err := a.seal(ctx, email, verifier)
	if err != nil {
		return err
	}

	if _, err := a.client.Register(ctx, login, sealed[0], nonce, sealed[1]); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Registered! Check your mailbox for the verification link.")
	return nil
}

func (a *App) Verify(ctx context.Context) error {
	token, err := getSimpleText(a.reader, "Enter verification token", a.out)
	if err != nil {
		return err
	}

	ctx, cancel := a.rpc(ctx)
	defer cancel()

	login, already, err := a.client.RedeemVerification(ctx, token)
	if err != nil {
		return err
	}

	if already {
		fmt.Fprintf(a.out, "Email of %s was already verified.\n", login)
		return nil
	}
	fmt.Fprintf(a.out, "Email of %s is verified.\n", login)
	return nil
}

func (a *App) Resend(ctx context.Context) error {
	return a.sendEmail(ctx, a.client.ResendVerification, "A new verification link is on its way.")
}

func (a *App) Forgot(ctx context.Context) error {
	return a.sendEmail(ctx, a.client.ForgotPassword, "An access code is on its way.")
}

func (a *App) sendEmail(ctx context.Context, call func(ctx context.Context, sealedEmail, nonce string) error, done string) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	ctx, cancel := a.rpc(ctx)
	defer cancel()

	nonce, sealed, err := a.seal(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}
	if err := call(ctx, sealed[0], nonce); err != nil {
		return err
	}
	fmt.Fprintln(a.out, done)
	return nil
}

// Login proves knowledge of the password without sending it and keeps the
// session token for later commands.
func (a *App) Login(ctx context.Context) error {
	login, err := getSimpleText(a.reader, "Enter login", a.out)
	if err != nil {
		return err
	}
	verifier, err := a.verifier(login, "Enter password")
	if err != nil {
		return err
	}

	ctx, cancel := a.rpc(ctx)
	defer cancel()

	nonce, err := newNonce()
	if err != nil {
		return err
	}

	token, err := a.client.Login(ctx, login, nonce, cryptox.Signature(login, nonce, verifier))
	if err != nil {
		return err
	}

	a.accessToken = token
	a.userName = login
	fmt.Fprintln(a.out, "Login successful")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.accessToken = ""
	a.userName = ""
	return nil
}

// Recover sets a new password using the mailed access code. The login is
// needed because verifiers are salted with it.
func (a *App) Recover(ctx context.Context) error {
	code, err := getNumber(a.reader, "Enter access code", a.out)
	if err != nil {
		return err
	}
	login, err := getSimpleText(a.reader, "Enter login", a.out)
	if err != nil {
		return err
	}
	verifier, err := a.verifier(login, "Enter new password")
	if err != nil {
		return err
	}

	ctx, cancel := a.rpc(ctx)
	defer cancel()

	nonce, sealed, err := a.seal(ctx, verifier)
	if err != nil {
		return err
	}

	if err := a.client.RecoverPassword(ctx, code, sealed[0], nonce); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Password changed. You can log in now.")
	return nil
}

// Passwd changes the password of the logged in user. The current password
// signs the request, the new verifier travels sealed.
func (a *App) Passwd(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}

	current, err := a.verifier(a.userName, "Enter current password")
	if err != nil {
		return err
	}
	next, err := a.verifier(a.userName, "Enter new password")
	if err != nil {
		return err
	}

	ctx, cancel := a.rpc(ctx)
	defer cancel()

	nonce, sealed, err := a.seal(ctx, next)
	if err != nil {
		return err
	}

	err = a.client.ChangePassword(ctx, a.accessToken, nonce, cryptox.Signature(a.userName, nonce, current), sealed[0])
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) || errors.Is(err, common.ErrInvalidToken) {
			a.accessToken = ""
			fmt.Fprintln(a.out, "Session expired, please log in again.")
		}
		return err
	}

	fmt.Fprintln(a.out, "Password changed.")
	return nil
}
