// Package services contains the server-side account flows: registration,
// email verification, password recovery, login and password change. Each
// service works over the repositories of a repomanager.RepositoryManager and
// runs multi-record writes in a single transaction.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/mail"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/validation"
)

// KeyExchange opens payloads clients sealed with the server public key.
type KeyExchange interface {
	PublicKey() string
	Decrypt(ciphertext string) (string, error)
	Unseal(ciphertext, nonce string) (string, error)
}

// NonceGuard rejects a nonce seen before within its scope.
type NonceGuard interface {
	Claim(ctx context.Context, scope, nonce string) error
}

// Deps are the collaborators shared by all services. Guard is optional.
type Deps struct {
	DB        *sql.DB
	Repos     repomanager.RepositoryManager
	Keys      KeyExchange
	Tokens    *auth.TokenIssuer
	Guard     NonceGuard
	Mailer    mail.Sender
	Messages  *mail.Builder
	Validator *validation.Validator
	Logger    logging.Logger
}

func (d Deps) check() error {
	switch {
	case d.DB == nil:
		return errors.New("services: nil DB")
	case d.Repos == nil:
		return errors.New("services: nil repository manager")
	case d.Keys == nil:
		return errors.New("services: nil key exchange")
	case d.Tokens == nil:
		return errors.New("services: nil token issuer")
	case d.Mailer == nil || d.Messages == nil:
		return errors.New("services: nil mailer")
	case d.Validator == nil:
		return errors.New("services: nil validator")
	case d.Logger == nil:
		return errors.New("services: nil logger")
	}
	return nil
}

// unsealEmail opens a sealed email and normalizes it to lower case.
func unsealEmail(keys KeyExchange, v *validation.Validator, sealed, nonce string) (string, error) {
	email, err := keys.Unseal(sealed, nonce)
	if err != nil {
		return "", err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := v.Email(email); err != nil {
		return "", err
	}
	return email, nil
}

// unsealVerifier opens a password verifier. Clients may encrypt the bare
// verifier or seal it behind the request nonce like other secrets; a
// plaintext that is itself a well-formed verifier is taken as is.
func unsealVerifier(keys KeyExchange, v *validation.Validator, sealed, nonce string) (string, error) {
	plain, err := keys.Decrypt(sealed)
	if err != nil {
		return "", err
	}
	if v.Verifier(plain) == nil {
		return plain, nil
	}

	verifier, ok := strings.CutPrefix(plain, nonce)
	if nonce == "" || !ok {
		return "", common.ErrNonceMismatch
	}
	if err := v.Verifier(verifier); err != nil {
		return "", err
	}
	return verifier, nil
}

// notify sends m and turns a delivery failure into common.ErrNotificationFailed.
// State changes made before the call are kept.
func notify(ctx context.Context, d Deps, logger logging.Logger, m mail.Message, buildErr error) error {
	if buildErr != nil {
		logger.Error(ctx, "error rendering message", "error", buildErr)
		return fmt.Errorf("%w: %v", common.ErrNotificationFailed, buildErr)
	}
	if err := d.Mailer.Send(ctx, m); err != nil {
		logger.Error(ctx, "error sending message", "to", m.RecipientEmail, "subject", m.Subject, "error", err)
		return fmt.Errorf("%w: %v", common.ErrNotificationFailed, err)
	}
	return nil
}

func newClock() func() time.Time {
	return func() time.Time { return time.Now().UTC() }
}
