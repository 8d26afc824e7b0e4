package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/challenge"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
)

// AuthService handles login and password change for existing accounts.
type AuthService struct {
	deps     Deps
	authn    *challenge.Authenticator
	loginTTL time.Duration
	logger   logging.Logger
}

func NewAuthService(d Deps, cfg *config.Config) (*AuthService, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	return &AuthService{
		deps:     d,
		authn:    challenge.NewAuthenticator(),
		loginTTL: cfg.LoginTokenValidityDuration,
		logger:   d.Logger.With("module", "auth_service"),
	}, nil
}

// PublicKey returns the PEM public key clients seal payloads with.
func (s *AuthService) PublicKey() string {
	return s.deps.Keys.PublicKey()
}

// Login checks signature = hash(login ++ nonce ++ verifier) and returns a
// session token whose subject is the login. With an empty login every stored
// credential is a candidate. Unknown logins and wrong signatures both yield
// common.ErrNoMatch.
func (s *AuthService) Login(ctx context.Context, login, nonce, signature string) (string, error) {
	candidates, err := s.candidates(ctx, login)
	if err != nil {
		return "", err
	}

	c, err := s.authn.Authenticate(slices.Values(candidates), nonce, signature)
	if err != nil {
		return "", err
	}

	if err := s.claim(ctx, c, "login", nonce); err != nil {
		return "", err
	}

	token, err := s.deps.Tokens.Issue(c.Login, s.loginTTL)
	if err != nil {
		s.logger.Error(ctx, "error issuing session token", "login", c.Login, "error", err)
		return "", common.ErrorInternal
	}

	s.logger.Info(ctx, "User logged in", "login", c.Login, "user_id", c.UserID)
	return token, nil
}

// ChangePassword replaces the verifier of login. The caller proves knowledge
// of the current password with a fresh signature; the new verifier arrives
// sealed with the same nonce.
func (s *AuthService) ChangePassword(ctx context.Context, login, nonce, signature, sealedVerifier string) error {
	if login == "" {
		return common.ErrNoMatch
	}
	candidates, err := s.candidates(ctx, login)
	if err != nil {
		return err
	}

	c, err := s.authn.Authenticate(slices.Values(candidates), nonce, signature)
	if err != nil {
		return err
	}

	verifier, err := unsealVerifier(s.deps.Keys, s.deps.Validator, sealedVerifier, nonce)
	if err != nil {
		return err
	}

	if err := s.claim(ctx, c, "passwd", nonce); err != nil {
		return err
	}

	if err := s.deps.Repos.Users(s.deps.DB).UpdateVerifier(ctx, c.UserID, verifier); err != nil {
		return fmt.Errorf("error updating verifier: %w", err)
	}

	s.logger.Info(ctx, "Password changed", "login", c.Login, "user_id", c.UserID)
	return nil
}

func (s *AuthService) candidates(ctx context.Context, login string) ([]challenge.Candidate, error) {
	repo := s.deps.Repos.Users(s.deps.DB)

	if login != "" {
		user, err := repo.GetUserByLogin(ctx, login)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, common.ErrNoMatch
			}
			return nil, fmt.Errorf("error searching user: %w", err)
		}
		return []challenge.Candidate{challenge.FromUser(user)}, nil
	}

	users, err := repo.ListCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing credentials: %w", err)
	}
	out := make([]challenge.Candidate, 0, len(users))
	for i := range users {
		out = append(out, challenge.FromUser(&users[i]))
	}
	return out, nil
}

// claim spends nonce for the candidate. The redis guard, when configured,
// turns away replays early; the used_nonces table is authoritative and
// never forgets a nonce.
func (s *AuthService) claim(ctx context.Context, c challenge.Candidate, scope, nonce string) error {
	if s.deps.Guard != nil {
		if err := s.deps.Guard.Claim(ctx, scope+":"+c.Login, nonce); err != nil {
			if !errors.Is(err, common.ErrNonceReused) {
				s.logger.Error(ctx, "nonce guard unavailable", "error", err)
			}
			return err
		}
	}

	fresh, err := s.deps.Repos.Users(s.deps.DB).ClaimNonce(ctx, c.UserID, scope, nonce)
	if err != nil {
		return fmt.Errorf("error recording nonce: %w", err)
	}
	if !fresh {
		s.logger.Warn(ctx, "Replayed nonce rejected", "login", c.Login, "scope", scope)
		return common.ErrNonceReused
	}
	return nil
}
