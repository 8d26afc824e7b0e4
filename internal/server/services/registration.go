package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

// RegistrationService creates pending accounts.
type RegistrationService struct {
	deps     Deps
	emailTTL time.Duration
	logger   logging.Logger
	now      func() time.Time
}

func NewRegistrationService(d Deps, cfg *config.Config) (*RegistrationService, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	return &RegistrationService{
		deps:     d,
		emailTTL: cfg.EmailTokenValidityDuration,
		logger:   d.Logger.With("module", "registration_service"),
		now:      newClock(),
	}, nil
}

// Register creates a NotVerified user and its first email-verification
// token, then mails the token. Checks run in a fixed order: login taken,
// email well formed, email taken.
//
// If the user is stored but the mail cannot be sent, the user is returned
// together with an error wrapping common.ErrNotificationFailed.
func (s *RegistrationService) Register(ctx context.Context, login, sealedEmail, nonce, sealedVerifier string) (*models.User, error) {
	if err := s.deps.Validator.Login(login); err != nil {
		return nil, err
	}

	repo := s.deps.Repos.Users(s.deps.DB)

	_, err := repo.GetUserByLogin(ctx, login)
	if err := s.ensureFree(ctx, err, common.ErrLoginTaken); err != nil {
		return nil, err
	}

	email, err := unsealEmail(s.deps.Keys, s.deps.Validator, sealedEmail, nonce)
	if err != nil {
		return nil, err
	}

	_, err = repo.GetUserByEmail(ctx, email)
	if err := s.ensureFree(ctx, err, common.ErrEmailTaken); err != nil {
		return nil, err
	}

	verifier, err := unsealVerifier(s.deps.Keys, s.deps.Validator, sealedVerifier, nonce)
	if err != nil {
		return nil, err
	}

	token, err := s.deps.Tokens.Issue(login, s.emailTTL)
	if err != nil {
		s.logger.Error(ctx, "error issuing verification token", "error", err)
		return nil, common.ErrorInternal
	}

	now := s.now()
	user := &models.User{
		ID:           uuid.NewString(),
		Login:        login,
		Email:        email,
		Verifier:     verifier,
		State:        models.NotVerified,
		RegisteredAt: now,
	}

	err = dbx.WithTx(ctx, s.deps.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.deps.Repos.Users(tx).Create(ctx, user)
		if err != nil {
			return err
		}
		user = created

		v := &models.EmailVerification{ID: uuid.NewString(), UserID: user.ID, Token: token, CreatedAt: now}
		if err := s.deps.Repos.EmailVerifications(tx).Create(ctx, v); err != nil {
			return fmt.Errorf("error creating email verification: %w", err)
		}
		return nil
	})
	if err != nil {
		// a concurrent registration won the unique constraint
		if errors.Is(err, common.ErrLoginTaken) || errors.Is(err, common.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "User registered", "login", user.Login, "user_id", user.ID)

	m, buildErr := s.deps.Messages.Verification(user, token)
	if err := notify(ctx, s.deps, s.logger, m, buildErr); err != nil {
		return user, err
	}
	return user, nil
}

// ensureFree maps the error of a uniqueness lookup: a found record means taken.
func (s *RegistrationService) ensureFree(ctx context.Context, err error, taken error) error {
	switch {
	case err == nil:
		return taken
	case errors.Is(err, common.ErrorNotFound):
		return nil
	default:
		s.logger.Error(ctx, "error searching user", "error", err)
		return fmt.Errorf("error searching user: %w", err)
	}
}
