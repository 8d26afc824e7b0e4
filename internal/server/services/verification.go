package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

// VerificationService moves users from NotVerified to Verified. A user may
// hold several outstanding tokens; redeeming any one of them is enough and
// the rest become moot.
type VerificationService struct {
	deps     Deps
	emailTTL time.Duration
	logger   logging.Logger
	now      func() time.Time
}

func NewVerificationService(d Deps, cfg *config.Config) (*VerificationService, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	return &VerificationService{
		deps:     d,
		emailTTL: cfg.EmailTokenValidityDuration,
		logger:   d.Logger.With("module", "verification_service"),
		now:      newClock(),
	}, nil
}

// Redeem verifies the owner of token. Outcomes:
//   - common.ErrUnknownToken: no such token was issued;
//   - common.ErrOwnerMismatch: the owner cannot be resolved or is not the token subject;
//   - common.ErrAlreadyVerified: the owner is verified already (the user is returned too);
//   - common.ErrSignatureInvalid: the token is forged or expired.
//
// On success the user is Verified and a welcome message is sent. A failed
// send is reported as common.ErrNotificationFailed but does not undo the
// transition.
func (s *VerificationService) Redeem(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, common.ErrUnknownToken
	}

	v, err := s.deps.Repos.EmailVerifications(s.deps.DB).GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUnknownToken
		}
		return nil, fmt.Errorf("error searching verification token: %w", err)
	}

	users := s.deps.Repos.Users(s.deps.DB)

	user, err := users.GetUserByID(ctx, v.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrOwnerMismatch
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if user.IsVerified() {
		return user, common.ErrAlreadyVerified
	}

	subject, err := s.deps.Tokens.Subject(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrSignatureInvalid, err)
	}
	if subject != user.Login {
		return nil, common.ErrOwnerMismatch
	}

	changed, err := users.MarkVerified(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("error updating user: %w", err)
	}
	if !changed {
		// a sibling token was redeemed concurrently
		user.State = models.Verified
		return user, common.ErrAlreadyVerified
	}
	user.State = models.Verified

	s.logger.Info(ctx, "Email verified", "login", user.Login, "user_id", user.ID)

	m, buildErr := s.deps.Messages.Welcome(user)
	if err := notify(ctx, s.deps, s.logger, m, buildErr); err != nil {
		return user, err
	}
	return user, nil
}

// ResendVerification issues an additional token for the NotVerified owner of
// the sealed email. Earlier tokens stay valid.
func (s *VerificationService) ResendVerification(ctx context.Context, sealedEmail, nonce string) (*models.User, error) {
	email, err := unsealEmail(s.deps.Keys, s.deps.Validator, sealedEmail, nonce)
	if err != nil {
		return nil, err
	}

	user, err := s.deps.Repos.Users(s.deps.DB).GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if user.IsVerified() {
		return user, common.ErrAlreadyVerified
	}

	token, err := s.deps.Tokens.Issue(user.Login, s.emailTTL)
	if err != nil {
		s.logger.Error(ctx, "error issuing verification token", "error", err)
		return nil, common.ErrorInternal
	}

	v := &models.EmailVerification{ID: uuid.NewString(), UserID: user.ID, Token: token, CreatedAt: s.now()}
	if err := s.deps.Repos.EmailVerifications(s.deps.DB).Create(ctx, v); err != nil {
		return nil, fmt.Errorf("error creating email verification: %w", err)
	}

	s.logger.Info(ctx, "Verification resent", "login", user.Login, "user_id", user.ID)

	m, buildErr := s.deps.Messages.Verification(user, token)
	if err := notify(ctx, s.deps, s.logger, m, buildErr); err != nil {
		return user, err
	}
	return user, nil
}
