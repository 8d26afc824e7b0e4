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

// maxCodeMatches bounds the code lookup: two rows are enough to tell
// "exactly one" from "ambiguous".
const maxCodeMatches = 2

// newAccessCode is a seam for tests.
var newAccessCode = common.NewAccessCode

// RecoveryService issues and redeems one-time numeric access codes for
// password replacement. Only Verified users may request or redeem them.
type RecoveryService struct {
	deps     Deps
	validity time.Duration
	logger   logging.Logger
	now      func() time.Time
}

func NewRecoveryService(d Deps, cfg *config.Config) (*RecoveryService, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	return &RecoveryService{
		deps:     d,
		validity: cfg.AccessCodeValidityDuration,
		logger:   d.Logger.With("module", "recovery_service"),
		now:      newClock(),
	}, nil
}

// RequestRecovery resolves the sealed email to a user and issues a code for it.
// An unknown email yields common.ErrorNotFound.
func (s *RecoveryService) RequestRecovery(ctx context.Context, sealedEmail, nonce string) (*models.PasswordRecover, error) {
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

	return s.Issue(ctx, user)
}

// Issue draws a fresh code for user, stores it and mails it. Outstanding
// codes of the same user are left as they are.
func (s *RecoveryService) Issue(ctx context.Context, user *models.User) (*models.PasswordRecover, error) {
	if !user.IsVerified() {
		return nil, common.ErrNotVerified
	}

	code, err := newAccessCode()
	if err != nil {
		s.logger.Error(ctx, "error generating access code", "error", err)
		return nil, common.ErrorInternal
	}

	rec := &models.PasswordRecover{ID: uuid.NewString(), UserID: user.ID, AccessCode: code, CreatedAt: s.now()}
	if err := s.deps.Repos.PasswordRecovers(s.deps.DB).Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("error creating password recover: %w", err)
	}

	s.logger.Info(ctx, "Access code issued", "login", user.Login, "user_id", user.ID)

	m, buildErr := s.deps.Messages.AccessCode(user, code)
	if err := notify(ctx, s.deps, s.logger, m, buildErr); err != nil {
		return rec, err
	}
	return rec, nil
}

// Lookup returns the single active record for code. No active record yields
// common.ErrCodeExpiredOrUnknown; more than one yields common.ErrAmbiguousCode.
func (s *RecoveryService) Lookup(ctx context.Context, code int) (*models.PasswordRecover, error) {
	if code < common.AccessCodeMin || code > common.AccessCodeMax {
		return nil, common.ErrCodeExpiredOrUnknown
	}

	now := s.now()
	recs, err := s.deps.Repos.PasswordRecovers(s.deps.DB).FindActiveByCode(ctx, code, now.Add(-s.validity), maxCodeMatches)
	if err != nil {
		return nil, fmt.Errorf("error searching access code: %w", err)
	}

	var active []models.PasswordRecover
	for _, r := range recs {
		if r.ActiveAt(now, s.validity) {
			active = append(active, r)
		}
	}

	switch len(active) {
	case 0:
		return nil, common.ErrCodeExpiredOrUnknown
	case 1:
		return &active[0], nil
	default:
		s.logger.Warn(ctx, "Ambiguous access code rejected", "matches", len(active))
		return nil, common.ErrAmbiguousCode
	}
}

// Redeem consumes code and replaces the owner's verifier with the sealed one.
// The code is consumed and the verifier updated in one transaction, so each
// code succeeds at most once.
func (s *RecoveryService) Redeem(ctx context.Context, code int, sealedVerifier, nonce string) (*models.User, error) {
	rec, err := s.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}

	user, err := s.deps.Repos.Users(s.deps.DB).GetUserByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrCodeExpiredOrUnknown
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if !user.IsVerified() {
		return nil, common.ErrNotVerified
	}

	verifier, err := unsealVerifier(s.deps.Keys, s.deps.Validator, sealedVerifier, nonce)
	if err != nil {
		return nil, err
	}

	err = dbx.WithTx(ctx, s.deps.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		consumed, err := s.deps.Repos.PasswordRecovers(tx).MarkConsumed(ctx, rec.ID, s.now())
		if err != nil {
			return fmt.Errorf("error consuming access code: %w", err)
		}
		if !consumed {
			return common.ErrCodeExpiredOrUnknown
		}
		if err := s.deps.Repos.Users(tx).UpdateVerifier(ctx, user.ID, verifier); err != nil {
			return fmt.Errorf("error updating verifier: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	user.Verifier = verifier
	s.logger.Info(ctx, "Password recovered", "login", user.Login, "user_id", user.ID)
	return user, nil
}
