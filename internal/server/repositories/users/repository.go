// Package users stores accounts. Login and email are unique; a uniqueness
// conflict surfaces as common.ErrLoginTaken or common.ErrEmailTaken.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// ListCredentials returns every account; only identity, login, verifier
	// and state are filled in.
	ListCredentials(ctx context.Context) ([]models.User, error)
	// MarkVerified flips a NotVerified user to Verified and reports whether
	// this call made the transition.
	MarkVerified(ctx context.Context, id string) (bool, error)
	UpdateVerifier(ctx context.Context, id string, verifier string) error
	// ClaimNonce records nonce as spent for the user within scope and
	// reports false when it was spent before.
	ClaimNonce(ctx context.Context, id, scope, nonce string) (bool, error)
}
