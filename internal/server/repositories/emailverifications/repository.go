// Package emailverifications stores issued email-verification tokens.
// Records are never updated or deleted; they stay as an audit trail.
package emailverifications

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, v *models.EmailVerification) error
	GetByToken(ctx context.Context, token string) (*models.EmailVerification, error)
}
