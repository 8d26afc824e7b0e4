// Package passwordrecovers stores password-reset access codes.
package passwordrecovers

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, p *models.PasswordRecover) error
	// FindActiveByCode returns at most limit unconsumed records with the given
	// code created at or after notBefore.
	FindActiveByCode(ctx context.Context, code int, notBefore time.Time, limit int) ([]models.PasswordRecover, error)
	// MarkConsumed sets consumed_at on an unconsumed record and reports
	// whether this call consumed it.
	MarkConsumed(ctx context.Context, id string, at time.Time) (bool, error)
}
