package passwordrecovers

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.PasswordRecover) error {
	query :=
		`INSERT INTO password_recovers (id, user_id, access_code, created_at)
		 VALUES ($1, $2, $3, $4)
		 `

	_, err := r.db.ExecContext(ctx, query, p.ID, p.UserID, p.AccessCode, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) FindActiveByCode(ctx context.Context, code int, notBefore time.Time, limit int) ([]models.PasswordRecover, error) {
	query :=
		`SELECT id, user_id, access_code, created_at FROM password_recovers
		 WHERE access_code = $1 AND created_at >= $2 AND consumed_at IS NULL
		 ORDER BY created_at DESC
		 LIMIT $3
		 `

	rows, err := r.db.QueryContext(ctx, query, code, notBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.PasswordRecover
	for rows.Next() {
		var p models.PasswordRecover
		if err := rows.Scan(&p.ID, &p.UserID, &p.AccessCode, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) MarkConsumed(ctx context.Context, id string, at time.Time) (bool, error) {
	query :=
		`UPDATE password_recovers SET consumed_at = $2
		 WHERE id = $1 AND consumed_at IS NULL
		 `

	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := dbx.RowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
