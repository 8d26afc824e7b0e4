package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Constraint names from the users migration.
const (
	loginConstraint = "users_login_key"
	emailConstraint = "users_email_key"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (id, login, email, verifier, verification_state, registered_at)
         VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING registered_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Login, user.Email, user.Verifier, string(user.State), user.RegisteredAt).Scan(&user.RegisteredAt)

	if err != nil {
		if taken := uniqueViolation(err); taken != nil {
			return nil, taken
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `SELECT id, login, email, verifier, verification_state, registered_at FROM users
		 WHERE id = $1
		 `, id)
}

func (r *PostgresRepository) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	return r.getOne(ctx, `SELECT id, login, email, verifier, verification_state, registered_at FROM users
		 WHERE login = $1
		 `, login)
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT id, login, email, verifier, verification_state, registered_at FROM users
		 WHERE email = $1
		 `, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	var state string

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Login, &user.Email, &user.Verifier, &state, &user.RegisteredAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.State = models.VerificationState(state)
	return user, nil
}

func (r *PostgresRepository) ListCredentials(ctx context.Context) ([]models.User, error) {
	query := `SELECT id, login, verifier, verification_state FROM users`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.User
	for rows.Next() {
		var u models.User
		var state string
		if err := rows.Scan(&u.ID, &u.Login, &u.Verifier, &state); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		u.State = models.VerificationState(state)
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) MarkVerified(ctx context.Context, id string) (bool, error) {
	query :=
		`UPDATE users SET verification_state = $2
		 WHERE id = $1 AND verification_state = $3
		 `

	res, err := r.db.ExecContext(ctx, query, id, string(models.Verified), string(models.NotVerified))
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := dbx.RowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostgresRepository) UpdateVerifier(ctx context.Context, id string, verifier string) error {
	query :=
		`UPDATE users SET verifier = $2
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, verifier)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := dbx.RowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) ClaimNonce(ctx context.Context, id, scope, nonce string) (bool, error) {
	query :=
		`INSERT INTO used_nonces (user_id, scope, nonce)
		 VALUES ($1, $2, $3)
		 ON CONFLICT DO NOTHING
		 `

	res, err := r.db.ExecContext(ctx, query, id, scope, nonce)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := dbx.RowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// uniqueViolation maps a unique-constraint failure to the matching domain error.
func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return nil
	}
	switch pgErr.ConstraintName {
	case loginConstraint:
		return common.ErrLoginTaken
	case emailConstraint:
		return common.ErrEmailTaken
	}
	return nil
}
