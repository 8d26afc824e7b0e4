// Package repomanager hands out store implementations bound to either a
// connection pool or a transaction, and runs schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/emailverifications"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/passwordrecovers"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	EmailVerifications(db dbx.DBTX) emailverifications.Repository
	PasswordRecovers(db dbx.DBTX) passwordrecovers.Repository
}
