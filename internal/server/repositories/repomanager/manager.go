package repomanager

import (
	"context"
	"database/sql"

	"github.com/dgtwins/ms-auth/internal/dbx"
	"github.com/dgtwins/ms-auth/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}
