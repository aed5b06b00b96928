package app

import (
	"strings"

	"github.com/beiya2414/classboard/internal/store"
	"github.com/beiya2414/classboard/internal/store/postgres"
	"github.com/beiya2414/classboard/internal/store/sqlite"
)

func NewStore(dsn string) (store.Store, error) {
	if strings.HasPrefix(dsn, "postgres") {
		return postgres.NewPostgresStore(dsn)
	}
	return sqlite.NewSQLiteStore(dsn)
}
