package db

import (
	"context"
	"embed"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies the embedded goose migrations through the store's pool.
func (s *Store) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return gerrors.Wrap(err, "goose dialect")
	}
	sqlDB := stdlib.OpenDBFromPool(s.Pool)
	defer sqlDB.Close()
	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return gerrors.Wrap(err, "goose up")
	}
	return nil
}

// MigrationStatus logs the state of each embedded migration.
func (s *Store) MigrationStatus(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return gerrors.Wrap(err, "goose dialect")
	}
	sqlDB := stdlib.OpenDBFromPool(s.Pool)
	defer sqlDB.Close()
	return goose.StatusContext(ctx, sqlDB, "migrations")
}
