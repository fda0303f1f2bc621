// Package database handles connection management for PostgreSQL (pgx) and
// SQLite (modernc), goose migrations per dialect, and the transaction
// helper used by multi-statement writes.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"path"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"clomery/internal/query"
)

//go:embed migrations
var embedMigrations embed.FS

// Connect opens a connection pool for the given database/sql driver ("pgx"
// or "sqlite") and verifies it with a ping before returning.
func Connect(driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("database open: %w", err)
	}

	if driver == "sqlite" {
		// One connection: SQLite has a single writer, and pragmas are
		// per connection.
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA foreign_keys=ON",
			"PRAGMA busy_timeout=5000",
		} {
			if _, err := db.Exec(pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
			}
		}
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping: %w", err)
	}

	slog.Info("database connected", "driver", driver)
	return db, nil
}

// Migrate runs all pending goose migrations for the dialect from the
// embedded SQL files.
func Migrate(db *sql.DB, d query.Dialect) error {
	goose.SetBaseFS(embedMigrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(d.Name()); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}

	dir := path.Join("migrations", migrationsDir(d))
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	slog.Info("database migrations applied", "dialect", d.Name())
	return nil
}

func migrationsDir(d query.Dialect) string {
	if d == query.SQLite {
		return "sqlite"
	}
	return "postgres"
}

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back on an error or a panic, which is re-raised.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
