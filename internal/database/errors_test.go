package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolationSQLite(t *testing.T) {
	db := testSQLite(t)
	ctx := t.Context()

	const insert = "INSERT INTO tags (name, create_time) VALUES (?, 0)"
	if _, err := db.ExecContext(ctx, insert, "go"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err := db.ExecContext(ctx, insert, "go")
	if err == nil {
		t.Fatal("duplicate insert succeeded")
	}
	if !IsUniqueViolation(fmt.Errorf("insert tag: %w", err)) {
		t.Errorf("IsUniqueViolation(%v) = false, want true", err)
	}

	_, err = db.ExecContext(ctx, "INSERT INTO no_such_table (x) VALUES (1)")
	if err == nil || IsUniqueViolation(err) {
		t.Errorf("missing table error: got %v, want a non-unique error", err)
	}
}

func TestIsUniqueViolationPostgresCodes(t *testing.T) {
	unique := &pgconn.PgError{Code: pgerrcode.UniqueViolation}
	if !IsUniqueViolation(fmt.Errorf("wrapped: %w", unique)) {
		t.Error("unique_violation not detected")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}) {
		t.Error("foreign key violation reported as unique")
	}
	if IsUniqueViolation(errors.New("plain")) || IsUniqueViolation(nil) {
		t.Error("non-driver errors reported as unique")
	}
}
