package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"clomery/internal/models"
	"clomery/internal/query"
)

// Seed populates the database with initial development data: a default
// admin user and an "uncategorized" category. It is a no-op when any user
// exists already.
func Seed(ctx context.Context, db *sql.DB, d query.Dialect) error {
	var count int
	if err := d.Builder().Select("COUNT(*)").From("users").RunWith(db).QueryRowContext(ctx).Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	now := time.Now().Unix()
	return WithTx(ctx, db, func(tx *sql.Tx) error {
		var adminID int64
		err := d.Builder().
			Insert("users").
			Columns("name", "email", "password_hash", "group_id", "create_time").
			Values("admin", "admin@clomery.local", string(hash), models.AdminGroup, now).
			Suffix("RETURNING id").
			RunWith(tx).
			QueryRowContext(ctx).
			Scan(&adminID)
		if err != nil {
			return fmt.Errorf("seed insert admin: %w", err)
		}

		cat := d.Builder().
			Insert("categories").
			Columns("name", "slug", "user_id", "create_time").
			Values("Uncategorized", "uncategorized", adminID, now).
			RunWith(tx)
		if _, err := cat.ExecContext(ctx); err != nil {
			return fmt.Errorf("seed insert category: %w", err)
		}

		slog.Info("database seeded with default admin user",
			"name", "admin",
			"password", "admin",
		)
		return nil
	})
}
