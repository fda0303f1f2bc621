// store_test.go provides shared database helpers for the store tests.
// Most tests run against a throwaway SQLite file; the PostgreSQL tests are
// skipped when no server is reachable.
package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"clomery/internal/database"
	"clomery/internal/models"
	"clomery/internal/query"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "clomery")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "clomery")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable&connect_timeout=2"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens the PostgreSQL test database and runs migrations. If the
// database is unavailable, the test is skipped.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Connect("pgx", testDSN())
	if err != nil {
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}
	if err := database.Migrate(db, query.Postgres); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// testSQLite returns a migrated SQLite database private to the test.
func testSQLite(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Connect("sqlite", filepath.Join(t.TempDir(), "clomery.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db, query.SQLite); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

type testStores struct {
	db         *sql.DB
	contents   *ContentStore
	categories *CategoryStore
	tags       *TagStore
	users      *UserStore
}

// newTestStores wires all stores over db. The content store clock is
// pinned to clock.
func newTestStores(db *sql.DB, d query.Dialect, clock *time.Time) *testStores {
	categories := NewCategoryStore(db, d)
	tags := NewTagStore(db, d)
	contents := NewContentStore(db, d, categories, tags)
	contents.now = func() time.Time { return *clock }
	return &testStores{
		db:         db,
		contents:   contents,
		categories: categories,
		tags:       tags,
		users:      NewUserStore(db, d),
	}
}

// sqliteStores is newTestStores over a fresh SQLite database.
func sqliteStores(t *testing.T) (*testStores, *time.Time) {
	t.Helper()
	clock := time.Unix(1_700_000_000, 0)
	return newTestStores(testSQLite(t), query.SQLite, &clock), &clock
}

func ptr[T any](v T) *T { return &v }

// mustSave saves c or fails the test.
func mustSave(t *testing.T, s *ContentStore, c *models.Content) *models.Content {
	t.Helper()
	saved, err := s.Save(t.Context(), c)
	if err != nil {
		t.Fatalf("Save(%q): %v", c.Slug, err)
	}
	return saved
}

// cleanContent removes test content by slug. Call in t.Cleanup().
func cleanContent(t *testing.T, db *sql.DB, slugs ...string) {
	t.Helper()
	for _, slug := range slugs {
		db.Exec("DELETE FROM contents WHERE slug = $1", slug)
	}
}
