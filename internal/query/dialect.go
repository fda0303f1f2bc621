// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package query

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// Dialect describes the parts of SQL syntax that differ between the relational
// stores clomery runs on. Statements themselves are squirrel builders started
// from Builder.
type Dialect interface {
	// Name is the short dialect name, also used as the goose dialect.
	Name() string
	// Builder starts statements that render the dialect's bind markers.
	Builder() sq.StatementBuilderType
	// ILike matches column against a bound pattern ignoring case.
	ILike(column, pattern string) sq.Sqlizer
	// ForUpdate locks the rows sel reads where the dialect has row locks.
	ForUpdate(sel sq.SelectBuilder) sq.SelectBuilder
}

type postgres struct{}

func (postgres) Name() string { return "postgres" }

func (postgres) Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func (postgres) ILike(column, pattern string) sq.Sqlizer {
	return sq.ILike{column: pattern}
}

func (postgres) ForUpdate(sel sq.SelectBuilder) sq.SelectBuilder {
	return sel.Suffix("FOR UPDATE")
}

// SQLite's LIKE is already case-insensitive for ASCII, and writers are
// serialized by the database lock so row locks do not exist.
type sqlite struct{}

func (sqlite) Name() string { return "sqlite3" }

func (sqlite) Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

func (sqlite) ILike(column, pattern string) sq.Sqlizer {
	return sq.Like{column: pattern}
}

func (sqlite) ForUpdate(sel sq.SelectBuilder) sq.SelectBuilder { return sel }

var (
	// Postgres renders for PostgreSQL through the pgx driver.
	Postgres Dialect = postgres{}
	// SQLite renders for the embedded modernc.org/sqlite driver.
	SQLite Dialect = sqlite{}
)

// ForDriver maps a database/sql driver name to its dialect.
func ForDriver(driver string) (Dialect, error) {
	switch driver {
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}
