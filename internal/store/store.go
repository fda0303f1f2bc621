// Package store provides database access methods for all Clomery
// entities. Each store struct wraps a DBTX and builds its statements with
// squirrel through the query package, so the same code runs on PostgreSQL
// and SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"clomery/internal/pagination"
	"clomery/internal/query"
)

// DBTX is the subset of *sql.DB and *sql.Tx the stores need.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface{ Scan(...any) error }

// errRow reports a statement that could not be built when it is scanned.
type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

func exec(ctx context.Context, q DBTX, b sq.Sqlizer) (sql.Result, error) {
	stmt, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build statement: %w", err)
	}
	return q.ExecContext(ctx, stmt, args...)
}

func queryRow(ctx context.Context, q DBTX, b sq.Sqlizer) rowScanner {
	stmt, args, err := b.ToSql()
	if err != nil {
		return errRow{fmt.Errorf("build statement: %w", err)}
	}
	return q.QueryRowContext(ctx, stmt, args...)
}

func queryRows(ctx context.Context, q DBTX, b sq.Sqlizer) (*sql.Rows, error) {
	stmt, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build statement: %w", err)
	}
	return q.QueryContext(ctx, stmt, args...)
}

// paginate counts the rows sel would return, then fetches the rows of
// window w. A window past the last row yields an empty page.
func paginate[T any](ctx context.Context, q DBTX, d query.Dialect, sel sq.SelectBuilder, w pagination.Window, scan func(rowScanner) (T, error)) (*pagination.Page[T], error) {
	var total int
	if err := queryRow(ctx, q, query.Count(d, sel)).Scan(&total); err != nil {
		return nil, fmt.Errorf("count rows: %w", err)
	}
	if total == 0 || w.Offset() >= total {
		return pagination.NewPage[T](w, total, nil), nil
	}

	rows, err := queryRows(ctx, q, sel.Limit(uint64(w.Size)).Offset(uint64(w.Offset())))
	if err != nil {
		return nil, fmt.Errorf("query page: %w", err)
	}
	defer rows.Close()

	items := make([]T, 0, w.Size)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pagination.NewPage(w, total, items), nil
}

// rowsAffected reports whether res touched at least one row.
func rowsAffected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// nullable binds a nil pointer as NULL and a non-nil one as its value.
func nullable(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
