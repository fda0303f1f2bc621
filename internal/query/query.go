// Package query adapts squirrel to the dialects clomery runs on. Statements
// are trees of squirrel Sqlizers; every variable value enters them as a bound
// argument, while identifiers and operators come from code. The helpers here
// cover the few shapes the stores share.
package query

import (
	sq "github.com/Masterminds/squirrel"
)

// Direction is a sort direction.
type Direction int

const (
	Desc Direction = iota
	Asc
)

func (d Direction) String() string {
	if d == Asc {
		return "ASC"
	}
	return "DESC"
}

// By returns an ORDER BY term for column.
func By(column string, dir Direction) string {
	return column + " " + dir.String()
}

// Col returns the table-qualified name of a column.
func Col(table, name string) string {
	return table + "." + name
}

// Cols qualifies several columns of one table.
func Cols(table string, names ...string) []string {
	cols := make([]string, len(names))
	for i, n := range names {
		cols[i] = Col(table, n)
	}
	return cols
}

// Sub embeds sel as a parenthesized scalar sub-query. Its arguments are
// numbered together with the enclosing statement.
func Sub(sel sq.SelectBuilder) sq.Sqlizer {
	return sq.Expr("(?)", sel)
}

// EqSub compares column with the single value sel yields.
func EqSub(column string, sel sq.SelectBuilder) sq.Sqlizer {
	return sq.Expr(column+" = ?", Sub(sel))
}

// Add returns column + n, used for relative column updates.
func Add(column string, n any) sq.Sqlizer {
	return sq.Expr(column+" + ?", n)
}

// Count wraps sel as SELECT COUNT(*), ignoring its page window.
func Count(d Dialect, sel sq.SelectBuilder) sq.SelectBuilder {
	return d.Builder().
		Select("COUNT(*)").
		FromSelect(sel.RemoveLimit().RemoveOffset(), "counted")
}
