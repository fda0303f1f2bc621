package query

import (
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, s sq.Sqlizer) (string, []any) {
	t.Helper()
	sql, args, err := s.ToSql()
	require.NoError(t, err)
	return sql, args
}

func TestSelectPlaceholdersPerDialect(t *testing.T) {
	sel := func(d Dialect) sq.SelectBuilder {
		return d.Builder().
			Select(Cols("contents", "id", "title")...).
			From("contents").
			Where(d.ILike(Col("contents", "title"), "%go%")).
			Where(sq.Eq{Col("contents", "status"): 1}).
			OrderBy(By(Col("contents", "stick"), Desc)).
			Limit(10).
			Offset(20)
	}

	sql, args := build(t, sel(Postgres))
	assert.Equal(t,
		"SELECT contents.id, contents.title FROM contents WHERE contents.title ILIKE $1 AND contents.status = $2 ORDER BY contents.stick DESC LIMIT 10 OFFSET 20",
		sql)
	assert.Equal(t, []any{"%go%", 1}, args)

	sql, args = build(t, sel(SQLite))
	assert.Equal(t,
		"SELECT contents.id, contents.title FROM contents WHERE contents.title LIKE ? AND contents.status = ? ORDER BY contents.stick DESC LIMIT 10 OFFSET 20",
		sql)
	assert.Equal(t, []any{"%go%", 1}, args)
}

func TestSubNumbersArgumentsWithOuterStatement(t *testing.T) {
	lookup := Postgres.Builder().
		Select(Col("categories", "id")).
		From("categories").
		Where(sq.Eq{Col("categories", "slug"): "go"}).
		Limit(1)

	sql, args := build(t, Postgres.Builder().
		Select(Col("contents", "id")).
		From("contents").
		Where(sq.Eq{Col("contents", "user_id"): int64(9)}).
		Where(EqSub(Col("contents", "category"), lookup)).
		Where(sq.Eq{Col("contents", "status"): 1}))

	assert.Equal(t,
		"SELECT contents.id FROM contents WHERE contents.user_id = $1 AND contents.category = (SELECT categories.id FROM categories WHERE categories.slug = $2 LIMIT 1) AND contents.status = $3",
		sql)
	assert.Equal(t, []any{int64(9), "go", 1}, args)
}

func TestCountIgnoresWindow(t *testing.T) {
	sel := SQLite.Builder().
		Select(Cols("contents", "id")...).
		Distinct().
		From("tag_relations").
		Join("contents ON contents.id = tag_relations.relate").
		Where(sq.Eq{Col("tag_relations", "item"): []int64{3, 5}}).
		Limit(5).
		Offset(5)

	sql, args := build(t, Count(SQLite, sel))
	assert.Equal(t,
		"SELECT COUNT(*) FROM (SELECT DISTINCT contents.id FROM tag_relations JOIN contents ON contents.id = tag_relations.relate WHERE tag_relations.item IN (?,?)) AS counted",
		sql)
	assert.Equal(t, []any{int64(3), int64(5)}, args)

	// The original select keeps its window.
	orig, _ := build(t, sel)
	assert.Contains(t, orig, "LIMIT 5 OFFSET 5")
}

func TestForUpdateOnlyWhereSupported(t *testing.T) {
	sel := func(d Dialect) sq.SelectBuilder {
		return d.ForUpdate(d.Builder().Select(Col("contents", "id")).From("contents").Limit(1))
	}
	pg, _ := build(t, sel(Postgres))
	assert.Equal(t, "SELECT contents.id FROM contents LIMIT 1 FOR UPDATE", pg)
	lite, _ := build(t, sel(SQLite))
	assert.Equal(t, "SELECT contents.id FROM contents LIMIT 1", lite)
}

func TestUpdateRelativeAndCase(t *testing.T) {
	sql, args := build(t, SQLite.Builder().
		Update("contents").
		Set("views", Add(Col("contents", "views"), 3)).
		Where(sq.Eq{Col("contents", "id"): int64(7)}))
	assert.Equal(t, "UPDATE contents SET views = contents.views + ? WHERE contents.id = ?", sql)
	assert.Equal(t, []any{3, int64(7)}, args)

	guard := sq.Case().
		When(sq.Eq{Col("contents", "content_hash"): "abc"}, Col("contents", "modify_time")).
		Else(sq.Expr("?", int64(100)))
	sql, args = build(t, Postgres.Builder().
		Update("contents").
		Set("title", "t").
		Set("modify_time", guard).
		Where(sq.Eq{Col("contents", "id"): int64(1)}))
	assert.Equal(t,
		"UPDATE contents SET title = $1, modify_time = CASE WHEN contents.content_hash = $2 THEN contents.modify_time ELSE $3 END WHERE contents.id = $4",
		sql)
	assert.Equal(t, []any{"t", "abc", int64(100), int64(1)}, args)
}

func TestUpdateFromSub(t *testing.T) {
	count := Postgres.Builder().
		Select("COUNT(*)").
		From("contents").
		Where(sq.Eq{Col("contents", "category"): int64(4)})
	sql, args := build(t, Postgres.Builder().
		Update("categories").
		Set("count_item", Sub(count)).
		Where(sq.Eq{Col("categories", "id"): int64(4)}))
	assert.Equal(t,
		"UPDATE categories SET count_item = (SELECT COUNT(*) FROM contents WHERE contents.category = $1) WHERE categories.id = $2",
		sql)
	assert.Equal(t, []any{int64(4), int64(4)}, args)
}

func TestInsertSuffixes(t *testing.T) {
	sql, args := build(t, Postgres.Builder().
		Insert("tag_relations").
		Columns("item", "relate").
		Values(int64(1), int64(2)).
		Suffix("ON CONFLICT DO NOTHING"))
	assert.Contains(t, sql, "INSERT INTO tag_relations")
	assert.Contains(t, sql, "$1")
	assert.Contains(t, sql, "$2")
	assert.Contains(t, sql, "ON CONFLICT DO NOTHING")
	assert.Equal(t, []any{int64(1), int64(2)}, args)
}

func TestForDriver(t *testing.T) {
	for _, name := range []string{"pgx", "postgres"} {
		d, err := ForDriver(name)
		require.NoError(t, err)
		assert.Equal(t, "postgres", d.Name())
	}
	d, err := ForDriver("sqlite")
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", d.Name())

	_, err = ForDriver("mysql")
	assert.Error(t, err)
}
