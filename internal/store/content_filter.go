package store

import (
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	sq "github.com/Masterminds/squirrel"

	"clomery/internal/models"
	"clomery/internal/query"
)

const (
	minSearchLen = 2
	maxSearchLen = 80
)

// SearchPattern turns free-text search input into a LIKE pattern. Input
// shorter than two characters is ignored; longer input is cut to 80
// characters, stripped of '%' and split on whitespace, and the words are
// joined so they must appear in order: "go  tips" becomes "%go%tips%".
// It reports false when no word survives.
func SearchPattern(search string) (string, bool) {
	if utf8.RuneCountInString(search) < minSearchLen {
		return "", false
	}
	if r := []rune(search); len(r) > maxSearchLen {
		search = string(r[:maxSearchLen])
	}
	words := strings.Fields(strings.ReplaceAll(search, "%", ""))
	if len(words) == 0 {
		return "", false
	}
	return "%" + strings.Join(words, "%") + "%", true
}

// composeFilter returns the title predicate for search, or nil when the
// search is absent or too short to filter on.
func (s *ContentStore) composeFilter(search *string) sq.Sqlizer {
	if search == nil {
		return nil
	}
	pattern, ok := SearchPattern(*search)
	if !ok {
		return nil
	}
	return s.dialect.ILike(contentCol("title"), pattern)
}

// resolveCategory matches ref as a numeric id, or as a slug through a
// sub-select on categories.
func (s *ContentStore) resolveCategory(ref *string) sq.Sqlizer {
	if ref == nil {
		return nil
	}
	r := strings.TrimSpace(*ref)
	if id, err := strconv.ParseInt(r, 10, 64); err == nil {
		return sq.Eq{contentCol("category"): id}
	}
	return query.EqSub(contentCol("category"), s.categories.IDBySlug(r))
}

// planTagJoin selects columns from the relation table joined to contents,
// keeping rows related to any of tags. DISTINCT collapses items that carry
// several of the tags.
func (s *ContentStore) planTagJoin(columns []string, tags []int64) sq.SelectBuilder {
	rel := s.tags.Relations()
	ids := slices.Clone(tags)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	return s.dialect.Builder().
		Select(columns...).
		Distinct().
		From(rel.Table()).
		Join(contentsTable + " ON " + contentCol("id") + " = " + rel.RelateColumn()).
		Where(sq.Eq{rel.ItemColumn(): ids})
}

// assembleList builds the listing select for f without its page window.
// Predicates are ANDed as tags, search, category, status.
func (s *ContentStore) assembleList(f models.ContentFilter) sq.SelectBuilder {
	columns := query.Cols(contentsTable, contentShowColumns...)

	var sel sq.SelectBuilder
	if len(f.Tags) > 0 {
		sel = s.planTagJoin(columns, f.Tags)
	} else {
		sel = s.dialect.Builder().Select(columns...).From(contentsTable)
	}
	sel = sel.
		Where(s.composeFilter(f.Search)).
		Where(s.resolveCategory(f.Category)).
		Where(published())

	field := contentCol("modify_time")
	if f.Field == models.SortCreateTime {
		field = contentCol("create_time")
	}
	dir := query.Desc
	if f.Order == models.OrderAsc {
		dir = query.Asc
	}
	return sel.OrderBy(
		query.By(contentCol("stick"), query.Desc),
		query.By(field, dir),
		query.By(contentCol("id"), dir),
	)
}
