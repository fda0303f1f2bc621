package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"clomery/internal/models"
	"clomery/internal/query"
)

const (
	tagsTable         = "tags"
	tagRelationsTable = "tag_relations"
)

var tagColumns = []string{"id", "name", "create_time", "count_item", "status"}

// TagStore manages tags and their relations to contents.
type TagStore struct {
	db        DBTX
	dialect   query.Dialect
	relations *TagRelationStore
}

// NewTagStore returns a new TagStore.
func NewTagStore(db DBTX, d query.Dialect) *TagStore {
	return &TagStore{db: db, dialect: d, relations: &TagRelationStore{db: db, dialect: d}}
}

// WithTx returns a copy of the store that runs its statements on tx.
func (s *TagStore) WithTx(tx DBTX) *TagStore {
	return NewTagStore(tx, s.dialect)
}

// Relations returns the store for the tag-to-content relation table.
func (s *TagStore) Relations() *TagRelationStore { return s.relations }

func tagCol(name string) string { return query.Col(tagsTable, name) }

func scanTag(scanner rowScanner) (*models.Tag, error) {
	var t models.Tag
	if err := scanner.Scan(&t.ID, &t.Name, &t.CreateTime, &t.CountItem, &t.Status); err != nil {
		return nil, err
	}
	return &t, nil
}

// FindByName retrieves a tag by its exact name. Returns nil if not found.
func (s *TagStore) FindByName(ctx context.Context, name string) (*models.Tag, error) {
	sel := s.dialect.Builder().
		Select(query.Cols(tagsTable, tagColumns...)...).
		From(tagsTable).
		Where(sq.Eq{tagCol("name"): name}).
		Limit(1)
	t, err := scanTag(queryRow(ctx, s.db, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find tag by name: %w", err)
	}
	return t, nil
}

// Create inserts a new tag.
func (s *TagStore) Create(ctx context.Context, name string) (*models.Tag, error) {
	ins := s.dialect.Builder().
		Insert(tagsTable).
		Columns("name", "create_time").
		Values(name, time.Now().Unix()).
		Suffix("RETURNING " + strings.Join(tagColumns, ", "))
	t, err := scanTag(queryRow(ctx, s.db, ins))
	if err != nil {
		return nil, fmt.Errorf("create tag: %w", err)
	}
	return t, nil
}

// FindOrCreate returns the tag called name, creating it when missing.
func (s *TagStore) FindOrCreate(ctx context.Context, name string) (*models.Tag, error) {
	t, err := s.FindByName(ctx, name)
	if err != nil || t != nil {
		return t, err
	}
	return s.Create(ctx, name)
}

// List returns all tags, most used first.
func (s *TagStore) List(ctx context.Context) ([]models.Tag, error) {
	sel := s.dialect.Builder().
		Select(query.Cols(tagsTable, tagColumns...)...).
		From(tagsTable).
		OrderBy(query.By(tagCol("count_item"), query.Desc), query.By(tagCol("name"), query.Asc))
	return s.scanTags(ctx, sel)
}

func (s *TagStore) scanTags(ctx context.Context, sel sq.SelectBuilder) ([]models.Tag, error) {
	rows, err := queryRows(ctx, s.db, sel)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, *t)
	}
	return tags, rows.Err()
}

// TagsOf returns the tags attached to a content item.
func (s *TagStore) TagsOf(ctx context.Context, contentID int64) ([]models.Tag, error) {
	rel := s.relations
	sel := s.dialect.Builder().
		Select(query.Cols(tagsTable, tagColumns...)...).
		From(tagsTable).
		Join(tagRelationsTable + " ON " + rel.ItemColumn() + " = " + tagCol("id")).
		Where(sq.Eq{rel.RelateColumn(): contentID}).
		OrderBy(query.By(tagCol("name"), query.Asc))
	return s.scanTags(ctx, sel)
}

// TagRelationStore manages rows of the tag_relations table, where item is
// the tag id and relate the content id.
type TagRelationStore struct {
	db      DBTX
	dialect query.Dialect
}

// Table returns the relation table name.
func (s *TagRelationStore) Table() string { return tagRelationsTable }

// ItemColumn references the tag id column.
func (s *TagRelationStore) ItemColumn() string { return query.Col(tagRelationsTable, "item") }

// RelateColumn references the content id column.
func (s *TagRelationStore) RelateColumn() string { return query.Col(tagRelationsTable, "relate") }

// Attach relates a tag to a content item. Attaching twice is a no-op.
func (s *TagRelationStore) Attach(ctx context.Context, tagID, contentID int64) error {
	ins := s.dialect.Builder().
		Insert(tagRelationsTable).
		Columns("item", "relate").
		Values(tagID, contentID).
		Suffix("ON CONFLICT DO NOTHING")
	if _, err := exec(ctx, s.db, ins); err != nil {
		return fmt.Errorf("attach tag: %w", err)
	}
	return s.refreshCount(ctx, tagID)
}

// Detach removes the relation between a tag and a content item.
func (s *TagRelationStore) Detach(ctx context.Context, tagID, contentID int64) (bool, error) {
	del := s.dialect.Builder().
		Delete(tagRelationsTable).
		Where(sq.Eq{s.ItemColumn(): tagID, s.RelateColumn(): contentID})
	res, err := exec(ctx, s.db, del)
	if err != nil {
		return false, fmt.Errorf("detach tag: %w", err)
	}
	if err := s.refreshCount(ctx, tagID); err != nil {
		return false, err
	}
	return rowsAffected(res)
}

func (s *TagRelationStore) refreshCount(ctx context.Context, tagID int64) error {
	count := s.dialect.Builder().
		Select("COUNT(*)").
		From(tagRelationsTable).
		Where(sq.Eq{s.ItemColumn(): tagID})
	upd := s.dialect.Builder().
		Update(tagsTable).
		Set("count_item", query.Sub(count)).
		Where(sq.Eq{tagCol("id"): tagID})
	if _, err := exec(ctx, s.db, upd); err != nil {
		return fmt.Errorf("refresh tag count: %w", err)
	}
	return nil
}
