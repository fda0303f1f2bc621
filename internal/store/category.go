// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"

	"clomery/internal/models"
	"clomery/internal/query"
)

const categoriesTable = "categories"

var categoryColumns = []string{
	"id", "parent", "name", "slug", "description", "image",
	"user_id", "sort", "create_time", "count_item", "status",
}

// CategoryStore manages categories in the database.
type CategoryStore struct {
	db      DBTX
	dialect query.Dialect
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db DBTX, d query.Dialect) *CategoryStore {
	return &CategoryStore{db: db, dialect: d}
}

// WithTx returns a copy of the store that runs its statements on tx.
func (s *CategoryStore) WithTx(tx DBTX) *CategoryStore {
	return &CategoryStore{db: tx, dialect: s.dialect}
}

func categoryCol(name string) string { return query.Col(categoriesTable, name) }

// scanCategory scans a row into a Category struct.
func scanCategory(scanner rowScanner) (*models.Category, error) {
	var c models.Category
	err := scanner.Scan(
		&c.ID, &c.ParentID, &c.Name, &c.Slug, &c.Description, &c.Image,
		&c.UserID, &c.Sort, &c.CreateTime, &c.CountItem, &c.Status,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CategoryStore) findOne(ctx context.Context, pred sq.Sqlizer) (*models.Category, error) {
	sel := s.dialect.Builder().
		Select(query.Cols(categoriesTable, categoryColumns...)...).
		From(categoriesTable).
		Where(pred).
		Limit(1)
	c, err := scanCategory(queryRow(ctx, s.db, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// FindByID retrieves a category by ID. Returns nil if not found.
func (s *CategoryStore) FindByID(ctx context.Context, id int64) (*models.Category, error) {
	c, err := s.findOne(ctx, sq.Eq{categoryCol("id"): id})
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return c, nil
}

// FindBySlug retrieves a category by slug. Returns nil if not found.
func (s *CategoryStore) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	c, err := s.findOne(ctx, sq.Eq{categoryCol("slug"): slug})
	if err != nil {
		return nil, fmt.Errorf("find category by slug: %w", err)
	}
	return c, nil
}

// Resolve looks a category up by numeric id or, failing that, by slug.
func (s *CategoryStore) Resolve(ctx context.Context, ref string) (*models.Category, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return s.FindByID(ctx, id)
	}
	return s.FindBySlug(ctx, ref)
}

// IDBySlug returns a one-row sub-select yielding the id of the category
// with the given slug.
func (s *CategoryStore) IDBySlug(slug string) sq.SelectBuilder {
	return s.dialect.Builder().
		Select(categoryCol("id")).
		From(categoriesTable).
		Where(sq.Eq{categoryCol("slug"): slug}).
		Limit(1)
}

// List returns all categories ordered by sort, then name.
func (s *CategoryStore) List(ctx context.Context) ([]models.Category, error) {
	sel := s.dialect.Builder().
		Select(query.Cols(categoriesTable, categoryColumns...)...).
		From(categoriesTable).
		OrderBy(query.By(categoryCol("sort"), query.Asc), query.By(categoryCol("name"), query.Asc))
	rows, err := queryRows(ctx, s.db, sel)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var items []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// Tree returns categories as a nested tree structure.
func (s *CategoryStore) Tree(ctx context.Context) ([]models.Category, error) {
	flat, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return buildTree(flat, nil, 0), nil
}

// buildTree recursively builds a tree from a flat list.
func buildTree(flat []models.Category, parentID *int64, depth int) []models.Category {
	var result []models.Category
	for _, c := range flat {
		if ptrEqual(c.ParentID, parentID) {
			c.Depth = depth
			c.Children = buildTree(flat, &c.ID, depth+1)
			result = append(result, c)
		}
	}
	return result
}

func ptrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// FlatTree returns categories as a flat list in display order, with
// Depth set for indentation.
func (s *CategoryStore) FlatTree(ctx context.Context) ([]models.Category, error) {
	tree, err := s.Tree(ctx)
	if err != nil {
		return nil, err
	}
	var result []models.Category
	flattenTree(tree, &result)
	return result, nil
}

func flattenTree(cats []models.Category, result *[]models.Category) {
	for _, c := range cats {
		children := c.Children
		c.Children = nil
		*result = append(*result, c)
		flattenTree(children, result)
	}
}

// Create inserts a new category and returns it.
func (s *CategoryStore) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	createTime := c.CreateTime
	if createTime == 0 {
		createTime = time.Now().Unix()
	}
	ins := s.dialect.Builder().
		Insert(categoriesTable).
		Columns("parent", "name", "slug", "description", "image", "user_id", "sort", "create_time", "status").
		Values(nullable(c.ParentID), c.Name, c.Slug, c.Description, c.Image, nullable(c.UserID), c.Sort, createTime, c.Status).
		Suffix("RETURNING id")

	var id int64
	if err := queryRow(ctx, s.db, ins).Scan(&id); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return s.FindByID(ctx, id)
}

// Update modifies an existing category. count_item is maintained by
// RefreshCount and is never written here.
func (s *CategoryStore) Update(ctx context.Context, c *models.Category) (bool, error) {
	upd := s.dialect.Builder().
		Update(categoriesTable).
		Set("parent", nullable(c.ParentID)).
		Set("name", c.Name).
		Set("slug", c.Slug).
		Set("description", c.Description).
		Set("image", c.Image).
		Set("sort", c.Sort).
		Set("status", c.Status).
		Where(sq.Eq{categoryCol("id"): c.ID})
	res, err := exec(ctx, s.db, upd)
	if err != nil {
		return false, fmt.Errorf("update category: %w", err)
	}
	return rowsAffected(res)
}

// RefreshCount recomputes count_item for the category from the contents
// that reference it.
func (s *CategoryStore) RefreshCount(ctx context.Context, id int64) error {
	count := s.dialect.Builder().
		Select("COUNT(*)").
		From(contentsTable).
		Where(sq.Eq{contentCol("category"): id})
	upd := s.dialect.Builder().
		Update(categoriesTable).
		Set("count_item", query.Sub(count)).
		Where(sq.Eq{categoryCol("id"): id})
	if _, err := exec(ctx, s.db, upd); err != nil {
		return fmt.Errorf("refresh category count: %w", err)
	}
	return nil
}
