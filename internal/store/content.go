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
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"clomery/internal/database"
	"clomery/internal/models"
	"clomery/internal/pagination"
	"clomery/internal/query"
	"clomery/internal/slug"
)

const (
	contentsTable = "contents"

	// maxSlugLen matches the slug column.
	maxSlugLen = 300
	// slugAttempts bounds the saves retried after a generated slug was
	// claimed by a concurrent writer.
	slugAttempts = 3
)

// contentShowColumns are selected for listings and neighbors; the body
// and its hash are left out.
var contentShowColumns = []string{
	"id", "slug", "title", "stick", "user_id", "create_time", "modify_time",
	"category", "description", "image", "views", "status",
}

// contentViewColumns are selected when a single item is read in full.
var contentViewColumns = append(append([]string(nil), contentShowColumns...), "content", "content_hash")

// ContentStore handles all content-related database operations.
type ContentStore struct {
	db         *sql.DB
	dialect    query.Dialect
	categories *CategoryStore
	tags       *TagStore
	now        func() time.Time
	slugTaken  func(ctx context.Context, q DBTX, candidate string) (bool, error)
}

// NewContentStore creates a new ContentStore. categories and tags are used
// to resolve list filters and to keep category counts current on save.
func NewContentStore(db *sql.DB, d query.Dialect, categories *CategoryStore, tags *TagStore) *ContentStore {
	s := &ContentStore{db: db, dialect: d, categories: categories, tags: tags, now: time.Now}
	s.slugTaken = s.slugExists
	return s
}

func contentCol(name string) string { return query.Col(contentsTable, name) }

// scanContent scans a row selected with contentShowColumns, or with
// contentViewColumns when full is set.
func scanContent(scanner rowScanner, full bool) (*models.Content, error) {
	var (
		c      models.Content
		status int
		body   string
	)
	dest := []any{
		&c.ID, &c.Slug, &c.Title, &c.Stick, &c.UserID, &c.CreateTime, &c.ModifyTime,
		&c.CategoryID, &c.Description, &c.Image, &c.Views, &status,
	}
	if full {
		dest = append(dest, &body, &c.ContentHash)
	}
	if err := scanner.Scan(dest...); err != nil {
		return nil, err
	}
	c.Status = models.ContentStatus(status)
	if full {
		c.Body = models.Text(body)
	}
	return &c, nil
}

func published() sq.Sqlizer {
	return sq.Eq{contentCol("status"): int(models.ContentStatusPublished)}
}

func (s *ContentStore) findOne(ctx context.Context, q DBTX, pred sq.Sqlizer) (*models.Content, error) {
	sel := s.dialect.Builder().
		Select(query.Cols(contentsTable, contentViewColumns...)...).
		From(contentsTable).
		Where(pred).
		Limit(1)
	c, err := scanContent(queryRow(ctx, q, sel), true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// FindByID retrieves a content item with its body. Returns nil if not found.
func (s *ContentStore) FindByID(ctx context.Context, id int64) (*models.Content, error) {
	c, err := s.findOne(ctx, s.db, sq.Eq{contentCol("id"): id})
	if err != nil {
		return nil, fmt.Errorf("find content by id: %w", err)
	}
	return c, nil
}

// FindBySlug retrieves a content item by slug. Returns nil if not found.
func (s *ContentStore) FindBySlug(ctx context.Context, slug string) (*models.Content, error) {
	c, err := s.findOne(ctx, s.db, sq.Eq{contentCol("slug"): slug})
	if err != nil {
		return nil, fmt.Errorf("find content by slug: %w", err)
	}
	return c, nil
}

// Get resolves ref as a numeric id first and as a slug otherwise.
func (s *ContentStore) Get(ctx context.Context, ref string) (*models.Content, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		c, err := s.FindByID(ctx, id)
		if err != nil || c != nil {
			return c, err
		}
	}
	return s.FindBySlug(ctx, ref)
}

// CategoryCount returns how many contents reference the category.
func (s *ContentStore) CategoryCount(ctx context.Context, categoryID int64) (int, error) {
	sel := s.dialect.Builder().
		Select("COUNT(*)").
		From(contentsTable).
		Where(sq.Eq{contentCol("category"): categoryID})
	var n int
	if err := queryRow(ctx, s.db, sel).Scan(&n); err != nil {
		return 0, fmt.Errorf("count category contents: %w", err)
	}
	return n, nil
}

// current is the part of a stored row Save needs to decide between
// insert and update.
type current struct {
	id       int64
	hash     string
	category *int64
}

// Save inserts or updates a content item, writing every field of c. See
// SaveFields.
func (s *ContentStore) Save(ctx context.Context, c *models.Content) (*models.Content, error) {
	return s.SaveFields(ctx, c, models.AllContentFields)
}

// SaveFields inserts or updates a content item inside one transaction and
// returns the stored row.
//
// The row is matched by ID when set, else by Slug. An insert writes every
// field, zero values included. An update writes only the columns named in
// fields and never touches views. A body whose hash equals the stored one
// (case-insensitive) leaves content_hash and modify_time untouched;
// otherwise both are refreshed, modify_time taking the caller's value when
// given and the current time when not. A non-zero ID that matches no row is
// an error wrapping sql.ErrNoRows.
//
// A new item without a slug gets one derived from its title that no stored
// item uses. When a concurrent save claims the same slug first, the save is
// retried with a fresh one.
func (s *ContentStore) SaveFields(ctx context.Context, c *models.Content, fields models.ContentField) (*models.Content, error) {
	fresh := c.ID == 0 && c.Slug == ""
	for attempt := 1; ; attempt++ {
		var saved *models.Content
		err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
			item := *c
			if fresh {
				generated, err := s.freeSlug(ctx, tx, item.Title)
				if err != nil {
					return fmt.Errorf("generate slug: %w", err)
				}
				item.Slug = generated
			}
			var err error
			saved, err = s.save(ctx, tx, &item, fields, fresh)
			return err
		})
		if err == nil {
			return saved, nil
		}
		if !fresh || attempt == slugAttempts || !database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("save content: %w", err)
		}
	}
}

// freeSlug derives a slug from title that no stored item uses, falling back
// to a random one for titles without usable characters.
func (s *ContentStore) freeSlug(ctx context.Context, q DBTX, title string) (string, error) {
	base := slug.Generate(title)
	if base == "" {
		base = uuid.NewString()[:8]
	}
	if len(base) > maxSlugLen-4 {
		base = strings.Trim(base[:maxSlugLen-4], "-")
	}
	return slug.Unique(base, func(candidate string) (bool, error) {
		return s.slugTaken(ctx, q, candidate)
	})
}

func (s *ContentStore) slugExists(ctx context.Context, q DBTX, candidate string) (bool, error) {
	sel := s.dialect.Builder().
		Select("COUNT(*)").
		From(contentsTable).
		Where(sq.Eq{contentCol("slug"): candidate})
	var n int
	if err := queryRow(ctx, q, sel).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// save runs one save attempt on tx. A fresh item carries a generated slug
// and is always inserted.
func (s *ContentStore) save(ctx context.Context, tx DBTX, item *models.Content, fields models.ContentField, fresh bool) (*models.Content, error) {
	hash := models.ContentHash(item.Body)
	now := s.now().Unix()

	var (
		cur *current
		err error
	)
	switch {
	case fresh:
	case item.ID != 0:
		cur, err = s.lock(ctx, tx, sq.Eq{contentCol("id"): item.ID})
		if err == nil && cur == nil {
			return nil, fmt.Errorf("content %d: %w", item.ID, sql.ErrNoRows)
		}
	case item.Slug != "":
		cur, err = s.lock(ctx, tx, sq.Eq{contentCol("slug"): item.Slug})
	}
	if err != nil {
		return nil, fmt.Errorf("lock content: %w", err)
	}

	var id int64
	if cur == nil {
		id, err = s.insert(ctx, tx, item, hash, now)
	} else {
		id = cur.id
		if !fields.Has(models.FieldCategory) {
			item.CategoryID = cur.category
		}
		err = s.update(ctx, tx, cur, item, fields, hash, now)
	}
	if err != nil {
		return nil, err
	}

	categories := s.categories.WithTx(tx)
	for _, cid := range touchedCategories(cur, item.CategoryID) {
		if err := categories.RefreshCount(ctx, cid); err != nil {
			return nil, err
		}
	}

	saved, err := s.findOne(ctx, tx, sq.Eq{contentCol("id"): id})
	if err != nil {
		return nil, fmt.Errorf("reload content: %w", err)
	}
	return saved, nil
}

// lock reads the matching row, taking a row lock where the dialect has them.
func (s *ContentStore) lock(ctx context.Context, tx DBTX, pred sq.Sqlizer) (*current, error) {
	sel := s.dialect.ForUpdate(s.dialect.Builder().
		Select(query.Cols(contentsTable, "id", "content_hash", "category")...).
		From(contentsTable).
		Where(pred).
		Limit(1))
	var cur current
	err := queryRow(ctx, tx, sel).Scan(&cur.id, &cur.hash, &cur.category)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cur, nil
}

func (s *ContentStore) insert(ctx context.Context, tx DBTX, c *models.Content, hash string, now int64) (int64, error) {
	createTime, modifyTime := c.CreateTime, c.ModifyTime
	if createTime == 0 {
		createTime = now
	}
	if modifyTime == 0 {
		modifyTime = now
	}
	ins := s.dialect.Builder().
		Insert(contentsTable).
		Columns(
			"slug", "title", "content", "content_hash", "stick", "user_id", "category",
			"views", "create_time", "modify_time", "status", "description", "image",
		).
		Values(
			c.Slug, c.Title, rawText(c.Body), hash, c.Stick, nullable(c.UserID), nullable(c.CategoryID),
			c.Views, createTime, modifyTime, int(c.Status), c.Description, c.Image,
		).
		Suffix("RETURNING id")

	var id int64
	if err := queryRow(ctx, tx, ins).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert content: %w", err)
	}
	return id, nil
}

// update writes the supplied fields of c over the locked row cur. views is
// owned by PushCountView and is never written here.
func (s *ContentStore) update(ctx context.Context, tx DBTX, cur *current, c *models.Content, fields models.ContentField, hash string, now int64) error {
	u := s.dialect.Builder().Update(contentsTable)
	sets := 0
	set := func(f models.ContentField, column string, value any) {
		if fields.Has(f) {
			u = u.Set(column, value)
			sets++
		}
	}

	if c.Slug != "" {
		set(models.FieldSlug, "slug", c.Slug)
	}
	set(models.FieldTitle, "title", c.Title)
	set(models.FieldStick, "stick", c.Stick)
	set(models.FieldUserID, "user_id", nullable(c.UserID))
	set(models.FieldCategory, "category", nullable(c.CategoryID))
	set(models.FieldStatus, "status", int(c.Status))
	set(models.FieldDescription, "description", c.Description)
	set(models.FieldImage, "image", c.Image)
	if c.CreateTime != 0 {
		set(models.FieldCreateTime, "create_time", c.CreateTime)
	}
	set(models.FieldBody, "content", rawText(c.Body))

	if fields.Has(models.FieldBody) && !strings.EqualFold(hash, cur.hash) {
		modifyTime := now
		if fields.Has(models.FieldModifyTime) && c.ModifyTime != 0 {
			modifyTime = c.ModifyTime
		}
		// Re-checked against the locked row so a concurrent writer of the
		// same body cannot bump modify_time twice.
		u = u.Set("modify_time", sq.Case().
			When(sq.Eq{contentCol("content_hash"): hash}, contentCol("modify_time")).
			Else(sq.Expr("?", modifyTime)))
		u = u.Set("content_hash", hash)
		sets += 2
	}
	if sets == 0 {
		return nil
	}

	if _, err := exec(ctx, tx, u.Where(sq.Eq{contentCol("id"): cur.id})); err != nil {
		return fmt.Errorf("update content: %w", err)
	}
	return nil
}

func rawText(b models.Body) string {
	if b == nil {
		return ""
	}
	return b.RawText()
}

// touchedCategories lists the categories whose counts a save can change.
func touchedCategories(cur *current, next *int64) []int64 {
	var ids []int64
	if next != nil {
		ids = append(ids, *next)
	}
	if cur != nil && cur.category != nil && (next == nil || *cur.category != *next) {
		ids = append(ids, *cur.category)
	}
	return ids
}

// PushCountView adds num to the view counter of content id in a single
// relative update. It reports whether a row was affected.
func (s *ContentStore) PushCountView(ctx context.Context, id int64, num int64) (bool, error) {
	upd := s.dialect.Builder().
		Update(contentsTable).
		Set("views", query.Add(contentCol("views"), num)).
		Where(sq.Eq{contentCol("id"): id})
	res, err := exec(ctx, s.db, upd)
	if err != nil {
		return false, fmt.Errorf("push content views: %w", err)
	}
	return rowsAffected(res)
}

// NearByTime returns the published items immediately before and after
// anchor by create_time. Either side is nil when nothing qualifies.
func (s *ContentStore) NearByTime(ctx context.Context, anchor int64) (prev, next *models.Content, err error) {
	prev, err = s.nearest(ctx, sq.Lt{contentCol("create_time"): anchor}, query.Desc)
	if err != nil {
		return nil, nil, fmt.Errorf("previous content: %w", err)
	}
	next, err = s.nearest(ctx, sq.Gt{contentCol("create_time"): anchor}, query.Asc)
	if err != nil {
		return nil, nil, fmt.Errorf("next content: %w", err)
	}
	return prev, next, nil
}

// Near is NearByTime anchored at the create_time of content id. An unknown
// id yields no neighbors.
func (s *ContentStore) Near(ctx context.Context, id int64) (prev, next *models.Content, err error) {
	sel := s.dialect.Builder().
		Select(contentCol("create_time")).
		From(contentsTable).
		Where(sq.Eq{contentCol("id"): id})
	var anchor int64
	err = queryRow(ctx, s.db, sel).Scan(&anchor)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("find content time: %w", err)
	}
	return s.NearByTime(ctx, anchor)
}

// nearest returns the first published item past the anchor bound, ordered
// by create_time then id in dir.
func (s *ContentStore) nearest(ctx context.Context, bound sq.Sqlizer, dir query.Direction) (*models.Content, error) {
	sel := s.dialect.Builder().
		Select(query.Cols(contentsTable, contentShowColumns...)...).
		From(contentsTable).
		Where(bound).
		Where(published()).
		OrderBy(query.By(contentCol("create_time"), dir), query.By(contentCol("id"), dir)).
		Limit(1)
	c, err := scanContent(queryRow(ctx, s.db, sel), false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// List returns one page of published contents matching f. Bodies are not
// loaded.
func (s *ContentStore) List(ctx context.Context, f models.ContentFilter) (*pagination.Page[models.Content], error) {
	sel := s.assembleList(f)
	page, err := paginate(ctx, s.db, s.dialect, sel, pagination.New(f.Page, f.Row), func(r rowScanner) (models.Content, error) {
		c, err := scanContent(r, false)
		if err != nil {
			return models.Content{}, err
		}
		return *c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}
	return page, nil
}
