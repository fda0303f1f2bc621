package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"clomery/internal/database"
	"clomery/internal/models"
	"clomery/internal/query"
)

func TestContentSaveInsertDefaults(t *testing.T) {
	s, clock := sqliteStores(t)

	saved := mustSave(t, s.contents, &models.Content{
		Slug:   "hello-world",
		Title:  "Hello World",
		Body:   models.Text("hello"),
		Status: models.ContentStatusPublished,
	})

	if saved.ID == 0 {
		t.Fatal("expected a generated id")
	}
	if saved.Views != 0 || saved.Stick != 0 {
		t.Errorf("views/stick: got %d/%d, want 0/0", saved.Views, saved.Stick)
	}
	if saved.CreateTime != clock.Unix() || saved.ModifyTime != clock.Unix() {
		t.Errorf("times: got %d/%d, want %d", saved.CreateTime, saved.ModifyTime, clock.Unix())
	}
	if saved.ContentHash != "5d41402abc4b2a76b9719d911017c592" {
		t.Errorf("content_hash: got %q", saved.ContentHash)
	}
	if saved.Body.RawText() != "hello" {
		t.Errorf("body: got %q", saved.Body.RawText())
	}
}

func TestContentSaveKeepsCallerTimes(t *testing.T) {
	s, _ := sqliteStores(t)

	saved := mustSave(t, s.contents, &models.Content{
		Slug:       "imported",
		Title:      "Imported",
		Body:       models.Text("old post"),
		CreateTime: 1_000,
		ModifyTime: 2_000,
		Views:      42,
	})
	if saved.CreateTime != 1_000 || saved.ModifyTime != 2_000 {
		t.Errorf("times: got %d/%d, want 1000/2000", saved.CreateTime, saved.ModifyTime)
	}
	if saved.Views != 42 {
		t.Errorf("views: got %d, want 42", saved.Views)
	}
}

func TestContentSaveIdenticalBodyKeepsModifyTime(t *testing.T) {
	s, clock := sqliteStores(t)

	first := mustSave(t, s.contents, &models.Content{Slug: "same", Title: "Same", Body: models.Text("body")})

	*clock = clock.Add(time.Hour)
	second := mustSave(t, s.contents, &models.Content{ID: first.ID, Title: "Renamed", Body: models.Text("body")})

	if second.ModifyTime != first.ModifyTime {
		t.Errorf("modify_time: got %d, want %d", second.ModifyTime, first.ModifyTime)
	}
	if second.ContentHash != first.ContentHash {
		t.Errorf("content_hash changed: %q -> %q", first.ContentHash, second.ContentHash)
	}
	if second.Title != "Renamed" {
		t.Errorf("title: got %q, want %q", second.Title, "Renamed")
	}
	if second.Slug != "same" {
		t.Errorf("slug: got %q, want it kept", second.Slug)
	}
}

func TestContentSaveHashComparisonIgnoresCase(t *testing.T) {
	s, clock := sqliteStores(t)

	first := mustSave(t, s.contents, &models.Content{Slug: "upper", Title: "Upper", Body: models.Text("body")})
	upper := strings.ToUpper(first.ContentHash)
	if _, err := s.db.Exec("UPDATE contents SET content_hash = ? WHERE id = ?", upper, first.ID); err != nil {
		t.Fatalf("rewrite hash: %v", err)
	}

	*clock = clock.Add(time.Minute)
	second := mustSave(t, s.contents, &models.Content{Slug: "upper", Title: "Upper", Body: models.Text("body")})

	if second.ModifyTime != first.ModifyTime {
		t.Errorf("modify_time: got %d, want %d", second.ModifyTime, first.ModifyTime)
	}
	if second.ContentHash != upper {
		t.Errorf("content_hash: got %q, want stored %q", second.ContentHash, upper)
	}
}

func TestContentSaveChangedBodyBumpsModifyTime(t *testing.T) {
	s, clock := sqliteStores(t)

	first := mustSave(t, s.contents, &models.Content{Slug: "edit", Title: "Edit", Body: models.Text("v1")})
	if _, err := s.contents.PushCountView(t.Context(), first.ID, 7); err != nil {
		t.Fatalf("PushCountView: %v", err)
	}

	*clock = clock.Add(time.Hour)
	second := mustSave(t, s.contents, &models.Content{Slug: "edit", Title: "Edit", Body: models.Text("v2")})

	if second.ID != first.ID {
		t.Fatalf("slug match: got id %d, want %d", second.ID, first.ID)
	}
	if second.ModifyTime != clock.Unix() {
		t.Errorf("modify_time: got %d, want %d", second.ModifyTime, clock.Unix())
	}
	if second.ContentHash != models.ContentHash(models.Text("v2")) {
		t.Errorf("content_hash: got %q", second.ContentHash)
	}
	if second.CreateTime != first.CreateTime {
		t.Errorf("create_time: got %d, want %d", second.CreateTime, first.CreateTime)
	}
	if second.Views != 7 {
		t.Errorf("views: got %d, want 7", second.Views)
	}

	third := mustSave(t, s.contents, &models.Content{ID: first.ID, Title: "Edit", Body: models.Text("v3"), ModifyTime: 5})
	if third.ModifyTime != 5 {
		t.Errorf("caller modify_time: got %d, want 5", third.ModifyTime)
	}
}

func TestContentSaveUnknownID(t *testing.T) {
	s, _ := sqliteStores(t)

	_, err := s.contents.Save(t.Context(), &models.Content{ID: 999, Slug: "ghost", Title: "Ghost"})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("Save: got %v, want sql.ErrNoRows", err)
	}

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM contents").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("rows after failed save: got %d, want 0", n)
	}
}

func TestContentSaveRefreshesCategoryCounts(t *testing.T) {
	s, _ := sqliteStores(t)
	ctx := t.Context()

	news, err := s.categories.Create(ctx, &models.Category{Name: "News", Slug: "news"})
	if err != nil {
		t.Fatalf("Create news: %v", err)
	}
	misc, err := s.categories.Create(ctx, &models.Category{Name: "Misc", Slug: "misc"})
	if err != nil {
		t.Fatalf("Create misc: %v", err)
	}

	a := mustSave(t, s.contents, &models.Content{Slug: "a", Title: "A", CategoryID: &news.ID})
	mustSave(t, s.contents, &models.Content{Slug: "b", Title: "B", CategoryID: &news.ID})

	if got, _ := s.categories.FindByID(ctx, news.ID); got.CountItem != 2 {
		t.Errorf("news count: got %d, want 2", got.CountItem)
	}

	mustSave(t, s.contents, &models.Content{ID: a.ID, Title: "A", CategoryID: &misc.ID})

	if got, _ := s.categories.FindByID(ctx, news.ID); got.CountItem != 1 {
		t.Errorf("news count after move: got %d, want 1", got.CountItem)
	}
	if got, _ := s.categories.FindByID(ctx, misc.ID); got.CountItem != 1 {
		t.Errorf("misc count after move: got %d, want 1", got.CountItem)
	}
	n, err := s.contents.CategoryCount(ctx, misc.ID)
	if err != nil {
		t.Fatalf("CategoryCount: %v", err)
	}
	if n != 1 {
		t.Errorf("CategoryCount: got %d, want 1", n)
	}
}

func TestContentPushCountViewConcurrent(t *testing.T) {
	s, _ := sqliteStores(t)
	item := mustSave(t, s.contents, &models.Content{Slug: "popular", Title: "Popular"})

	const workers = 20
	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			_, err := s.contents.PushCountView(t.Context(), item.ID, 1)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("PushCountView: %v", err)
	}

	got, err := s.contents.FindByID(t.Context(), item.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Views != workers {
		t.Errorf("views: got %d, want %d", got.Views, workers)
	}

	ok, err := s.contents.PushCountView(t.Context(), 12345, 1)
	if err != nil {
		t.Fatalf("PushCountView missing: %v", err)
	}
	if ok {
		t.Error("expected no row affected for a missing id")
	}
}

func TestContentNeighbors(t *testing.T) {
	s, _ := sqliteStores(t)
	ctx := t.Context()

	save := func(slug string, created int64, status models.ContentStatus) *models.Content {
		return mustSave(t, s.contents, &models.Content{Slug: slug, Title: slug, CreateTime: created, Status: status})
	}
	first := save("first", 100, models.ContentStatusPublished)
	save("hidden", 150, models.ContentStatusDraft)
	middle := save("middle", 200, models.ContentStatusPublished)
	last := save("last", 300, models.ContentStatusPublished)

	prev, next, err := s.contents.Near(ctx, middle.ID)
	if err != nil {
		t.Fatalf("Near: %v", err)
	}
	if prev == nil || prev.ID != first.ID {
		t.Errorf("prev: got %+v, want %q (drafts skipped)", prev, "first")
	}
	if next == nil || next.ID != last.ID {
		t.Errorf("next: got %+v, want %q", next, "last")
	}

	prev, _, err = s.contents.NearByTime(ctx, first.CreateTime)
	if err != nil {
		t.Fatalf("NearByTime: %v", err)
	}
	if prev != nil {
		t.Errorf("prev of first: got %+v, want nil", prev)
	}
	_, next, err = s.contents.NearByTime(ctx, last.CreateTime)
	if err != nil {
		t.Fatalf("NearByTime: %v", err)
	}
	if next != nil {
		t.Errorf("next of last: got %+v, want nil", next)
	}

	prev, next, err = s.contents.Near(ctx, 9999)
	if err != nil || prev != nil || next != nil {
		t.Errorf("Near(unknown): got %v, %v, %v; want nil, nil, nil", prev, next, err)
	}
}

func TestContentGetByIDOrSlug(t *testing.T) {
	s, _ := sqliteStores(t)
	ctx := t.Context()
	item := mustSave(t, s.contents, &models.Content{Slug: "by-ref", Title: "By Ref", Body: models.Text("x")})
	numeric := mustSave(t, s.contents, &models.Content{Slug: "2024", Title: "Numeric slug"})

	for _, ref := range []string{"by-ref", "1"} {
		got, err := s.contents.Get(ctx, ref)
		if err != nil {
			t.Fatalf("Get(%q): %v", ref, err)
		}
		if got == nil || got.ID != item.ID {
			t.Errorf("Get(%q): got %+v, want id %d", ref, got, item.ID)
		}
	}

	got, err := s.contents.Get(ctx, "2024")
	if err != nil {
		t.Fatalf("Get numeric slug: %v", err)
	}
	if got == nil || got.ID != numeric.ID {
		t.Errorf("Get numeric slug: got %+v, want id %d", got, numeric.ID)
	}

	got, err = s.contents.Get(ctx, "missing")
	if err != nil || got != nil {
		t.Errorf("Get(missing): got %+v, %v; want nil, nil", got, err)
	}
}

func TestContentSavePostgres(t *testing.T) {
	db := testDB(t)
	clock := time.Now().Truncate(time.Second)
	s := newTestStores(db, query.Postgres, &clock)

	slug := "test-save-" + uuid.NewString()[:8]
	t.Cleanup(func() { cleanContent(t, db, slug) })

	first := mustSave(t, s.contents, &models.Content{Slug: slug, Title: "PG", Body: models.Text("v1")})
	if _, err := s.contents.PushCountView(t.Context(), first.ID, 3); err != nil {
		t.Fatalf("PushCountView: %v", err)
	}

	clock = clock.Add(time.Hour)
	same := mustSave(t, s.contents, &models.Content{Slug: slug, Title: "PG", Body: models.Text("v1")})
	if same.ModifyTime != first.ModifyTime {
		t.Errorf("modify_time on identical body: got %d, want %d", same.ModifyTime, first.ModifyTime)
	}

	changed := mustSave(t, s.contents, &models.Content{Slug: slug, Title: "PG", Body: models.Text("v2")})
	if changed.ModifyTime != clock.Unix() {
		t.Errorf("modify_time on changed body: got %d, want %d", changed.ModifyTime, clock.Unix())
	}
	if changed.Views != 3 {
		t.Errorf("views: got %d, want 3", changed.Views)
	}
}

func TestContentSaveFieldsKeepsOmittedColumns(t *testing.T) {
	s, clock := sqliteStores(t)
	ctx := t.Context()

	news, err := s.categories.Create(ctx, &models.Category{Name: "News", Slug: "news"})
	if err != nil {
		t.Fatalf("Create news: %v", err)
	}
	author, err := s.users.Create(ctx, "author", "author@example.com", "secret")
	if err != nil {
		t.Fatalf("Create author: %v", err)
	}

	first := mustSave(t, s.contents, &models.Content{
		Slug:        "kept",
		Title:       "Kept",
		Body:        models.Text("v1"),
		Stick:       1,
		UserID:      &author.ID,
		CategoryID:  &news.ID,
		Status:      models.ContentStatusPublished,
		Description: "d",
		Image:       "cover.png",
	})

	*clock = clock.Add(time.Hour)
	second, err := s.contents.SaveFields(ctx, &models.Content{
		Slug:  "kept",
		Title: "Kept again",
		Body:  models.Text("v2"),
	}, models.FieldSlug|models.FieldTitle|models.FieldBody)
	if err != nil {
		t.Fatalf("SaveFields: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("slug match: got id %d, want %d", second.ID, first.ID)
	}
	if second.Status != models.ContentStatusPublished || second.Stick != 1 {
		t.Errorf("status/stick: got %d/%d, want published/1", second.Status, second.Stick)
	}
	if second.CategoryID == nil || *second.CategoryID != news.ID {
		t.Errorf("category: got %v, want %d", second.CategoryID, news.ID)
	}
	if second.UserID == nil || *second.UserID != author.ID {
		t.Errorf("user_id: got %v, want %d", second.UserID, author.ID)
	}
	if second.Description != "d" || second.Image != "cover.png" {
		t.Errorf("description/image: got %q/%q", second.Description, second.Image)
	}
	if second.Title != "Kept again" || second.Body.RawText() != "v2" {
		t.Errorf("title/body: got %q/%q", second.Title, second.Body.RawText())
	}
	if second.ModifyTime != clock.Unix() {
		t.Errorf("modify_time: got %d, want %d", second.ModifyTime, clock.Unix())
	}

	if got, _ := s.categories.FindByID(ctx, news.ID); got.CountItem != 1 {
		t.Errorf("news count: got %d, want 1", got.CountItem)
	}
	page, err := s.contents.List(ctx, models.ContentFilter{Page: 1, Row: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 1 {
		t.Errorf("published total: got %d, want 1", page.Total)
	}
}

func TestContentSaveFieldsTitleOnlyLeavesBody(t *testing.T) {
	s, clock := sqliteStores(t)

	first := mustSave(t, s.contents, &models.Content{Slug: "body", Title: "Body", Body: models.Text("kept")})

	*clock = clock.Add(time.Hour)
	second, err := s.contents.SaveFields(t.Context(), &models.Content{Slug: "body", Title: "Renamed"},
		models.FieldSlug|models.FieldTitle)
	if err != nil {
		t.Fatalf("SaveFields: %v", err)
	}
	if second.Body.RawText() != "kept" || second.ContentHash != first.ContentHash {
		t.Errorf("body: got %q (%s), want it untouched", second.Body.RawText(), second.ContentHash)
	}
	if second.ModifyTime != first.ModifyTime {
		t.Errorf("modify_time: got %d, want %d", second.ModifyTime, first.ModifyTime)
	}
}

func TestContentSaveGeneratesSlug(t *testing.T) {
	s, _ := sqliteStores(t)

	a := mustSave(t, s.contents, &models.Content{Title: "Hello World"})
	b := mustSave(t, s.contents, &models.Content{Title: "Hello World"})
	c := mustSave(t, s.contents, &models.Content{Title: "!!!"})

	if a.Slug != "hello-world" || b.Slug != "hello-world-2" {
		t.Errorf("slugs: got %q, %q", a.Slug, b.Slug)
	}
	if len(c.Slug) != 8 {
		t.Errorf("fallback slug: got %q, want 8 characters", c.Slug)
	}
}

func TestContentSaveRetriesClaimedSlug(t *testing.T) {
	s, _ := sqliteStores(t)
	mustSave(t, s.contents, &models.Content{Slug: "claimed", Title: "Claimed"})

	// The first lookup misses the row, as it would when another writer
	// commits between the lookup and the insert.
	calls := 0
	s.contents.slugTaken = func(ctx context.Context, q DBTX, candidate string) (bool, error) {
		calls++
		if calls == 1 {
			return false, nil
		}
		return s.contents.slugExists(ctx, q, candidate)
	}

	saved, err := s.contents.Save(t.Context(), &models.Content{Title: "Claimed"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.Slug != "claimed-2" {
		t.Errorf("slug: got %q, want %q", saved.Slug, "claimed-2")
	}
}

func TestContentSaveGivesUpOnPersistentConflict(t *testing.T) {
	s, _ := sqliteStores(t)
	mustSave(t, s.contents, &models.Content{Slug: "claimed", Title: "Claimed"})

	s.contents.slugTaken = func(context.Context, DBTX, string) (bool, error) { return false, nil }

	_, err := s.contents.Save(t.Context(), &models.Content{Title: "Claimed"})
	if !database.IsUniqueViolation(err) {
		t.Fatalf("Save: got %v, want a unique violation", err)
	}
}

func TestContentSaveConcurrentSameTitle(t *testing.T) {
	s, _ := sqliteStores(t)

	const writers = 8
	slugs := make([]string, writers)
	var g errgroup.Group
	for i := range writers {
		g.Go(func() error {
			saved, err := s.contents.Save(t.Context(), &models.Content{Title: "Same Title"})
			if err != nil {
				return err
			}
			slugs[i] = saved.Slug
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	seen := make(map[string]bool)
	for _, sl := range slugs {
		if seen[sl] {
			t.Errorf("slug %q handed out twice", sl)
		}
		seen[sl] = true
	}
}
