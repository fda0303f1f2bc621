package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"clomery/internal/middleware"
	"clomery/internal/models"
	"clomery/internal/pagination"
	"clomery/internal/slug"
	"clomery/internal/store"
)

// Category groups the category and tag listing endpoints.
type Category struct {
	categories *store.CategoryStore
	tags       *store.TagStore
	contents   *store.ContentStore
	pageSize   int
}

// NewCategory creates the category and tag handler group.
func NewCategory(categories *store.CategoryStore, tags *store.TagStore, contents *store.ContentStore, pageSize int) *Category {
	return &Category{categories: categories, tags: tags, contents: contents, pageSize: pageSize}
}

// List handles GET /categories. With ?tree=1 the categories are nested
// under their parents; with ?flat=1 they come in tree order with depth set.
func (h *Category) List(w http.ResponseWriter, r *http.Request) {
	var (
		cats []models.Category
		err  error
	)
	q := r.URL.Query()
	tree, _ := strconv.ParseBool(q.Get("tree"))
	flat, _ := strconv.ParseBool(q.Get("flat"))
	switch {
	case tree:
		cats, err = h.categories.Tree(r.Context())
	case flat:
		cats, err = h.categories.FlatTree(r.Context())
	default:
		cats, err = h.categories.List(r.Context())
	}
	if err != nil {
		internalError(w, r, "list categories failed", err)
		return
	}
	if cats == nil {
		cats = []models.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}

type categoryPayload struct {
	Name        string `json:"name" validate:"notblank,max=100"`
	Slug        string `json:"slug" validate:"omitempty,max=100,slug"`
	Parent      *int64 `json:"parent" validate:"omitempty,gt=0"`
	Description string `json:"description" validate:"max=1000"`
	Image       string `json:"image" validate:"max=300"`
	Sort        int    `json:"sort"`
	Status      int    `json:"status" validate:"gte=0"`
}

// Create handles POST /categories.
func (h *Category) Create(w http.ResponseWriter, r *http.Request) {
	var p categoryPayload
	if !decodeValid(w, r, &p) {
		return
	}
	ctx := r.Context()

	if p.Parent != nil {
		parent, err := h.categories.FindByID(ctx, *p.Parent)
		if err != nil {
			internalError(w, r, "find parent category failed", err, "id", *p.Parent)
			return
		}
		if parent == nil {
			writeError(w, http.StatusBadRequest, "parent category does not exist")
			return
		}
	}

	c := &models.Category{
		ParentID:    p.Parent,
		Name:        strings.TrimSpace(p.Name),
		Slug:        p.Slug,
		Description: p.Description,
		Image:       p.Image,
		Sort:        p.Sort,
		Status:      p.Status,
	}
	if tok := middleware.TokenFromCtx(ctx); tok != nil {
		c.UserID = &tok.UserID
	}

	if c.Slug == "" {
		s, err := h.freeSlug(ctx, c.Name)
		if err != nil {
			internalError(w, r, "generate category slug failed", err, "name", c.Name)
			return
		}
		c.Slug = s
	} else {
		existing, err := h.categories.FindBySlug(ctx, c.Slug)
		if err != nil {
			internalError(w, r, "find category failed", err, "slug", c.Slug)
			return
		}
		if existing != nil {
			writeError(w, http.StatusConflict, "slug already in use")
			return
		}
	}

	created, err := h.categories.Create(ctx, c)
	if err != nil {
		internalError(w, r, "create category failed", err, "slug", c.Slug)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// categoryView is one category with the number of contents referencing
// it, counted live.
type categoryView struct {
	*models.Category
	Contents int `json:"contents"`
}

// Get handles GET /categories/{ref}, where ref is an id or a slug.
func (h *Category) Get(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	cat, err := h.categories.Resolve(r.Context(), ref)
	if err != nil {
		internalError(w, r, "resolve category failed", err, "ref", ref)
		return
	}
	if cat == nil {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}
	n, err := h.contents.CategoryCount(r.Context(), cat.ID)
	if err != nil {
		internalError(w, r, "count category contents failed", err, "category", cat.ID)
		return
	}
	writeJSON(w, http.StatusOK, categoryView{Category: cat, Contents: n})
}

// categoryPatch is the body of PATCH /categories/{id}. Absent fields keep
// their stored values.
type categoryPatch struct {
	Name        *string `json:"name" validate:"omitempty,notblank,max=100"`
	Slug        *string `json:"slug" validate:"omitempty,max=100,slug"`
	Parent      *int64  `json:"parent" validate:"omitempty,gt=0"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Image       *string `json:"image" validate:"omitempty,max=300"`
	Sort        *int    `json:"sort"`
	Status      *int    `json:"status" validate:"omitempty,gte=0"`
}

// Update handles PATCH /categories/{id}.
func (h *Category) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var p categoryPatch
	if !decodeValid(w, r, &p) {
		return
	}
	ctx := r.Context()

	c, err := h.categories.FindByID(ctx, id)
	if err != nil {
		internalError(w, r, "find category failed", err, "id", id)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}

	if p.Parent != nil {
		if *p.Parent == id {
			writeError(w, http.StatusBadRequest, "category cannot be its own parent")
			return
		}
		parent, err := h.categories.FindByID(ctx, *p.Parent)
		if err != nil {
			internalError(w, r, "find parent category failed", err, "id", *p.Parent)
			return
		}
		if parent == nil {
			writeError(w, http.StatusBadRequest, "parent category does not exist")
			return
		}
		c.ParentID = p.Parent
	}
	if p.Slug != nil && *p.Slug != c.Slug {
		existing, err := h.categories.FindBySlug(ctx, *p.Slug)
		if err != nil {
			internalError(w, r, "find category failed", err, "slug", *p.Slug)
			return
		}
		if existing != nil {
			writeError(w, http.StatusConflict, "slug already in use")
			return
		}
		c.Slug = *p.Slug
	}
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Image != nil {
		c.Image = *p.Image
	}
	if p.Sort != nil {
		c.Sort = *p.Sort
	}
	if p.Status != nil {
		c.Status = *p.Status
	}

	if _, err := h.categories.Update(ctx, c); err != nil {
		internalError(w, r, "update category failed", err, "id", id)
		return
	}
	updated, err := h.categories.FindByID(ctx, id)
	if err != nil {
		internalError(w, r, "reload category failed", err, "id", id)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Category) freeSlug(ctx context.Context, name string) (string, error) {
	base := slug.Generate(name)
	if base == "" {
		base = "category"
	}
	return slug.Unique(base, func(candidate string) (bool, error) {
		c, err := h.categories.FindBySlug(ctx, candidate)
		return c != nil, err
	})
}

// categoryListing is a page of articles in one category.
type categoryListing struct {
	Category *models.Category                 `json:"category"`
	Articles *pagination.Page[models.Content] `json:"articles"`
}

// Articles handles GET /categories/{ref}/articles, where ref is an id or
// a slug.
func (h *Category) Articles(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	cat, err := h.categories.Resolve(r.Context(), ref)
	if err != nil {
		internalError(w, r, "resolve category failed", err, "ref", ref)
		return
	}
	if cat == nil {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}

	f := listFilter(r, h.pageSize)
	id := strconv.FormatInt(cat.ID, 10)
	f.Category = &id
	page, err := h.contents.List(r.Context(), f)
	if err != nil {
		internalError(w, r, "list category articles failed", err, "category", cat.ID)
		return
	}
	writeJSON(w, http.StatusOK, categoryListing{Category: cat, Articles: page})
}

// Tags handles GET /tags.
func (h *Category) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tags.List(r.Context())
	if err != nil {
		internalError(w, r, "list tags failed", err)
		return
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	writeJSON(w, http.StatusOK, tags)
}

// tagListing is a page of articles carrying one tag.
type tagListing struct {
	Tag      *models.Tag                      `json:"tag"`
	Articles *pagination.Page[models.Content] `json:"articles"`
}

// TagArticles handles GET /tags/{name}/articles.
func (h *Category) TagArticles(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	tag, err := h.tags.FindByName(r.Context(), name)
	if err != nil {
		internalError(w, r, "find tag failed", err, "tag", name)
		return
	}
	if tag == nil {
		writeError(w, http.StatusNotFound, "tag not found")
		return
	}

	f := listFilter(r, h.pageSize)
	f.Tags = []int64{tag.ID}
	page, err := h.contents.List(r.Context(), f)
	if err != nil {
		internalError(w, r, "list tag articles failed", err, "tag", tag.ID)
		return
	}
	writeJSON(w, http.StatusOK, tagListing{Tag: tag, Articles: page})
}
