// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"clomery/internal/markdown"
	"clomery/internal/metrics"
	"clomery/internal/middleware"
	"clomery/internal/models"
	"clomery/internal/store"
)

// Content groups the article endpoints.
type Content struct {
	contents *store.ContentStore
	tags     *store.TagStore
	metrics  *metrics.Metrics
	pageSize int
}

// NewContent creates the article handler group. pageSize is the listing
// size used when a request does not ask for one.
func NewContent(contents *store.ContentStore, tags *store.TagStore, m *metrics.Metrics, pageSize int) *Content {
	return &Content{contents: contents, tags: tags, metrics: m, pageSize: pageSize}
}

// articleView is a single article with its rendered body and tags.
type articleView struct {
	*models.Content
	HTML string       `json:"html"`
	Tags []models.Tag `json:"tags"`
}

// List handles GET /articles.
func (h *Content) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.contents.List(r.Context(), listFilter(r, h.pageSize))
	if err != nil {
		internalError(w, r, "list articles failed", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Get handles GET /articles/{ref}, where ref is an id or a slug.
func (h *Content) Get(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	c, err := h.contents.Get(r.Context(), ref)
	if err != nil {
		internalError(w, r, "get article failed", err, "ref", ref)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "article not found")
		return
	}
	view, err := h.view(r.Context(), c)
	if err != nil {
		internalError(w, r, "render article failed", err, "id", c.ID)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Content) view(ctx context.Context, c *models.Content) (*articleView, error) {
	var raw string
	if c.Body != nil {
		raw = c.Body.RawText()
	}
	html, err := markdown.Document(raw).HTML()
	if err != nil {
		return nil, err
	}
	tags, err := h.tags.TagsOf(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	return &articleView{Content: c, HTML: html, Tags: tags}, nil
}

// neighbors is the response of the near endpoint. Either side may be null.
type neighbors struct {
	Prev *models.Content `json:"prev"`
	Next *models.Content `json:"next"`
}

// Near handles GET /articles/{id}/near.
func (h *Content) Near(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	prev, next, err := h.contents.Near(r.Context(), id)
	if err != nil {
		internalError(w, r, "find neighbors failed", err, "id", id)
		return
	}
	writeJSON(w, http.StatusOK, neighbors{Prev: prev, Next: next})
}

// savePayload is the body of POST /articles. ID set means "update that
// item"; otherwise the item is matched by slug, or created. On update only
// the fields present in the body are written; the author is never changed.
type savePayload struct {
	ID          int64   `json:"id" validate:"gte=0"`
	Slug        string  `json:"slug" validate:"omitempty,max=300,slug"`
	Title       string  `json:"title" validate:"notblank,max=300"`
	Content     *string `json:"content" validate:"omitempty,max=100000"`
	Stick       *int    `json:"stick" validate:"omitempty,oneof=0 1"`
	Category    *int64  `json:"category" validate:"omitempty,gt=0"`
	Status      *int    `json:"status" validate:"omitempty,gte=0"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Image       *string `json:"image" validate:"omitempty,max=300"`
	CreateTime  *int64  `json:"create_time" validate:"omitempty,gte=0"`
	ModifyTime  *int64  `json:"modify_time" validate:"omitempty,gte=0"`
}

// item maps p onto a content item and names the fields it carries.
func (p *savePayload) item() (*models.Content, models.ContentField) {
	c := &models.Content{
		ID:    p.ID,
		Slug:  p.Slug,
		Title: strings.TrimSpace(p.Title),
	}
	fields := models.FieldSlug | models.FieldTitle
	if p.Content != nil {
		c.Body = markdown.Document(*p.Content)
		fields |= models.FieldBody
	}
	if p.Stick != nil {
		c.Stick = *p.Stick
		fields |= models.FieldStick
	}
	if p.Category != nil {
		c.CategoryID = p.Category
		fields |= models.FieldCategory
	}
	if p.Status != nil {
		c.Status = models.ContentStatus(*p.Status)
		fields |= models.FieldStatus
	}
	if p.Description != nil {
		c.Description = *p.Description
		fields |= models.FieldDescription
	}
	if p.Image != nil {
		c.Image = *p.Image
		fields |= models.FieldImage
	}
	if p.CreateTime != nil {
		c.CreateTime = *p.CreateTime
		fields |= models.FieldCreateTime
	}
	if p.ModifyTime != nil {
		c.ModifyTime = *p.ModifyTime
		fields |= models.FieldModifyTime
	}
	return c, fields
}

// Save handles POST /articles.
func (h *Content) Save(w http.ResponseWriter, r *http.Request) {
	var p savePayload
	if !decodeValid(w, r, &p) {
		return
	}
	ctx := r.Context()

	item, fields := p.item()
	// Written on insert only, since fields never names the author.
	if tok := middleware.TokenFromCtx(ctx); tok != nil {
		item.UserID = &tok.UserID
	}

	saved, err := h.contents.SaveFields(ctx, item, fields)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "article not found")
		return
	}
	if err != nil {
		internalError(w, r, "save article failed", err, "id", item.ID, "slug", item.Slug)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// Views handles POST /articles/{id}/views. Each request counts one view.
func (h *Content) Views(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	found, err := h.contents.PushCountView(r.Context(), id, 1)
	if err != nil {
		internalError(w, r, "push views failed", err, "id", id)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "article not found")
		return
	}
	h.metrics.AddViews(1)
	w.WriteHeader(http.StatusNoContent)
}

type tagsPayload struct {
	Tags []string `json:"tags" validate:"required,min=1,max=32,dive,notblank,max=64"`
}

// AttachTags handles POST /articles/{id}/tags, creating unknown tags and
// returning the article's full tag list.
func (h *Content) AttachTags(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var p tagsPayload
	if !decodeValid(w, r, &p) {
		return
	}
	ctx := r.Context()

	c, err := h.contents.FindByID(ctx, id)
	if err != nil {
		internalError(w, r, "find article failed", err, "id", id)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "article not found")
		return
	}

	for _, name := range p.Tags {
		tag, err := h.tags.FindOrCreate(ctx, strings.TrimSpace(name))
		if err != nil {
			internalError(w, r, "find or create tag failed", err, "tag", name)
			return
		}
		if err := h.tags.Relations().Attach(ctx, tag.ID, id); err != nil {
			internalError(w, r, "attach tag failed", err, "tag", name, "id", id)
			return
		}
	}

	tags, err := h.tags.TagsOf(ctx, id)
	if err != nil {
		internalError(w, r, "list article tags failed", err, "id", id)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// DetachTags handles DELETE /articles/{id}/tags/{name}.
func (h *Content) DetachTags(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	ctx := r.Context()

	tag, err := h.tags.FindByName(ctx, name)
	if err != nil {
		internalError(w, r, "find tag failed", err, "tag", name)
		return
	}
	if tag == nil {
		writeError(w, http.StatusNotFound, "tag not found")
		return
	}
	removed, err := h.tags.Relations().Detach(ctx, tag.ID, id)
	if err != nil {
		internalError(w, r, "detach tag failed", err, "tag", name, "id", id)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "article does not carry the tag")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
