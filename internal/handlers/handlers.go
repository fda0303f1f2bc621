// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the JSON HTTP API over the content,
// category, tag and account services.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"clomery/internal/middleware"
	"clomery/internal/models"
)

// maxBodyBytes caps request bodies. It leaves room for a maximal article
// body plus the remaining fields.
const maxBodyBytes = 1 << 20

// errorResponse is the envelope for every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// internalError logs err with the request id and answers 500 without
// leaking the cause.
func internalError(w http.ResponseWriter, r *http.Request, msg string, err error, attrs ...any) {
	args := append([]any{"request_id", middleware.RequestIDFromCtx(r.Context()), "error", err}, attrs...)
	slog.Error(msg, args...)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// decodeJSON reads a single JSON object into dst. Unknown fields are
// rejected so typos do not silently drop values.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, "request body is empty")
		default:
			writeError(w, http.StatusBadRequest, "malformed JSON")
		}
		return false
	}
	if dec.More() {
		writeError(w, http.StatusBadRequest, "request body must hold a single object")
		return false
	}
	return true
}

// decodeValid decodes dst and checks its validation tags, answering 400
// on any failure.
func decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !decodeJSON(w, r, dst) {
		return false
	}
	if msg := validatePayload(dst); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return false
	}
	return true
}

// pathID parses a positive integer URL parameter, answering 400 otherwise.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// listFilter reads the listing query parameters. Malformed values fall
// back to their defaults instead of failing the request.
func listFilter(r *http.Request, pageSize int) models.ContentFilter {
	q := r.URL.Query()
	f := models.ContentFilter{
		Page: atoi(q.Get("page")),
		Row:  atoi(q.Get("row")),
	}
	if f.Row == 0 {
		f.Row = pageSize
	}
	if s := q.Get("search"); s != "" {
		f.Search = &s
	}
	if c := q.Get("category"); c != "" {
		f.Category = &c
	}
	for _, part := range strings.Split(q.Get("tags"), ",") {
		if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
			f.Tags = append(f.Tags, id)
		}
	}
	if q.Get("field") == "create_time" {
		f.Field = models.SortCreateTime
	}
	if strings.EqualFold(q.Get("order"), "asc") {
		f.Order = models.OrderAsc
	}
	return f
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
