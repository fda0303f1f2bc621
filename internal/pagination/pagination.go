// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package pagination defines 1-based page windows and the page envelope
// returned by listing queries.
package pagination

const (
	// DefaultSize is used when a caller asks for a non-positive page size.
	DefaultSize = 10
	// MaxSize caps the page size a caller can request.
	MaxSize = 100
)

// Window is a normalized page request.
type Window struct {
	Page int
	Size int
}

// New normalizes a page request: pages start at 1 and sizes are clamped to
// [1, MaxSize], with DefaultSize for non-positive values.
func New(page, size int) Window {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	return Window{Page: page, Size: size}
}

// Offset is the number of rows before the window.
func (w Window) Offset() int {
	return (w.Page - 1) * w.Size
}

// Page is one window of results plus totals for the whole result set.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Pages int `json:"pages"`
}

// NewPage builds a page envelope. Items is never nil so an out-of-range
// page serializes as an empty list.
func NewPage[T any](w Window, total int, items []T) *Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if total > 0 {
		pages = (total + w.Size - 1) / w.Size
	}
	return &Page[T]{Items: items, Total: total, Page: w.Page, Size: w.Size, Pages: pages}
}

// HasNext reports whether a later page exists.
func (p *Page[T]) HasNext() bool {
	return p.Page < p.Pages
}
