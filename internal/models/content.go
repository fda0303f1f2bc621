// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"crypto/md5"
	"encoding/hex"
)

// ContentStatus represents the publishing state of a content item. Values
// other than the named ones are allowed and are simply not listed publicly.
type ContentStatus int

const (
	ContentStatusDraft     ContentStatus = 0
	ContentStatusPublished ContentStatus = 1
)

// Body is the raw text of a content item. Whatever representation the body
// has (plain text, markdown source), RawText returns the form that is
// stored and hashed.
type Body interface {
	RawText() string
}

// Text is a plain-text body.
type Text string

// RawText returns the text unchanged.
func (t Text) RawText() string { return string(t) }

// ContentHash returns the lower-case hex MD5 of the body's raw text.
// A nil body hashes like the empty string.
func ContentHash(b Body) string {
	var raw string
	if b != nil {
		raw = b.RawText()
	}
	sum := md5.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Content is an article. Times are epoch seconds; zero means "unset" on
// input to the store, which then fills in the current time.
type Content struct {
	ID          int64         `json:"id"`
	Slug        string        `json:"slug"`
	Title       string        `json:"title"`
	Body        Body          `json:"content,omitempty"`
	ContentHash string        `json:"content_hash,omitempty"`
	Stick       int           `json:"stick"`
	UserID      *int64        `json:"user,omitempty"`
	CategoryID  *int64        `json:"category,omitempty"`
	Views       int64         `json:"views"`
	CreateTime  int64         `json:"create_time"`
	ModifyTime  int64         `json:"modify_time"`
	Status      ContentStatus `json:"status"`
	Description string        `json:"description"`
	Image       string        `json:"image"`
}

// ContentField names a writable column of a content item. Fields combine
// into a mask that tells the store which columns an update supplies.
type ContentField uint16

const (
	FieldSlug ContentField = 1 << iota
	FieldTitle
	FieldBody
	FieldStick
	FieldUserID
	FieldCategory
	FieldStatus
	FieldDescription
	FieldImage
	FieldCreateTime
	FieldModifyTime

	// AllContentFields writes every column.
	AllContentFields = FieldModifyTime<<1 - 1
)

// Has reports whether every field of f2 is in f.
func (f ContentField) Has(f2 ContentField) bool {
	return f&f2 == f2
}

// IsPublished returns true if the content item is in published status.
func (c *Content) IsPublished() bool {
	return c.Status == ContentStatusPublished
}

// IsSticky returns true if the item is pinned to the top of listings.
func (c *Content) IsSticky() bool {
	return c.Stick != 0
}

// SortField selects the secondary listing order after the pin flag.
type SortField int

const (
	SortModifyTime SortField = 0
	SortCreateTime SortField = 1
)

// SortOrder selects the direction of the secondary listing order.
type SortOrder int

const (
	OrderDesc SortOrder = 0
	OrderAsc  SortOrder = 1
)

// ContentFilter is a listing request. Every filter is optional; invalid
// values degrade to "no filter" rather than failing.
type ContentFilter struct {
	Search   *string
	Category *string // numeric id or slug
	Tags     []int64
	Page     int
	Row      int
	Field    SortField
	Order    SortOrder
}
