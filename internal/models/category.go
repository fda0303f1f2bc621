// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// Category represents a hierarchical content category.
// Items reference at most one category.
type Category struct {
	ID          int64  `json:"id"`
	ParentID    *int64 `json:"parent,omitempty"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Image       string `json:"image"`
	UserID      *int64 `json:"user,omitempty"`
	Sort        int    `json:"sort"`
	CreateTime  int64  `json:"create_time"`
	CountItem   int    `json:"count_item"`
	Status      int    `json:"status"`

	// Virtual fields populated by store methods.
	Children []Category `json:"children,omitempty"`
	Depth    int        `json:"depth"`
}

// Tag is a named label attached to content through tag relations.
type Tag struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CreateTime int64  `json:"create_time"`
	CountItem  int    `json:"count_item"`
	Status     int    `json:"status"`
}

// TagRelation is a many-to-many edge between a tag (Item) and a content
// item (Relate).
type TagRelation struct {
	Item   int64 `json:"item"`
	Relate int64 `json:"relate"`
}
