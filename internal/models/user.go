// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

// AdminGroup is the group given to the first registered user.
const AdminGroup int64 = 1

// User represents an account that can sign in and own content.
type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"` // Never serialize the hash
	Avatar       *int64 `json:"avatar,omitempty"`
	GroupID      *int64 `json:"group,omitempty"`
	CreateTime   int64  `json:"create_time"`
}

// HasAvatar returns true if an avatar resource is assigned.
func (u *User) HasAvatar() bool {
	return u.Avatar != nil
}
