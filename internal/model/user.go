package model

import "time"

// Role values stored in users.role. ADMIN may manage any account,
// MODERATOR may manage categories and tags, USER owns only their posts.
const (
	RoleUser      = "USER"
	RoleModerator = "MODERATOR"
	RoleAdmin     = "ADMIN"
)

// ValidRole reports whether s is one of the known role names.
func ValidRole(s string) bool {
	return s == RoleUser || s == RoleModerator || s == RoleAdmin
}

// User mirrors the `users` table. PasswordHash never leaves the handler
// layer; response types strip it. Accounts are soft-deleted by flipping
// IsActive, never removed, so historical post ownership stays intact.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email (unique, stored lower-case)
	Name         string    // users.name
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Profile mirrors the `profiles` table, a one-to-one extension of users.
// Both fields are optional.
type Profile struct {
	UserID uint64  // profiles.user_id (unique)
	Bio    *string // profiles.bio
	Avatar *string // profiles.avatar
}
