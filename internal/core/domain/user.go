package domain

import (
	"strings"
	"time"
)

// DefaultAvatar is the sentinel image assigned to users who never uploaded one.
// It is never deleted when a user replaces their avatar.
const DefaultAvatar = "default.jpg"

// User models a registered author.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	AvatarFile   string    `json:"avatar_file"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasCustomAvatar reports whether the user's avatar is an uploaded file.
func (u *User) HasCustomAvatar() bool {
	return u.AvatarFile != "" && u.AvatarFile != DefaultAvatar
}

// NormalizeEmail lower-cases and trims an address so that lookups and the
// uniqueness constraint see one canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
