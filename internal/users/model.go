package users

import (
	"regexp"
	"time"
)

// Roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account statuses. Only active accounts may authenticate.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

// Themes.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

const (
	minNameLen     = 2
	minPasswordLen = 6
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Preferences are per-user display settings.
type Preferences struct {
	Theme    string `json:"theme"`
	Language string `json:"language"`
}

// User is an account. PasswordHash never leaves the service.
type User struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	Role         string      `json:"role"`
	Status       string      `json:"status"`
	Preferences  Preferences `json:"preferences"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

func defaultPreferences() Preferences {
	return Preferences{Theme: ThemeLight, Language: "en"}
}

func validRole(r string) bool {
	return r == RoleUser || r == RoleAdmin
}

func validStatus(s string) bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

func validTheme(t string) bool {
	return t == ThemeLight || t == ThemeDark
}
