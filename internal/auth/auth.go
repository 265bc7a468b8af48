// Package auth checks dashboard credentials against the configured users.
package auth

import (
	"strings"

	"github.com/avelkov/chlens/internal/config"
	"golang.org/x/crypto/bcrypt"
)

// User is one authenticated dashboard login.
type User struct {
	Name string
	Role string // "admin" or "user"
}

// Manager holds the configured users.
type Manager struct {
	users map[string]config.UserConfig
}

// NewManager builds a manager from the configured user list.
func NewManager(users []config.UserConfig) *Manager {
	m := &Manager{users: make(map[string]config.UserConfig, len(users))}
	for _, u := range users {
		if u.Name == "" {
			continue
		}
		m.users[u.Name] = u
	}
	return m
}

// Authenticate checks a username/password pair. Stored passwords are bcrypt
// hashes; a non-hash value is compared directly to support hand-edited
// configs.
func (m *Manager) Authenticate(username, password string) (User, bool) {
	u, ok := m.users[username]
	if !ok {
		return User{}, false
	}
	if isBcryptHash(u.Password) {
		if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
			return User{}, false
		}
	} else if u.Password != password {
		return User{}, false
	}
	role := u.Role
	if role == "" {
		role = "user"
	}
	return User{Name: u.Name, Role: role}, true
}

// IsAdmin reports whether the named user exists with the admin role.
func (m *Manager) IsAdmin(username string) bool {
	u, ok := m.users[username]
	return ok && u.Role == "admin"
}

// Enabled reports whether any users are configured. With none configured the
// API skips authentication entirely.
func (m *Manager) Enabled() bool {
	return len(m.users) > 0
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
