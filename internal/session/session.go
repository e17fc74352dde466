// Package session keeps per-browser key-value state, the server-side
// counterpart of the browser's local storage.
package session

import (
	"encoding/json"
	"fmt"
)

// UserKey is the key holding the JSON-encoded signed-in user
const UserKey = "user"

// Store is the key-value state of one browser session
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}

// Provider hands out the Store of a session id
type Provider interface {
	For(id string) Store
}

// UserType distinguishes employees from administrators
type UserType string

const (
	Employee UserType = "Employee"
	Admin    UserType = "Admin"
)

// User is the identity saved at login
type User struct {
	Type  UserType `json:"type"`
	Email string   `json:"email,omitempty"`
}

// CurrentUser decodes the signed-in user. A nil store, a missing key or a
// corrupted value all mean nobody is signed in.
func CurrentUser(s Store) (*User, bool) {
	if s == nil {
		return nil, false
	}
	raw, ok := s.Get(UserKey)
	if !ok || raw == "" {
		return nil, false
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, false
	}
	return &u, true
}

// SetUser records u as the signed-in user
func SetUser(s Store, u User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}
	return s.Set(UserKey, string(data))
}
