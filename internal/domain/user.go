// Package domain contains identity types and their validation rules,
// no transport or lifecycle logic.
package domain

import (
	"errors"
	"strings"
)

const MaxUsernameLen = 36

// Reserved identity for server-originated chat messages (welcome line etc.).
const (
	SystemID       = "system"
	SystemUsername = "system"
)

var (
	ErrUsernameEmpty   = errors.New("username empty")
	ErrUsernameTooLong = errors.New("username too long")
)

// User is the presence entry for one joined session. ID is the session's
// client id, not a durable account id.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// CleanUsername normalizes a submitted display name. Whitespace-only names
// count as empty.
func CleanUsername(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if len(name) == 0 {
		return "", ErrUsernameEmpty
	}
	if len(name) > MaxUsernameLen {
		return "", ErrUsernameTooLong
	}
	return name, nil
}
