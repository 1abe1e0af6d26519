package domain

import (
	"fmt"
	"strings"
)

// User is an account able to log in. Users are immutable once registered.
type User struct {
	ID           int
	Username     string
	Email        string
	PasswordHash string
	Role         Role
}

// NewUser validates the fields of a user about to be registered.
func NewUser(id int, username, email, passwordHash string, role Role) (User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || passwordHash == "" {
		return User{}, fmt.Errorf("%w: username, email and password are required", ErrInvalidInput)
	}
	if _, err := ParseRole(string(role)); err != nil {
		return User{}, err
	}
	return User{ID: id, Username: username, Email: email, PasswordHash: passwordHash, Role: role}, nil
}

// HasEmail compares emails case-insensitively.
func (u User) HasEmail(email string) bool {
	return strings.EqualFold(u.Email, email)
}

// HasUsername compares usernames case-insensitively.
func (u User) HasUsername(username string) bool {
	return strings.EqualFold(u.Username, username)
}

// NextUserID returns max(existing ids, 0) + 1.
func NextUserID(users []User) int {
	highest := 0
	for _, u := range users {
		if u.ID > highest {
			highest = u.ID
		}
	}
	return highest + 1
}
