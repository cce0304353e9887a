package domain

import (
	"errors"
	"strings"
	"time"
)

// User is the reference target for organization owners, memberships and invitations.
// Credentials and profile management live in the external identity service.
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return errors.New("id is required")
	}
	if strings.TrimSpace(u.Email) == "" {
		return errors.New("email is required")
	}
	return nil
}
