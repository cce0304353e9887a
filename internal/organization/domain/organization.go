package domain

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"tenancy-control-plane/backend/internal/platform/apperr"
)

const (
	// MaxSlugLength is the maximum slug length in characters.
	MaxSlugLength = 16
	// MaxNameLength is the maximum display name length in characters.
	MaxNameLength = 64
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// Org represents an organization/tenant.
// OwnerID is empty once the owning user has been deleted; the organization survives.
type Org struct {
	ID          string
	Slug        string
	Name        string
	Description string
	Contact     map[string]any
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate validates the organization for persistence. Returns an invalid_argument error
// describing the first validation failure. A nil Contact is normalized to an empty object.
func (o *Org) Validate() error {
	if err := ValidateSlug(o.Slug); err != nil {
		return err
	}
	if utf8.RuneCountInString(o.Name) > MaxNameLength {
		return apperr.Invalid("name", "name must be at most 64 characters")
	}
	if o.Contact == nil {
		o.Contact = map[string]any{}
	}
	return nil
}

// ValidateSlug checks that slug is present, non-blank, at most 16 characters, and made of
// letters, digits, hyphens and underscores.
func ValidateSlug(slug string) error {
	if strings.TrimSpace(slug) == "" {
		return apperr.Invalid("slug", "slug is required")
	}
	if utf8.RuneCountInString(slug) > MaxSlugLength {
		return apperr.Invalid("slug", "slug must be at most 16 characters")
	}
	if !slugPattern.MatchString(slug) {
		return apperr.Invalid("slug", "slug may only contain letters, numbers, underscores or hyphens")
	}
	return nil
}
