// Package validation checks request payloads before they reach the services.
package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gamestore-dxp/apiserver/types"
)

const MinPasswordLength = 6

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error lists every failing field of a payload.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// IsValidationError reports whether err carries field errors.
func IsValidationError(err error) bool {
	var verr *Error
	return errors.As(err, &verr)
}

type collector struct {
	fields []FieldError
}

func (c *collector) add(field, message string) {
	c.fields = append(c.fields, FieldError{Field: field, Message: message})
}

func (c *collector) err() error {
	if len(c.fields) == 0 {
		return nil
	}
	return &Error{Fields: c.fields}
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateRegister checks a registration payload. On success it returns the
// parsed birthdate, nil when none was given.
func ValidateRegister(email, password, birthdate string, now time.Time) (*time.Time, error) {
	var c collector
	checkEmail(&c, email)
	if password == "" {
		c.add("password", "is required")
	} else if utf8.RuneCountInString(password) < MinPasswordLength {
		c.add("password", fmt.Sprintf("must be at least %d characters long", MinPasswordLength))
	}

	var born *time.Time
	if raw := strings.TrimSpace(birthdate); raw != "" {
		parsed, err := parseDate(raw)
		switch {
		case err != nil:
			c.add("birthdate", "must be an ISO 8601 date")
		case parsed.After(now):
			c.add("birthdate", "must not be in the future")
		default:
			born = &parsed
		}
	}
	if err := c.err(); err != nil {
		return nil, err
	}
	return born, nil
}

func ValidateLogin(email, password string) error {
	var c collector
	checkEmail(&c, email)
	if password == "" {
		c.add("password", "is required")
	}
	return c.err()
}

// ValidateReview checks rating bounds and title/content lengths in characters.
func ValidateReview(rating int, title, content string) error {
	var c collector
	if rating < types.MinRating || rating > types.MaxRating {
		c.add("rating", fmt.Sprintf("must be between %d and %d", types.MinRating, types.MaxRating))
	}
	checkText(&c, "title", title, types.MaxReviewTitleLength)
	checkText(&c, "content", content, types.MaxReviewContentLength)
	return c.err()
}

func ValidateRecentlyViewed(gameSlug string) error {
	var c collector
	if strings.TrimSpace(gameSlug) == "" {
		c.add("gameSlug", "is required")
	}
	return c.err()
}

func ValidateEntryUID(entryUID string) error {
	var c collector
	if strings.TrimSpace(entryUID) == "" {
		c.add("entryUid", "is required")
	}
	return c.err()
}

func checkEmail(c *collector, email string) {
	email = strings.TrimSpace(email)
	if email == "" {
		c.add("email", "is required")
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		c.add("email", "must be a valid email address")
	}
}

func checkText(c *collector, field, value string, max int) {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	switch {
	case n == 0:
		c.add(field, "is required")
	case utf8.RuneCountInString(value) > max:
		c.add(field, fmt.Sprintf("must be at most %d characters", max))
	}
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, raw)
}
