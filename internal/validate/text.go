package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Text validation errors
var (
	ErrEmpty        = errors.New("value is empty")
	ErrTooShort     = errors.New("value is too short")
	ErrTooLong      = errors.New("value is too long")
	ErrTooMany      = errors.New("too many items")
	ErrInvalidEmail = errors.New("invalid email format")
)

// emailPattern is a basic structural check; deliverability is the mailer's problem.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// TextConstraints bounds a free-text field. Lengths are in runes.
type TextConstraints struct {
	MinLength  int
	MaxLength  int
	AllowEmpty bool
}

// Text trims s and checks it against c.
func Text(s string, c TextConstraints) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		if c.AllowEmpty {
			return "", nil
		}
		return "", ErrEmpty
	}

	n := utf8.RuneCountInString(s)
	if c.MinLength > 0 && n < c.MinLength {
		return "", fmt.Errorf("%w: got %d chars, need at least %d", ErrTooShort, n, c.MinLength)
	}
	if c.MaxLength > 0 && n > c.MaxLength {
		return "", fmt.Errorf("%w: got %d chars, maximum is %d", ErrTooLong, n, c.MaxLength)
	}
	return s, nil
}

// Tags normalizes a list of short labels such as skills or roles:
// entries are trimmed, empty entries dropped, and case-insensitive
// duplicates removed keeping the first spelling.
func Tags(items []string, maxItems, maxLen int) ([]string, error) {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if maxLen > 0 && utf8.RuneCountInString(item) > maxLen {
			return nil, fmt.Errorf("%w: %q exceeds %d chars", ErrTooLong, item, maxLen)
		}
		key := strings.ToLower(item)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	if maxItems > 0 && len(out) > maxItems {
		return nil, fmt.Errorf("%w: got %d, maximum is %d", ErrTooMany, len(out), maxItems)
	}
	return out, nil
}

// Email returns the lowercased, trimmed address or an error if it is malformed.
func Email(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrEmpty
	}
	// RFC 5321 limits
	if len(email) > 254 {
		return "", ErrTooLong
	}
	if !emailPattern.MatchString(email) {
		return "", ErrInvalidEmail
	}
	local, _, _ := strings.Cut(email, "@")
	if len(local) > 64 {
		return "", ErrTooLong
	}
	return email, nil
}
