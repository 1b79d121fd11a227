package model

import (
	"fmt"
	"net/url"
	"unicode/utf8"

	"github.com/shelfgrab/shelfgrab/internal/text"
)

const (
	maxTitleLen     = 500
	maxGroupNameLen = 255
)

// ValidationError reports a field that failed construction-time validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewTitle cleans a raw title and requires a non-blank result.
func NewTitle(raw string) (string, error) {
	t := text.Clean(raw)
	if t == "" {
		return "", &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(t) > maxTitleLen {
		return "", &ValidationError{Field: "title", Reason: fmt.Sprintf("must be at most %d characters", maxTitleLen)}
	}
	return t, nil
}

// NewGroupName cleans a raw group name and requires a non-blank result.
// Uniqueness checks compare this normalized form, so it must match what gets
// persisted.
func NewGroupName(raw string) (string, error) {
	n := text.Clean(raw)
	if n == "" {
		return "", &ValidationError{Field: "groupName", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(n) > maxGroupNameLen {
		return "", &ValidationError{Field: "groupName", Reason: fmt.Sprintf("must be at most %d characters", maxGroupNameLen)}
	}
	return n, nil
}

// NewEdition cleans an optional edition descriptor. Blank input is the
// absent value, never an error.
func NewEdition(raw string) *string {
	e := text.Clean(raw)
	if e == "" {
		return nil
	}
	return &e
}

// ParseURL accepts absolute http or https URLs only.
func ParseURL(field, raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", &ValidationError{Field: field, Reason: "must be a valid URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &ValidationError{Field: field, Reason: "must use http or https"}
	}
	if u.Host == "" {
		return "", &ValidationError{Field: field, Reason: "must be an absolute URL"}
	}
	return raw, nil
}

// ParseOptionalURL validates a URL only when one is present.
func ParseOptionalURL(field, raw string) (*string, error) {
	if raw == "" {
		return nil, nil
	}
	u, err := ParseURL(field, raw)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
