// Package slug normalizes and validates article URL slugs.
package slug

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	// MinLength is the shortest slug accepted by Validate.
	MinLength = 3
	// MaxLength is the longest slug accepted by Validate.
	MaxLength = 100
)

var (
	invalidChars  = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespaceRun = regexp.MustCompile(`\s+`)
	hyphenRun     = regexp.MustCompile(`-+`)
	grammar       = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// Normalize converts arbitrary input into a best-effort canonical slug.
// It never fails; garbage input may normalize to the empty string, which
// Validate then rejects.
func Normalize(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = invalidChars.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, "-")
	s = hyphenRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Validate checks a candidate slug against the canonical grammar.
// Rules are checked in order and the first violation is reported.
func Validate(s string) error {
	if s == "" {
		return errors.New("slug is required")
	}
	if len(s) < MinLength {
		return fmt.Errorf("slug must be at least %d characters", MinLength)
	}
	if len(s) > MaxLength {
		return fmt.Errorf("slug must be at most %d characters", MaxLength)
	}
	if !grammar.MatchString(s) {
		return errors.New("slug must contain only lowercase letters, numbers, and hyphens")
	}
	return nil
}
