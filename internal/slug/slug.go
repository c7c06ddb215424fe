// Package slug mints unique, human-readable identifiers for catalog
// entities. A slug combines a URL-safe token derived from the entity's
// title with a fixed-length hex fragment of its opaque id, so equal
// titles never collide across distinct entities.
package slug

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const (
	// maxTitleLen caps the normalized title token.
	maxTitleLen = 200
	// fragmentLen is the number of hex characters taken from the entity id.
	fragmentLen = 12
	// fallbackToken replaces titles that normalize to nothing.
	fallbackToken = "item"
	// maxAttempts bounds the collision ladder, counting the base candidate.
	maxAttempts = 5
)

// ErrSlugExhausted is returned when no free slug is found within the
// retry ceiling. Entity creation must not proceed without a slug.
var ErrSlugExhausted = errors.New("slug generation attempts exhausted")

// Generate mints a slug of the form {title-token}-{id-fragment} and probes
// it against exists, which must report whether a slug is already taken in
// the entity's namespace. On collision it appends -1, -2, ... until a free
// slug is found or the retry ceiling is reached.
//
// The exists check is advisory: two concurrent generations can both see a
// slug as free, so the caller must still treat a unique-constraint
// violation on insert as a signal to regenerate.
func Generate(title string, id uuid.UUID, exists func(string) bool) (string, error) {
	const op = "slug.Generate"

	base := normalizeTitle(title)
	if base == "" {
		base = fallbackToken
	}

	candidate := base + "-" + fragment(id)
	if !exists(candidate) {
		return candidate, nil
	}

	for n := 1; n < maxAttempts; n++ {
		next := fmt.Sprintf("%s-%d", candidate, n)
		if !exists(next) {
			return next, nil
		}
	}

	return "", fmt.Errorf("%s: %w", op, ErrSlugExhausted)
}

// Simple mints a slug from the name alone, for entity kinds whose names
// are expected to be unique (stores, categories). The collision ladder
// and retry ceiling match Generate.
func Simple(name string, exists func(string) bool) (string, error) {
	const op = "slug.Simple"

	base := normalizeTitle(name)
	if base == "" {
		base = fallbackToken
	}

	if !exists(base) {
		return base, nil
	}

	for n := 1; n < maxAttempts; n++ {
		next := fmt.Sprintf("%s-%d", base, n)
		if !exists(next) {
			return next, nil
		}
	}

	return "", fmt.Errorf("%s: %w", op, ErrSlugExhausted)
}

// fragment returns the leading hex characters of the entity id.
func fragment(id uuid.UUID) string {
	return hex.EncodeToString(id[:])[:fragmentLen]
}

// normalizeTitle lowercases the title, collapses whitespace and punctuation
// runs into single hyphens, strips everything else non-alphanumeric, and
// caps the result at maxTitleLen.
func normalizeTitle(title string) string {
	var b strings.Builder
	pending := false

	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r):
			pending = true
		}
	}

	token := b.String()
	if len(token) > maxTitleLen {
		token = strings.TrimRight(token[:maxTitleLen], "-")
	}

	return token
}
