// Package slug derives URL slugs from titles and names.
package slug

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength bounds generated slugs to fit the slug columns.
const MaxLength = 200

// Fallback is used when a title contains nothing sluggable.
const Fallback = "untitled"

// Make lowercases s, folds accented letters to ASCII and joins the
// remaining alphanumeric runs with single hyphens.
func Make(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn))), s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case r == '_' || unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) || r == '-':
			pendingDash = true
		}
	}

	out := b.String()
	if len(out) > MaxLength {
		out = strings.TrimRight(out[:MaxLength], "-")
	}
	return out
}

// ExistsFunc reports whether a slug is already taken.
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// Unique returns base, or base with the first free -1, -2, ... suffix.
// An empty base becomes Fallback.
func Unique(ctx context.Context, base string, exists ExistsFunc) (string, error) {
	if base == "" {
		base = Fallback
	}
	candidate := base
	for i := 1; ; i++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// For derives a slug from title unless hint is given, then makes it unique.
// A percent-encoded hint is decoded first; one that fails to decode is used as is.
func For(ctx context.Context, hint, title string, exists ExistsFunc) (string, error) {
	if decoded, err := url.PathUnescape(hint); err == nil {
		hint = decoded
	}
	base := Make(hint)
	if base == "" {
		base = Make(title)
	}
	return Unique(ctx, base, exists)
}
