package invitengine

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// reservedSlugs are route names that can never identify an invitation.
var reservedSlugs = map[string]struct{}{
	"admin":       {},
	"assets":      {},
	"static":      {},
	"api":         {},
	"guestbook":   {},
	"favicon.ico": {},
	"robots.txt":  {},
}

// IsReservedSlug reports whether slug collides with a fixed route.
func IsReservedSlug(slug string) bool {
	_, ok := reservedSlugs[slug]
	return ok
}

// asciiFold decomposes accented letters and drops the combining marks,
// so "café" slugs to "cafe". Scripts with no ASCII decomposition
// (Hangul, CJK) fall through and are stripped by slugBase.
var asciiFold = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify converts a display name to a URL-safe slug. A name with no
// usable characters falls back to "invitation-<unix-ts>" so the result
// is never empty. Uniqueness is the Registry's job, not Slugify's.
func Slugify(name string) string {
	slug := slugBase(name)
	if slug == "" {
		slug = fmt.Sprintf("invitation-%d", time.Now().Unix())
	}
	return slug
}

// slugBase is Slugify without the fallback: it returns "" when the name
// contains nothing usable. Rename validation needs to see that case.
func slugBase(name string) string {
	s := name
	if folded, _, err := transform.String(asciiFold, s); err == nil {
		s = folded
	}
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	dash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case r == '-' || r == '_' || unicode.IsSpace(r):
			// separators collapse to a single dash; other punctuation
			// is dropped entirely
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// nowStamp is the timestamp format used everywhere in the index and
// config documents. RFC 3339 in UTC sorts lexicographically.
func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
