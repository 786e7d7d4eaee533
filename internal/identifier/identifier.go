// Package identifier builds the canonical story URLs.
package identifier

import (
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/suvichaar/storygen/internal/models"
)

const (
	alphabet        = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"
	idLength        = 10
	tagSuffix       = "_G"
	fallbackSlug    = "story"
	maxSlugLength   = 80
	documentSuffix  = ".html"
	storiesPathPart = "stories"
)

// Generator produces canonical URLs under a base such as https://suvichaar.org.
type Generator struct {
	base   string
	random func() string
}

// New returns a Generator. A nil random source uses RandomID.
func New(base string, random func() string) *Generator {
	if random == nil {
		random = RandomID
	}
	return &Generator{base: strings.TrimRight(base, "/"), random: random}
}

// Generate returns the bare canonical URL and the variant with the document extension.
// News stories get a slug derived from the title; other modes use the record ID.
func (g *Generator) Generate(mode models.Mode, title, recordID string) (string, string) {
	segment := recordID
	if mode == models.ModeNews {
		segment = Slugify(title) + "_" + g.random() + tagSuffix
	}
	canonical := g.base + "/" + storiesPathPart + "/" + segment
	return canonical, canonical + documentSuffix
}

// Slugify lower-cases title and collapses every run of non-alphanumeric
// characters into a single hyphen. It never returns an empty string.
func Slugify(title string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(title) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	slug := b.String()
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	if slug == "" {
		return fallbackSlug
	}
	return slug
}

// RandomID returns a short identifier drawn from a URL-safe alphabet.
func RandomID() string {
	u := uuid.New()
	out := make([]byte, idLength)
	for i := range out {
		out[i] = alphabet[int(u[i])%len(alphabet)]
	}
	return string(out)
}

// Segment returns the last path element of a canonical URL.
func Segment(canonical string) string {
	canonical = strings.TrimSuffix(canonical, documentSuffix)
	if i := strings.LastIndex(canonical, "/"); i >= 0 {
		return canonical[i+1:]
	}
	return canonical
}
