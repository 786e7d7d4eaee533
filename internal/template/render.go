package template

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// InsertMarker is where interior slides are spliced into a layout.
const InsertMarker = "<!--INSERT_SLIDES_HERE-->"

var (
	tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)
	bracedURL    = regexp.MustCompile(`\{+\s*(https?://[^\s{}"'<>]+)\s*\}+`)
	pagePattern  = regexp.MustCompile(`^s(\d+)paragraph1$`)
)

// UnresolvedError lists tokens left in a layout after substitution.
type UnresolvedError struct {
	Tokens []string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved placeholders: %s", strings.Join(e.Tokens, ", "))
}

// Render fills layout for doc. Tokens are substituted in a single pass so a
// value is never re-expanded. Interior slides are produced by gen and spliced
// at InsertMarker. A fixed layout carries its own pages; gen only renders the
// slides it has no page for.
func Render(layout string, desc Descriptor, gen SlideGenerator, doc Document) (string, error) {
	values := Placeholders(doc)

	var missing []string
	seen := map[string]bool{}
	filled := tokenPattern.ReplaceAllStringFunc(layout, func(tok string) string {
		name := tokenPattern.FindStringSubmatch(tok)[1]
		v, ok := values[name]
		if !ok {
			if !seen[name] {
				seen[name] = true
				missing = append(missing, name)
			}
			return tok
		}
		return html.EscapeString(v)
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", &UnresolvedError{Tokens: missing}
	}
	filled = bracedURL.ReplaceAllString(filled, "$1")

	indices := interior(len(doc.Deck.Slides))
	if desc.Fixed {
		indices = overflow(layout, indices)
	}

	count := strings.Count(filled, InsertMarker)
	if desc.Fixed && len(indices) == 0 {
		return strings.Replace(filled, InsertMarker, "", -1), nil
	}
	if count != 1 {
		if desc.Fixed {
			return "", fmt.Errorf("template %s: %d slides exceed the fixed pages and there is no single insertion marker", desc.Name, len(indices))
		}
		return "", fmt.Errorf("template %s: expected one insertion marker, found %d", desc.Name, count)
	}
	return strings.Replace(filled, InsertMarker, renderSlides(gen, doc, indices), 1), nil
}

func renderSlides(gen SlideGenerator, doc Document, indices []int) string {
	var b strings.Builder
	for _, i := range indices {
		b.WriteString(gen.RenderSlide(doc.SlideText(i), doc.image(i).Variant("portrait"), doc.audio(i), i))
		b.WriteByte('\n')
	}
	return b.String()
}

func interior(n int) []int {
	var out []int
	for i := 1; i < n-1; i++ {
		out = append(out, i)
	}
	return out
}

// overflow returns the indices with no s{i}paragraph1 page in a fixed layout.
func overflow(layout string, indices []int) []int {
	pages := map[int]bool{}
	for _, m := range tokenPattern.FindAllStringSubmatch(layout, -1) {
		if sm := pagePattern.FindStringSubmatch(m[1]); sm != nil {
			n, _ := strconv.Atoi(sm[1])
			pages[n] = true
		}
	}
	var out []int
	for _, i := range indices {
		if !pages[i] {
			out = append(out, i)
		}
	}
	return out
}
