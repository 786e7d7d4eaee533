package identifier

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suvichaar/storygen/internal/models"
)

var newsURL = regexp.MustCompile(`^https://.+/stories/[a-z0-9-]+_[A-Za-z0-9_-]+_G$`)

func fixed(id string) func() string {
	return func() string { return id }
}

func TestGenerator_News(t *testing.T) {
	g := New("https://suvichaar.org/", nil)

	bare, alt := g.Generate(models.ModeNews, "Killed & Injured in Pune Accident!", "ignored")

	assert.Regexp(t, newsURL, bare)
	assert.Equal(t, bare+".html", alt)
	assert.True(t, strings.HasPrefix(bare, "https://suvichaar.org/stories/killed-injured-in-pune-accident_"))

	slug := strings.SplitN(Segment(bare), "_", 2)[0]
	assert.Regexp(t, `^[a-z0-9-]+$`, slug)
}

func TestGenerator_NewsDeterministicWithFixedID(t *testing.T) {
	g := New("https://suvichaar.org", fixed("abcDEF12_-"))

	a, _ := g.Generate(models.ModeNews, "Budget 2026: What Changed?", "r1")
	b, _ := g.Generate(models.ModeNews, "Budget 2026: What Changed?", "r2")

	assert.Equal(t, a, b)
	assert.Equal(t, "https://suvichaar.org/stories/budget-2026-what-changed_abcDEF12_-_G", a)
}

func TestGenerator_EmptySlugFallsBack(t *testing.T) {
	g := New("https://suvichaar.org", fixed("XYZ"))

	for _, title := range []string{"", "!!! ???", "हिंदी समाचार"} {
		bare, _ := g.Generate(models.ModeNews, title, "r")
		assert.Equal(t, "https://suvichaar.org/stories/story_XYZ_G", bare, title)
		assert.Regexp(t, newsURL, bare)
	}
}

func TestGenerator_CuriousUsesRecordID(t *testing.T) {
	g := New("https://suvichaar.org", nil)

	a1, a2 := g.Generate(models.ModeCurious, "Anything", "4a9e-11")
	b1, b2 := g.Generate(models.ModeCurious, "Other title", "4a9e-11")
	c1, _ := g.Generate(models.ModeCurious, "Anything", "4a9e-12")

	assert.Equal(t, "https://suvichaar.org/stories/4a9e-11", a1)
	assert.Equal(t, "https://suvichaar.org/stories/4a9e-11.html", a2)
	assert.Equal(t, a1, b1)
	assert.Equal(t, a2, b2)
	assert.NotEqual(t, a1, c1)
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Hello World":              "hello-world",
		"  --Leading and trailing--": "leading-and-trailing",
		"a___b...c":                "a-b-c",
		"Café au lait":             "caf-au-lait",
		"ALL CAPS 123":             "all-caps-123",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, Slugify(in))
		})
	}

	long := Slugify(strings.Repeat("word ", 40))
	assert.LessOrEqual(t, len(long), maxSlugLength)
	assert.False(t, strings.HasSuffix(long, "-"))
}

func TestRandomID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		id := RandomID()
		require.Len(t, id, idLength)
		assert.Regexp(t, `^[A-Za-z0-9_-]+$`, id)
		seen[id] = true
	}
	assert.Greater(t, len(seen), 190)
}

func TestSegment(t *testing.T) {
	assert.Equal(t, "slug_abc_G", Segment("https://x.org/stories/slug_abc_G"))
	assert.Equal(t, "slug_abc_G", Segment("https://x.org/stories/slug_abc_G.html"))
	assert.Equal(t, "plain", Segment("plain"))
}
