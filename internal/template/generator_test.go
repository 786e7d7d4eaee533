package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerators_EscapeAndDefaultBackground(t *testing.T) {
	gens := map[string]SlideGenerator{
		"fullbleed": FullBleed{Background: "https://cdn/bg.png"},
		"split":     Split{Background: "https://cdn/bg.png"},
	}
	for name, g := range gens {
		t.Run(name, func(t *testing.T) {
			out := g.RenderSlide(`<script>alert("x")</script> & more`, "", "https://cdn/a.mp3", 3)

			assert.Contains(t, out, `id="slide-3"`)
			assert.Contains(t, out, `auto-advance-after="slide-3-audio"`)
			assert.Contains(t, out, `src="https://cdn/bg.png"`)
			assert.Contains(t, out, `&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt; &amp; more`)
			assert.NotContains(t, out, "<script>")
			assert.Contains(t, out, "©SuvichaarAI")
		})
	}
}

func TestGenerators_Pure(t *testing.T) {
	g := FullBleed{Background: "bg"}
	a := g.RenderSlide("t", "https://cdn/i.png", "", 1)
	b := g.RenderSlide("t", "https://cdn/i.png", "", 1)
	assert.Equal(t, a, b)
	assert.Contains(t, a, `src="https://cdn/i.png"`)
	assert.NotContains(t, a, "amp-video")
}

func TestStripMarkdown(t *testing.T) {
	tests := map[string]string{
		"**Bold** and *italic*":           "Bold and italic",
		"# Header\nBody text":             "Header\n\nBody text",
		"Use `code` here":                 "Use code here",
		"See [the report](https://x.org)": "See the report",
		"plain text":                      "plain text",
		"":                                "",
		"2024. A year of change":          "2024. A year of change",
		"- one\n- two":                    "- one\n- two",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, StripMarkdown(in))
		})
	}
}
