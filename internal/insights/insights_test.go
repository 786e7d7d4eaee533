package insights

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suvichaar/storygen/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		kind  models.InputKind
		urls  []string
		rest  string
	}{
		{"empty", "  ", models.InputText, nil, ""},
		{"plain text", "Why is the sky blue?", models.InputText, nil, "Why is the sky blue?"},
		{"single url", "https://news.example.org/a", models.InputURL, []string{"https://news.example.org/a"}, ""},
		{"www url", "www.bbc.com/news/world", models.InputURL, []string{"https://www.bbc.com/news/world"}, ""},
		{"bare domain", "thehindu.com/sci-tech", models.InputURL, []string{"https://thehindu.com/sci-tech"}, ""},
		{"mixed", "summarise https://x.org/story for kids", models.InputMixed, []string{"https://x.org/story"}, "summarise for kids"},
		{"trailing punctuation", "see https://x.org/story.", models.InputMixed, []string{"https://x.org/story"}, "see"},
		{"s3 document", "s3://suvichaarapp/uploads/report.pdf", models.InputFile, nil, "s3://suvichaarapp/uploads/report.pdf"},
		{"local path", "docs/notes.txt", models.InputFile, nil, "docs/notes.txt"},
		{"url to pdf", "https://x.org/files/paper.pdf", models.InputFile, nil, "https://x.org/files/paper.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, urls, rest := Classify(tt.in)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.urls, urls)
			assert.Equal(t, tt.rest, rest)
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := map[string]string{
		"https://x.org/a":   "https://x.org/a",
		"www.x.org":         "https://www.x.org",
		"x.org/path),":      "https://x.org/path",
		"ftp://x.org/a":     "",
		"not a url":         "",
		"localhost":         "",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			got, ok := NormalizeURL(in)
			assert.Equal(t, want != "", ok)
			assert.Equal(t, want, got)
		})
	}
}

func TestSplitKeywords(t *testing.T) {
	assert.Equal(t, []string{"space", "isro", "moon"}, SplitKeywords([]string{"space, isro", " moon ,space", ""}))
	assert.Nil(t, SplitKeywords(nil))
}

func TestNormalize(t *testing.T) {
	t.Run("text input fills the prompt", func(t *testing.T) {
		p := Normalize(&models.GenerationRequest{Mode: models.ModeCurious, UserInput: "How do volcanoes form?"})
		assert.Equal(t, models.InputText, p.Kind)
		assert.Equal(t, "How do volcanoes form?", p.TextPrompt)
	})

	t.Run("text input with an existing prompt goes to notes", func(t *testing.T) {
		p := Normalize(&models.GenerationRequest{TextPrompt: "Volcanoes", UserInput: "keep it short"})
		assert.Equal(t, "Volcanoes", p.TextPrompt)
		assert.Equal(t, "keep it short", p.Notes)
	})

	t.Run("mixed input splits urls and notes", func(t *testing.T) {
		p := Normalize(&models.GenerationRequest{
			URLs:      []string{"https://a.org/1"},
			Notes:     "for students",
			UserInput: "explain https://a.org/1 and https://b.org/2 simply",
		})
		assert.Equal(t, models.InputMixed, p.Kind)
		assert.Equal(t, []string{"https://a.org/1", "https://b.org/2"}, p.URLs)
		assert.Equal(t, "for students\nexplain and simply", p.Notes)
	})

	t.Run("file input becomes an attachment", func(t *testing.T) {
		p := Normalize(&models.GenerationRequest{Attachments: []string{"s3://b/a.png"}, UserInput: "s3://b/brief.txt"})
		assert.Equal(t, models.InputFile, p.Kind)
		assert.Equal(t, []string{"s3://b/a.png", "s3://b/brief.txt"}, p.Attachments)
	})

	t.Run("invalid explicit urls are dropped and keywords split", func(t *testing.T) {
		p := Normalize(&models.GenerationRequest{URLs: []string{"nope", "www.x.org"}, PromptKeywords: []string{"a,b"}})
		assert.Equal(t, []string{"https://www.x.org"}, p.URLs)
		assert.Equal(t, []string{"a", "b"}, p.Keywords)
		assert.Equal(t, models.InputURL, p.Kind)
	})
}

const page = `<!doctype html><html><head>
<title> Chandrayaan-3 lands </title>
<meta property="og:image" content="/img/lander.jpg">
<meta name="description" content="India lands near the south pole.">
<script>var x = "<p>not text</p>";</script>
</head><body>
<nav><p>Home | World</p></nav>
<p>India's <b>Chandrayaan-3</b> touched down on 23 August 2023.</p>
<p>The   lander   carried a rover.</p>
<footer><p>© Newsroom</p></footer>
</body></html>`

func TestParseArticle(t *testing.T) {
	a, err := ParseArticle([]byte(page), "https://news.example.org/space/story")
	require.NoError(t, err)

	assert.Equal(t, "Chandrayaan-3 lands", a.Title)
	assert.Equal(t, []string{
		"India's Chandrayaan-3 touched down on 23 August 2023.",
		"The lander carried a rover.",
	}, a.Paragraphs)
	assert.Equal(t, []string{"https://news.example.org/img/lander.jpg"}, a.Images)
	assert.Equal(t, "India lands near the south pole.", a.Description)

	empty, err := ParseArticle([]byte(`<html><head><meta name="description" content="Only meta"></head></html>`), "")
	require.NoError(t, err)
	assert.Equal(t, "Only meta", empty.Text())
}

func TestChunk(t *testing.T) {
	assert.Nil(t, Chunk("   ", 10))
	assert.Equal(t, []string{"a\n\nb"}, Chunk("a\n\nb", 10))
	assert.Equal(t, []string{"first para", "second para"}, Chunk("first para\n\nsecond para", 12))

	long := strings.Repeat("word ", 400)
	for _, c := range Chunk(long, 800) {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 800)
	}
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, Chunk("abcdefghij", 4))
}

type fakePages struct {
	pages map[string]string
}

func (f fakePages) Fetch(_ context.Context, u string) ([]byte, string, error) {
	body, ok := f.pages[u]
	if !ok {
		return nil, "", errors.New("404")
	}
	return []byte(body), "text/html", nil
}

type fakeObjects map[string]string

func (f fakeObjects) Get(_ context.Context, key string) ([]byte, error) {
	if v, ok := f[key]; ok {
		return []byte(v), nil
	}
	return nil, errors.New("missing")
}

func TestPipeline_Run(t *testing.T) {
	pages := fakePages{pages: map[string]string{"https://news.example.org/a": page}}
	objects := fakeObjects{"s3://b/brief.txt": "Brief paragraph one.\n\nBrief paragraph two."}
	p := NewPipeline(pages, objects, slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithURLCheck(func(string) (bool, error) { return true, nil })

	ins, err := p.Run(context.Background(), models.Payload{
		TextPrompt:  "ignored because a url is present",
		Notes:       "for children",
		URLs:        []string{"https://news.example.org/a", "https://news.example.org/missing"},
		Attachments: []string{"s3://b/photo.png", "s3://b/brief.txt", "s3://b/scan.pdf"},
		Keywords:    []string{"moon"},
	})
	require.NoError(t, err)

	require.Len(t, ins.Chunks, 3)
	assert.Equal(t, "url:https://news.example.org/a#1", ins.Chunks[0].ID)
	assert.Contains(t, ins.Chunks[0].Text, "touched down")
	assert.Equal(t, "payload:text#1", ins.Chunks[1].ID)
	assert.Equal(t, "[Additional Context]: for children\n\nmoon", ins.Chunks[1].Text)
	assert.NotContains(t, ins.Chunks[1].Text, "ignored")
	assert.Equal(t, "attachment-2#1", ins.Chunks[2].ID)
	assert.Equal(t, "s3://b/brief.txt", ins.Chunks[2].Source)

	assert.Equal(t, "Chandrayaan-3 lands", ins.SourceTitle)
	assert.Equal(t, []string{"https://news.example.org/img/lander.jpg"}, ins.ImageRefs)
}

func TestPipeline_TextOnly(t *testing.T) {
	p := NewPipeline(fakePages{}, nil, nil)
	ins, err := p.Run(context.Background(), models.Payload{TextPrompt: "Photosynthesis", Notes: "simple words"})
	require.NoError(t, err)
	require.Len(t, ins.Chunks, 1)
	assert.Equal(t, "Photosynthesis\n\nsimple words", ins.Chunks[0].Text)
	assert.Equal(t, "Photosynthesis\n\nsimple words", ins.Text(0))
}

func TestPipeline_UnsafeURLSkipped(t *testing.T) {
	pages := fakePages{pages: map[string]string{"http://127.0.0.1/a": page}}
	p := NewPipeline(pages, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ins, err := p.Run(context.Background(), models.Payload{URLs: []string{"http://127.0.0.1/a"}})
	require.NoError(t, err)
	assert.Empty(t, ins.Chunks)
}
