package narrative

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suvichaar/storygen/internal/httpclient"
	"github.com/suvichaar/storygen/internal/models"
	"github.com/suvichaar/storygen/internal/retry"
)

type fakeCompleter struct {
	systems []string
	users   []string
	fn      func(call int) (string, error)
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	f.systems = append(f.systems, system)
	f.users = append(f.users, user)
	return f.fn(len(f.systems))
}

func fastPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	p.InitialInterval = time.Millisecond
	p.MaxInterval = 2 * time.Millisecond
	return p
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func insights(text string) models.DocInsights {
	return models.DocInsights{Chunks: []models.SemanticChunk{{ID: "payload:text#1", Text: text, Source: "payload"}}}
}

var newsContext = PromptContext{Mode: models.ModeNews, Language: "hi", Category: "News", TemplateKey: "test-news-1"}

const modelJSON = `{
  "storytitle": "**Chandrayaan-3** lands",
  "s0alt1": "Lunar lander on grey regolith",
  "s1paragraph1": "India landed near the *south pole*.",
  "s1alt1": "Moon south pole",
  "s2paragraph1": "The rover drove 100 metres.",
  "s2alt1": "Small rover tracks",
  "ctaparagraph": "Follow the mission.",
  "slide_count": 4
}`

func TestParseFields(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"direct", modelJSON},
		{"fenced", "Here is the story:\n```json\n" + modelJSON + "\n```\nEnjoy."},
		{"embedded", "Sure! " + modelJSON + " Let me know."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, err := ParseFields(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, "**Chandrayaan-3** lands", fields["storytitle"])
			assert.Equal(t, "Follow the mission.", fields["ctaparagraph"])
			assert.Equal(t, "4", fields["slide_count"])
		})
	}

	_, err := ParseFields("I cannot help with that.")
	assert.Error(t, err)
}

func TestBuildDeck(t *testing.T) {
	fields, err := ParseFields(modelJSON)
	require.NoError(t, err)

	t.Run("full fields", func(t *testing.T) {
		deck := BuildDeck(fields, newsContext, models.DocInsights{}, 4)
		require.Len(t, deck.Slides, 4)
		assert.Equal(t, "test-news-1", deck.TemplateKey)
		assert.Equal(t, "hi", deck.LanguageCode)

		assert.Equal(t, "Chandrayaan-3 lands", deck.Slides[0].Text)
		assert.Equal(t, "Lunar lander on grey regolith", deck.Slides[0].AltText)
		assert.Equal(t, "India landed near the south pole.", deck.Slides[1].Text)
		assert.Equal(t, "s2paragraph1", deck.Slides[2].PlaceholderID)
		assert.Equal(t, "Follow the mission.", deck.Slides[3].Text)
		assert.Equal(t, "ctaparagraph", deck.Slides[3].PlaceholderID)
		for i, s := range deck.Slides {
			assert.Equal(t, i, s.Index)
		}
	})

	t.Run("missing paragraphs get placeholders", func(t *testing.T) {
		deck := BuildDeck(fields, newsContext, models.DocInsights{}, 6)
		require.Len(t, deck.Slides, 6)
		assert.Equal(t, "Slide 3 content", deck.Slides[3].Text)
		assert.Equal(t, "Slide 4 content", deck.Slides[4].Text)
		assert.Equal(t, GenericAlt, deck.Slides[3].AltText)
	})

	t.Run("empty fields", func(t *testing.T) {
		deck := BuildDeck(map[string]string{}, PromptContext{Mode: models.ModeCurious}, models.DocInsights{}, 7)
		require.Len(t, deck.Slides, 7)
		assert.Equal(t, "Web Story", deck.Slides[0].Text)
		assert.Equal(t, "en", deck.LanguageCode)
		assert.Equal(t, defaultCTA(models.ModeCurious), deck.Slides[6].Text)
		assert.Contains(t, deck.Slides[0].AltText, "Web Story")
	})

	t.Run("source title then first paragraph", func(t *testing.T) {
		deck := BuildDeck(map[string]string{}, newsContext, models.DocInsights{SourceTitle: "Budget 2024"}, 4)
		assert.Equal(t, "Budget 2024", deck.Slides[0].Text)

		deck = BuildDeck(map[string]string{"s1paragraph1": "Rains lash Mumbai, trains delayed."}, newsContext, models.DocInsights{}, 4)
		assert.Equal(t, "Rains lash Mumbai, trains delayed", deck.Slides[0].Text)
	})

	t.Run("cover is capped", func(t *testing.T) {
		deck := BuildDeck(map[string]string{"storytitle": strings.Repeat("अ", 400)}, newsContext, models.DocInsights{}, 4)
		assert.Equal(t, 180, utf8.RuneCountInString(deck.Slides[0].Text))
	})

	t.Run("missing alt derives from text", func(t *testing.T) {
		deck := BuildDeck(map[string]string{"s1paragraph1": "Tides follow the moon"}, newsContext, models.DocInsights{}, 4)
		assert.True(t, strings.HasPrefix(deck.Slides[1].AltText, "Tides follow the moon. "))
	})
}

func TestSystemPrompt(t *testing.T) {
	p := SystemPrompt(PromptContext{Mode: models.ModeCurious, Language: "hi", Keywords: []string{"tides"}}, 5)
	assert.Contains(t, p, "MUST be written in Hindi")
	assert.Contains(t, p, `"s5paragraph1"`)
	assert.Contains(t, p, `"s5alt1"`)
	assert.NotContains(t, p, `"s6paragraph1"`)
	assert.Contains(t, p, "s2paragraph1: at most 450 characters")
	assert.Contains(t, p, "s5paragraph1: at most 300 characters")
	assert.Contains(t, p, "Focus keywords: tides.")

	assert.Equal(t, "English", LanguageName("en"))
	assert.Equal(t, "zz-!!", LanguageName("zz-!!"))
}

func TestFieldKeys(t *testing.T) {
	assert.Equal(t, []string{"storytitle", "s0alt1", "s1paragraph1", "s2paragraph1", "s1alt1", "s2alt1", "ctaparagraph"}, FieldKeys(2))
}

func TestModelGenerator(t *testing.T) {
	ctx := context.Background()

	t.Run("parses the model output", func(t *testing.T) {
		llm := &fakeCompleter{fn: func(int) (string, error) { return "```json\n" + modelJSON + "\n```", nil }}
		g := NewModelGenerator(llm, fastPolicy(), quiet())

		deck, err := g.Generate(ctx, newsContext, insights("ISRO landed Chandrayaan-3."), 4)
		require.NoError(t, err)
		require.Len(t, deck.Slides, 4)
		assert.Equal(t, "Chandrayaan-3 lands", deck.Title())
		require.Len(t, llm.users, 1)
		assert.Contains(t, llm.users[0], "ISRO landed Chandrayaan-3.")
		assert.Contains(t, llm.users[0], "Include EXACTLY 2 slides.")
	})

	t.Run("unparseable output falls back", func(t *testing.T) {
		llm := &fakeCompleter{fn: func(int) (string, error) { return "no json here", nil }}
		g := NewModelGenerator(llm, fastPolicy(), quiet())

		deck, err := g.Generate(ctx, newsContext, insights("text"), 5)
		require.NoError(t, err)
		require.Len(t, deck.Slides, 5)
		assert.Equal(t, "Slide 1 content", deck.Slides[1].Text)
	})

	t.Run("content policy retries once with safer instructions", func(t *testing.T) {
		llm := &fakeCompleter{fn: func(call int) (string, error) {
			if call == 1 {
				return "", fmt.Errorf("openai: %w", retry.ErrContentPolicy)
			}
			return modelJSON, nil
		}}
		g := NewModelGenerator(llm, fastPolicy(), quiet())

		_, err := g.Generate(ctx, newsContext, insights("text"), 4)
		require.NoError(t, err)
		require.Len(t, llm.systems, 2)
		assert.NotContains(t, llm.systems[0], safetyAddendum)
		assert.Contains(t, llm.systems[1], safetyAddendum)
	})

	t.Run("rate limits are retried", func(t *testing.T) {
		llm := &fakeCompleter{fn: func(call int) (string, error) {
			if call < 3 {
				return "", &httpclient.HTTPError{Service: "openai", StatusCode: 429}
			}
			return modelJSON, nil
		}}
		g := NewModelGenerator(llm, fastPolicy(), quiet())

		_, err := g.Generate(ctx, newsContext, insights("text"), 4)
		require.NoError(t, err)
		assert.Len(t, llm.systems, 3)
	})

	t.Run("client errors are terminal", func(t *testing.T) {
		llm := &fakeCompleter{fn: func(int) (string, error) {
			return "", &httpclient.HTTPError{Service: "openai", StatusCode: 401}
		}}
		g := NewModelGenerator(llm, fastPolicy(), quiet())

		_, err := g.Generate(ctx, newsContext, insights("text"), 4)
		var httpErr *httpclient.HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, 401, httpErr.StatusCode)
		assert.Len(t, llm.systems, 1)
	})

	t.Run("no source text", func(t *testing.T) {
		llm := &fakeCompleter{fn: func(int) (string, error) { return modelJSON, nil }}
		g := NewModelGenerator(llm, fastPolicy(), quiet())

		_, err := g.Generate(ctx, newsContext, models.DocInsights{}, 4)
		assert.ErrorIs(t, err, ErrNoSource)
		assert.Empty(t, llm.systems)
	})
}

func TestMockGenerator(t *testing.T) {
	ins := insights("The Moon has phases. They repeat every 29.5 days! Tides follow the Moon? Yes.")
	pc := PromptContext{Mode: models.ModeCurious, Language: "en", TemplateKey: "curious-template-1"}

	a, err := MockGenerator{}.Generate(context.Background(), pc, ins, 7)
	require.NoError(t, err)
	b, err := MockGenerator{}.Generate(context.Background(), pc, ins, 7)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	require.Len(t, a.Slides, 7)
	assert.Equal(t, "The Moon has phases.", a.Slides[0].Text)
	assert.Equal(t, "They repeat every 29.5 days!", a.Slides[2].Text)
	assert.Equal(t, "Yes.", a.Slides[4].Text)
	assert.Equal(t, "Slide 5 content", a.Slides[5].Text)
}
