package language

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suvichaar/storygen/internal/models"
)

func TestExplicitRequest(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"tell me about lord shiva in hindi", "hi", true},
		{"हिंदी में बताओ", "hi", true},
		{"shiva ke baare mein hindi me batao", "hi", true},
		{"Explain black holes IN ENGLISH", "en", true},
		{"marathi me sangaa", "mr", true},
		{"write this in Tamil please", "ta", true},
		{"इसे मराठी मध्ये लिहा", "mr", true},
		{"the history of hindi cinema", "", false},
		{"hindi means something", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ExplicitRequest(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScriptGuess(t *testing.T) {
	code, conf := ScriptGuess("भारत की राजधानी दिल्ली है")
	assert.Equal(t, "hi", code)
	assert.InDelta(t, 1.0, conf, 0.001)

	code, _ = ScriptGuess("বাংলা ভাষা")
	assert.Equal(t, "bn", code)

	code, conf = ScriptGuess("The Chandrayaan mission")
	assert.Equal(t, "en", code)
	assert.InDelta(t, 1.0, conf, 0.001)

	code, conf = ScriptGuess("12345 !!")
	assert.Equal(t, "en", code)
	assert.Zero(t, conf)

	code, conf = ScriptGuess("isro चंद्रयान मिशन")
	assert.Equal(t, "hi", code)
	assert.Less(t, conf, 1.0)
}

func TestCanonical(t *testing.T) {
	got, ok := Canonical("hi")
	assert.True(t, ok)
	assert.Equal(t, "hi", got)

	got, ok = Canonical("en-US")
	assert.True(t, ok)
	assert.Equal(t, "en", got)

	_, ok = Canonical("not a language")
	assert.False(t, ok)
}

func TestHeuristicDetector(t *testing.T) {
	d := NewHeuristicDetector(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	t.Run("explicit request overrides the script", func(t *testing.T) {
		md, err := d.Detect(ctx, models.Payload{TextPrompt: "Tell me about the Taj Mahal in hindi"})
		require.NoError(t, err)
		assert.Equal(t, "hi", md.Code)
		assert.Equal(t, 0.95, md.Confidence)
		assert.True(t, md.Explicit)
	})

	t.Run("notes are checked after the prompt", func(t *testing.T) {
		md, err := d.Detect(ctx, models.Payload{TextPrompt: "भारत का इतिहास", Notes: "please write in english"})
		require.NoError(t, err)
		assert.Equal(t, "en", md.Code)
		assert.True(t, md.Explicit)
	})

	t.Run("script heuristic", func(t *testing.T) {
		md, err := d.Detect(ctx, models.Payload{TextPrompt: "ಕರ್ನಾಟಕದ ಇತಿಹಾಸ"})
		require.NoError(t, err)
		assert.Equal(t, "kn", md.Code)
		assert.False(t, md.Explicit)
	})

	t.Run("empty payload defaults to english", func(t *testing.T) {
		md, err := d.Detect(ctx, models.Payload{URLs: []string{"https://example.org"}})
		require.NoError(t, err)
		assert.Equal(t, "en", md.Code)
		assert.Zero(t, md.Confidence)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := d.Detect(cctx, models.Payload{TextPrompt: "x"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
