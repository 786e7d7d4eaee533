package narrative

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/suvichaar/storygen/internal/models"
	"github.com/suvichaar/storygen/internal/retry"
)

// ErrNoSource is returned when the insights carry no text to narrate.
var ErrNoSource = errors.New("no source text to narrate")

// Generator writes the slide deck for a request.
type Generator interface {
	Generate(ctx context.Context, pc PromptContext, ins models.DocInsights, slideCount int) (models.SlideDeck, error)
}

// Completer is a chat model that answers one system and user prompt pair.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ModelGenerator asks a language model for the deck fields.
type ModelGenerator struct {
	llm    Completer
	policy retry.Policy
	logger *slog.Logger
}

func NewModelGenerator(llm Completer, policy retry.Policy, logger *slog.Logger) *ModelGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModelGenerator{llm: llm, policy: policy, logger: logger}
}

func (g *ModelGenerator) Generate(ctx context.Context, pc PromptContext, ins models.DocInsights, slideCount int) (models.SlideDeck, error) {
	if slideCount < 2 {
		return models.SlideDeck{}, fmt.Errorf("slide count %d is below the cover and call to action", slideCount)
	}
	source := SourceText(ins)
	if source == "" {
		return models.SlideDeck{}, ErrNoSource
	}
	middle := middleCount(slideCount)
	system := SystemPrompt(pc, middle)
	user := UserPrompt(source, middle)

	var raw string
	err := g.policy.Do(ctx, func(ctx context.Context, a retry.Attempt) error {
		sys := system
		if a.Simplified {
			g.logger.Warn("narrative prompt rejected, retrying with safer instructions", "attempt", a.Number)
			sys += "\n" + safetyAddendum
		}
		out, err := g.llm.Complete(ctx, sys, user)
		if err != nil {
			return err
		}
		raw = out
		return nil
	})
	if err != nil {
		return models.SlideDeck{}, fmt.Errorf("narrative model: %w", err)
	}

	fields, err := ParseFields(raw)
	if err != nil {
		g.logger.Warn("narrative output unparseable, using fallbacks", "error", err, "output_runes", len([]rune(raw)))
		fields = map[string]string{}
	}
	deck := BuildDeck(fields, pc, ins, slideCount)
	g.logger.Info("narrative generated", "slides", len(deck.Slides), "language", deck.LanguageCode)
	return deck, nil
}

var sentenceEnd = regexp.MustCompile(`[.!?।]+\s+`)

// MockGenerator builds a deterministic deck from the source sentences. It is
// used when no model key is configured.
type MockGenerator struct{}

func (MockGenerator) Generate(ctx context.Context, pc PromptContext, ins models.DocInsights, slideCount int) (models.SlideDeck, error) {
	if err := ctx.Err(); err != nil {
		return models.SlideDeck{}, err
	}
	sentences := splitSentences(SourceText(ins))
	fields := map[string]string{}
	if len(sentences) > 0 && ins.SourceTitle == "" {
		fields["storytitle"] = truncate(sentences[0], 80)
	}
	for i := 1; i <= middleCount(slideCount); i++ {
		if i-1 < len(sentences) {
			fields[fmt.Sprintf("s%dparagraph1", i)] = truncate(sentences[i-1], paragraphLimit(i))
		}
	}
	return BuildDeck(fields, pc, ins, slideCount), nil
}

func splitSentences(text string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[start:loc[1]]); s != "" {
			out = append(out, s)
		}
		start = loc[1]
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}
