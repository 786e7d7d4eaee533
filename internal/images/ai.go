package images

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/suvichaar/storygen/internal/models"
	"github.com/suvichaar/storygen/internal/retry"
)

// ImageClient generates one image for a prompt.
type ImageClient interface {
	GenerateImage(ctx context.Context, prompt string) (data []byte, contentType string, err error)
}

// AIProvider generates one image per slide, retrying through the retry state
// machine. A content-policy rejection is retried once with a simplified prompt.
type AIProvider struct {
	client ImageClient
	policy retry.Policy
	limit  int
	logger *slog.Logger
}

func NewAIProvider(client ImageClient, policy retry.Policy, limit int, logger *slog.Logger) *AIProvider {
	if limit <= 0 {
		limit = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AIProvider{client: client, policy: policy, limit: limit, logger: logger}
}

func (p *AIProvider) Provide(ctx context.Context, deck models.SlideDeck, payload models.Payload) ([]RawImage, error) {
	out := make([]RawImage, len(deck.Slides))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)
	for i, slide := range deck.Slides {
		g.Go(func() error {
			out[i] = p.generate(gctx, slide, payload.Keywords)
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

func (p *AIProvider) generate(ctx context.Context, slide models.SlideBlock, keywords []string) RawImage {
	raw := RawImage{Source: models.SourceAI, Filename: fmt.Sprintf("slide-%d.png", slide.Index)}
	err := p.policy.Do(ctx, func(ctx context.Context, a retry.Attempt) error {
		prompt := SlidePrompt(slide, keywords)
		if a.Simplified {
			prompt = SimplifiedPrompt(slide)
		}
		data, ct, err := p.client.GenerateImage(ctx, prompt)
		if err != nil {
			p.logger.Debug("image generation attempt failed",
				"slide", slide.Index, "attempt", a.Number, "simplified", a.Simplified, "error", err)
			return err
		}
		raw.Data, raw.ContentType = data, ct
		raw.Ref = fmt.Sprintf("ai:slide-%d", slide.Index)
		return nil
	})
	if err != nil {
		raw.Err = fmt.Errorf("ai image for slide %d: %w", slide.Index, err)
	}
	return raw
}

// SlidePrompt is the image prompt for a slide: its alt text, or its text and keywords.
func SlidePrompt(slide models.SlideBlock, keywords []string) string {
	if alt := strings.TrimSpace(slide.AltText); alt != "" {
		return alt
	}
	text := strings.TrimSpace(slide.Text)
	if text == "" {
		text = "Visual concept"
	}
	kw := "story"
	if len(keywords) > 0 {
		kw = strings.Join(keywords, ", ")
	}
	return fmt.Sprintf("%s | keywords: %s", text, kw)
}

// SimplifiedPrompt is the neutral fallback used after a content-policy rejection.
func SimplifiedPrompt(slide models.SlideBlock) string {
	words := strings.Fields(slide.Text)
	if len(words) > 8 {
		words = words[:8]
	}
	subject := strings.Join(words, " ")
	if subject == "" {
		subject = "an abstract concept"
	}
	return fmt.Sprintf("A calm, family-friendly editorial illustration about %s. No people, no text.", subject)
}
