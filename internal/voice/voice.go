// Package voice narrates every slide of a deck and stores the clips.
package voice

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/suvichaar/storygen/internal/models"
	"github.com/suvichaar/storygen/internal/retry"
)

// Provider ids accepted in voice_engine.
const (
	ProviderAzure      = "azure_basic"
	ProviderElevenLabs = "elevenlabs_pro"
	DefaultProvider    = ProviderAzure
)

// Audio is a synthesized clip before storage.
type Audio struct {
	Data        []byte
	ContentType string
	VoiceID     string
	BitRate     int // bits per second, 0 when unknown
}

// Synthesizer is one TTS backend.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text, language string) (Audio, error)
}

// AudioStore persists clips and addresses them.
type AudioStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	URL(key string) string
}

// Service fans out per-slide synthesis over a bounded pool.
type Service struct {
	providers map[string]Synthesizer
	store     AudioStore
	prefix    string
	limit     int
	policy    retry.Policy
	logger    *slog.Logger
}

func NewService(store AudioStore, prefix string, limit int, policy retry.Policy, logger *slog.Logger, providers ...Synthesizer) *Service {
	if limit <= 0 {
		limit = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		providers: make(map[string]Synthesizer, len(providers)),
		store:     store,
		prefix:    strings.TrimRight(prefix, "/"),
		limit:     limit,
		policy:    policy,
		logger:    logger,
	}
	for _, p := range providers {
		s.providers[p.Name()] = p
	}
	return s
}

// Providers lists the configured provider ids in name order.
func (s *Service) Providers() []string {
	out := make([]string, 0, len(s.providers))
	for name := range s.providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Synthesize returns at most one clip per slide, in slide order. Slides that
// could not be narrated are reported as warnings and never fail the call.
func (s *Service) Synthesize(ctx context.Context, deck models.SlideDeck, language, provider string) ([]models.VoiceAsset, []models.Warning) {
	if provider == "" {
		provider = DefaultProvider
	}
	synth, ok := s.providers[provider]
	if !ok {
		s.logger.Warn("voice provider unavailable, skipping narration", "provider", provider)
		warnings := make([]models.Warning, len(deck.Slides))
		for i, slide := range deck.Slides {
			warnings[i] = models.Warning{
				SlideIndex: slide.Index,
				Kind:       models.WarnVoice,
				Message:    fmt.Sprintf("voice provider %q is not available", provider),
			}
		}
		return nil, warnings
	}

	assets := make([]*models.VoiceAsset, len(deck.Slides))
	failures := make([]error, len(deck.Slides))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for i, slide := range deck.Slides {
		g.Go(func() error {
			asset, err := s.narrate(gctx, synth, slide, language)
			if err != nil {
				s.logger.Warn("slide narration failed (non-fatal)", "slide", slide.Index, "provider", provider, "error", err)
				failures[i] = err
				return nil
			}
			assets[i] = &asset
			return nil
		})
	}
	_ = g.Wait()

	var out []models.VoiceAsset
	var warnings []models.Warning
	for i, a := range assets {
		if a != nil {
			out = append(out, *a)
			continue
		}
		warnings = append(warnings, models.Warning{SlideIndex: deck.Slides[i].Index, Kind: models.WarnVoice, Message: failures[i].Error()})
	}
	return out, warnings
}

func (s *Service) narrate(ctx context.Context, synth Synthesizer, slide models.SlideBlock, language string) (models.VoiceAsset, error) {
	text := strings.TrimSpace(slide.Text)
	if text == "" {
		return models.VoiceAsset{}, fmt.Errorf("slide %d has no text to narrate", slide.Index)
	}

	var audio Audio
	err := s.policy.Do(ctx, func(ctx context.Context, _ retry.Attempt) error {
		var err error
		audio, err = synth.Synthesize(ctx, text, language)
		return err
	})
	if err != nil {
		return models.VoiceAsset{}, err
	}
	if len(audio.Data) == 0 {
		return models.VoiceAsset{}, fmt.Errorf("%s returned no audio", synth.Name())
	}

	key := uuid.NewString() + ".mp3"
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}
	ct := audio.ContentType
	if ct == "" {
		ct = "audio/mpeg"
	}
	if err := s.store.Upload(ctx, key, audio.Data, ct); err != nil {
		return models.VoiceAsset{}, fmt.Errorf("store audio: %w", err)
	}

	asset := models.VoiceAsset{
		SlideIndex: slide.Index,
		Provider:   synth.Name(),
		VoiceID:    audio.VoiceID,
		AudioURL:   s.store.URL(key),
	}
	if audio.BitRate > 0 {
		d := float64(len(audio.Data)*8) / float64(audio.BitRate)
		asset.DurationSeconds = &d
	}
	return asset, nil
}
