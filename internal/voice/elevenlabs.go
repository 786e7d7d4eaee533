package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/suvichaar/storygen/internal/httpclient"
)

// ElevenLabsBaseURL is the public API root.
const ElevenLabsBaseURL = "https://api.elevenlabs.io"

const elevenLabsModel = "eleven_multilingual_v2"

// ElevenLabsProvider calls the ElevenLabs text-to-speech endpoint.
type ElevenLabsProvider struct {
	client  *httpclient.Client
	key     string
	voiceID string
}

func NewElevenLabsProvider(client *httpclient.Client, key, voiceID string) *ElevenLabsProvider {
	return &ElevenLabsProvider{client: client, key: key, voiceID: voiceID}
}

func (p *ElevenLabsProvider) Name() string { return ProviderElevenLabs }

type elevenLabsRequest struct {
	Text          string             `json:"text"`
	ModelID       string             `json:"model_id"`
	LanguageCode  string             `json:"language_code,omitempty"`
	VoiceSettings elevenLabsSettings `json:"voice_settings"`
}

type elevenLabsSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

func (p *ElevenLabsProvider) Synthesize(ctx context.Context, text, language string) (Audio, error) {
	body, err := json.Marshal(elevenLabsRequest{
		Text:          text,
		ModelID:       elevenLabsModel,
		LanguageCode:  language,
		VoiceSettings: elevenLabsSettings{Stability: 0.5, SimilarityBoost: 0.75},
	})
	if err != nil {
		return Audio{}, fmt.Errorf("elevenlabs: encode: %w", err)
	}
	path := "/v1/text-to-speech/" + url.PathEscape(p.voiceID)
	headers := map[string]string{
		"xi-api-key": p.key,
		"Accept":     "audio/mpeg",
	}
	data, _, err := p.client.Do(ctx, http.MethodPost, path, "application/json", headers, body)
	if err != nil {
		return Audio{}, err
	}
	return Audio{Data: data, ContentType: "audio/mpeg", VoiceID: p.voiceID}, nil
}
