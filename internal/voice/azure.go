package voice

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"github.com/suvichaar/storygen/internal/httpclient"
)

const (
	azureOutputFormat = "audio-24khz-48kbitrate-mono-mp3"
	azureBitRate      = 48000
	azurePath         = "/cognitiveservices/v1"
)

// azureVoices is the neural voice used per language when the configured
// voice does not speak it.
var azureVoices = map[string]string{
	"en": "en-US-AriaNeural",
	"hi": "hi-IN-AaravNeural",
	"mr": "mr-IN-AarohiNeural",
	"gu": "gu-IN-DhwaniNeural",
	"ta": "ta-IN-PallaviNeural",
	"te": "te-IN-ShrutiNeural",
	"kn": "kn-IN-SapnaNeural",
	"bn": "bn-IN-TanishaaNeural",
	"pa": "pa-IN-OjasNeural",
	"ur": "ur-IN-GulNeural",
	"ml": "ml-IN-SobhanaNeural",
	"or": "or-IN-SubhasiniNeural",
}

// AzureBaseURL is the regional speech endpoint.
func AzureBaseURL(region string) string {
	return fmt.Sprintf("https://%s.tts.speech.microsoft.com", region)
}

// AzureProvider calls the Azure Speech REST API with SSML.
type AzureProvider struct {
	client *httpclient.Client
	key    string
	voice  string
}

func NewAzureProvider(client *httpclient.Client, key, voice string) *AzureProvider {
	return &AzureProvider{client: client, key: key, voice: voice}
}

func (p *AzureProvider) Name() string { return ProviderAzure }

func (p *AzureProvider) Synthesize(ctx context.Context, text, language string) (Audio, error) {
	voice := p.voiceFor(language)
	ssml, err := SSML(text, localeOf(voice), voice)
	if err != nil {
		return Audio{}, err
	}
	headers := map[string]string{
		"Ocp-Apim-Subscription-Key": p.key,
		"X-Microsoft-OutputFormat":  azureOutputFormat,
		"User-Agent":                "storygen",
	}
	data, ct, err := p.client.Do(ctx, http.MethodPost, azurePath, "application/ssml+xml", headers, ssml)
	if err != nil {
		return Audio{}, err
	}
	if ct == "" || !strings.HasPrefix(ct, "audio/") {
		ct = "audio/mpeg"
	}
	return Audio{Data: data, ContentType: ct, VoiceID: voice, BitRate: azureBitRate}, nil
}

func (p *AzureProvider) voiceFor(language string) string {
	lang := strings.ToLower(strings.SplitN(language, "-", 2)[0])
	if lang == "" || strings.HasPrefix(strings.ToLower(p.voice), lang+"-") {
		return p.voice
	}
	if v, ok := azureVoices[lang]; ok {
		return v
	}
	return p.voice
}

func localeOf(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 3 {
		return "en-US"
	}
	return parts[0] + "-" + parts[1]
}

// SSML wraps text in a speak document for a single voice.
func SSML(text, locale, voice string) ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, `<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="%s"><voice name="%s">`, locale, voice)
	if err := xml.EscapeText(&b, []byte(text)); err != nil {
		return nil, fmt.Errorf("escape ssml: %w", err)
	}
	b.WriteString(`</voice></speak>`)
	return b.Bytes(), nil
}
