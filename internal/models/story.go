package models

import (
	"time"
)

// Mode selects the product flavour of a story.
type Mode string

const (
	ModeNews    Mode = "news"
	ModeCurious Mode = "curious"
)

// SlideBlock is one unit of narrative text in a deck.
type SlideBlock struct {
	Index         int    `json:"index"           bson:"index"`
	PlaceholderID string `json:"placeholder_id"  bson:"placeholder_id"`
	Text          string `json:"text"            bson:"text"`
	ImageHint     string `json:"image_hint,omitempty" bson:"image_hint,omitempty"`
	AltText       string `json:"alt_text,omitempty"   bson:"alt_text,omitempty"`
}

// SlideDeck is the ordered narrative. Slide 0 is the cover, the last slide is the call to action.
type SlideDeck struct {
	TemplateKey  string       `json:"template_key"  bson:"template_key"`
	LanguageCode string       `json:"language_code" bson:"language_code"`
	Slides       []SlideBlock `json:"slides"        bson:"slides"`
}

// Title returns the cover text.
func (d SlideDeck) Title() string {
	if len(d.Slides) == 0 {
		return ""
	}
	return d.Slides[0].Text
}

// SemanticChunk is a piece of extracted source text.
type SemanticChunk struct {
	ID     string `json:"id"     bson:"id"`
	Text   string `json:"text"   bson:"text"`
	Source string `json:"source" bson:"source"`
}

// DocInsights is everything extracted from the request inputs before narration.
type DocInsights struct {
	Chunks      []SemanticChunk `json:"chunks"       bson:"chunks"`
	ImageRefs   []string        `json:"image_refs"   bson:"image_refs"`
	SourceTitle string          `json:"source_title,omitempty" bson:"source_title,omitempty"`
}

// Text joins the first limit chunks.
func (d DocInsights) Text(limit int) string {
	out := ""
	for i, c := range d.Chunks {
		if limit > 0 && i >= limit {
			break
		}
		if out != "" {
			out += "\n\n"
		}
		out += c.Text
	}
	return out
}

// ImageVariant is a resized rendition of a stored image.
type ImageVariant struct {
	Role   string `json:"role"   bson:"role"`
	Width  int    `json:"width"  bson:"width"`
	Height int    `json:"height" bson:"height"`
	URL    string `json:"url"    bson:"url"`
}

// ImageAsset is the provisioned background for one slide.
type ImageAsset struct {
	SlideIndex int            `json:"slide_index"            bson:"slide_index"`
	Source     SourcePolicy   `json:"source"                 bson:"source"`
	RawRef     string         `json:"raw_ref,omitempty"      bson:"raw_ref,omitempty"`
	ObjectKey  string         `json:"object_key,omitempty"   bson:"object_key,omitempty"`
	URL        string         `json:"url"                    bson:"url"`
	Variants   []ImageVariant `json:"variants,omitempty"     bson:"variants,omitempty"`
	Fallback   bool           `json:"fallback"               bson:"fallback"`
}

// Variant returns the URL of the named variant, or the asset URL.
func (a ImageAsset) Variant(role string) string {
	for _, v := range a.Variants {
		if v.Role == role {
			return v.URL
		}
	}
	return a.URL
}

// VoiceAsset is the narration clip for one slide.
type VoiceAsset struct {
	SlideIndex      int      `json:"slide_index"                bson:"slide_index"`
	Provider        string   `json:"provider"                   bson:"provider"`
	VoiceID         string   `json:"voice_id,omitempty"         bson:"voice_id,omitempty"`
	AudioURL        string   `json:"audio_url"                  bson:"audio_url"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty" bson:"duration_seconds,omitempty"`
}

// Warning kinds.
const (
	WarnImage     = "image"
	WarnVoice     = "voice"
	WarnReconcile = "reconcile"
)

// Warning records a degraded asset that did not fail the request.
type Warning struct {
	SlideIndex int    `json:"slide_index" bson:"slide_index"`
	Kind       string `json:"kind"        bson:"kind"`
	Message    string `json:"message"     bson:"message"`
}

// StoryRecord is the aggregate produced by one successful generation run.
type StoryRecord struct {
	ID            string        `json:"id"                       bson:"record_id"`
	Mode          Mode          `json:"mode"                     bson:"mode"`
	Category      string        `json:"category"                 bson:"category"`
	InputLanguage string        `json:"input_language"           bson:"input_language"`
	SlideCount    int           `json:"slide_count"              bson:"slide_count"`
	TemplateKey   string        `json:"template_key"             bson:"template_key"`
	PromptNews    string        `json:"prompt_news,omitempty"    bson:"prompt_news,omitempty"`
	PromptCurious string        `json:"prompt_curious,omitempty" bson:"prompt_curious,omitempty"`
	DocInsights   DocInsights   `json:"doc_insights"             bson:"doc_insights"`
	SlideDeck     SlideDeck     `json:"slide_deck"               bson:"slide_deck"`
	ImageAssets   []ImageAsset  `json:"image_assets"             bson:"image_assets"`
	VoiceAssets   []VoiceAsset  `json:"voice_assets"             bson:"voice_assets"`
	CanURL        string        `json:"canurl"                   bson:"canurl"`
	CanURL1       string        `json:"canurl1"                  bson:"canurl1"`
	DocumentURL   string        `json:"document_url,omitempty"   bson:"document_url,omitempty"`
	Warnings      []Warning     `json:"warnings"                 bson:"warnings"`
	CreatedAt     time.Time     `json:"created_at"               bson:"created_at"`
}
