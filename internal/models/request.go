package models

import (
	"fmt"
	"strings"
)

// SourcePolicy selects where slide images come from.
type SourcePolicy string

const (
	SourceDefault SourcePolicy = "default"
	SourceCustom  SourcePolicy = "custom"
	SourceAI      SourcePolicy = "ai"
	SourcePexels  SourcePolicy = "pexels"
)

// modeRule holds the per-mode request constraints.
type modeRule struct {
	minSlides int
	maxSlides int // 0 means unbounded
	policies  map[SourcePolicy]bool
	template  string
	category  string
}

var modeRules = map[Mode]modeRule{
	ModeNews: {
		minSlides: 4,
		maxSlides: 10,
		policies:  map[SourcePolicy]bool{SourceDefault: true, SourceCustom: true, SourceAI: true},
		template:  "test-news-1",
		category:  "News",
	},
	ModeCurious: {
		minSlides: 7,
		policies:  map[SourcePolicy]bool{SourceDefault: true, SourceCustom: true, SourceAI: true, SourcePexels: true},
		template:  "curious-template-1",
		category:  "Art",
	},
}

// AllowsPolicy reports whether mode accepts the image source policy.
func AllowsPolicy(mode Mode, p SourcePolicy) bool {
	rule, ok := modeRules[mode]
	return ok && rule.policies[p]
}

// DefaultTemplate returns the template used when a request names none.
func DefaultTemplate(mode Mode) string {
	return modeRules[mode].template
}

// DefaultCategory returns the category used when a request names none.
func DefaultCategory(mode Mode) string {
	return modeRules[mode].category
}

// GenerationRequest is the JSON body for POST /api/stories.
type GenerationRequest struct {
	Mode           Mode         `json:"mode"`
	TemplateKey    string       `json:"template_key"`
	SlideCount     int          `json:"slide_count"`
	Category       string       `json:"category"`
	UserInput      string       `json:"user_input"`
	TextPrompt     string       `json:"text_prompt"`
	Notes          string       `json:"notes"`
	URLs           []string     `json:"urls"`
	Attachments    []string     `json:"attachments"`
	PromptKeywords []string     `json:"prompt_keywords"`
	ImageSource    SourcePolicy `json:"image_source"`
	VoiceEngine    string       `json:"voice_engine"`
}

// ValidationError is a rejected request. No external call has been made when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ApplyDefaults fills optional fields that have mode-dependent defaults.
func (r *GenerationRequest) ApplyDefaults() {
	r.Mode = Mode(strings.ToLower(strings.TrimSpace(string(r.Mode))))
	r.ImageSource = SourcePolicy(strings.ToLower(strings.TrimSpace(string(r.ImageSource))))
	if r.ImageSource == "" {
		r.ImageSource = SourceDefault
	}
	if strings.TrimSpace(r.TemplateKey) == "" {
		r.TemplateKey = DefaultTemplate(r.Mode)
	}
	if strings.TrimSpace(r.Category) == "" {
		r.Category = DefaultCategory(r.Mode)
	}
}

// Validate checks the mode, slide count and image-source combination.
func (r *GenerationRequest) Validate() error {
	rule, ok := modeRules[r.Mode]
	if !ok {
		return invalid("mode", "unknown mode %q", r.Mode)
	}
	if r.SlideCount < rule.minSlides {
		return invalid("slide_count", "%s mode needs at least %d slides, got %d", r.Mode, rule.minSlides, r.SlideCount)
	}
	if rule.maxSlides > 0 && r.SlideCount > rule.maxSlides {
		return invalid("slide_count", "%s mode allows at most %d slides, got %d", r.Mode, rule.maxSlides, r.SlideCount)
	}
	if !rule.policies[r.ImageSource] {
		return invalid("image_source", "%q is not allowed in %s mode", r.ImageSource, r.Mode)
	}
	switch r.ImageSource {
	case SourceCustom:
		if len(r.ImageAttachments()) == 0 {
			return invalid("attachments", "custom image source requires at least one image attachment")
		}
	case SourcePexels:
		if !hasKeyword(r.PromptKeywords) {
			return invalid("prompt_keywords", "pexels image source requires at least one keyword")
		}
	}
	if r.UserInput == "" && r.TextPrompt == "" && r.Notes == "" && len(r.URLs) == 0 && len(r.Attachments) == 0 {
		return invalid("user_input", "no content supplied")
	}
	return nil
}

var imageExts = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

// IsImageRef reports whether a reference names an image by its extension.
func IsImageRef(ref string) bool {
	lower := strings.ToLower(ref)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	for _, ext := range imageExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// ImageAttachments returns the attachments that are images, in order,
// followed by user_input when it is an image file reference.
func (r *GenerationRequest) ImageAttachments() []string {
	var out []string
	for _, a := range r.Attachments {
		if a = strings.TrimSpace(a); IsImageRef(a) {
			out = append(out, a)
		}
	}
	if in := strings.TrimSpace(r.UserInput); IsFileRef(in) && IsImageRef(in) {
		out = append(out, in)
	}
	return out
}

// hasKeyword reports whether any comma separated entry is non-blank.
func hasKeyword(entries []string) bool {
	for _, e := range entries {
		if strings.TrimSpace(strings.ReplaceAll(e, ",", "")) != "" {
			return true
		}
	}
	return false
}

var (
	fileExts    = []string{".pdf", ".jpg", ".jpeg", ".png", ".webp", ".gif", ".docx", ".doc", ".txt", ".md"}
	fileSchemes = []string{"file://", "s3://", "gs://", "http://", "https://"}
)

// IsFileRef reports whether s is a single path or URI naming a document or
// image by its extension.
func IsFileRef(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\n") {
		return false
	}
	lower := strings.ToLower(s)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	hasExt := false
	for _, ext := range fileExts {
		if strings.HasSuffix(lower, ext) {
			hasExt = true
			break
		}
	}
	if !hasExt {
		return false
	}
	for _, scheme := range fileSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return strings.ContainsAny(s, `/\`)
}
