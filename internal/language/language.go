// Package language works out which language a story should be written in.
package language

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/language"

	"github.com/suvichaar/storygen/internal/models"
)

const (
	DefaultCode        = "en"
	explicitConfidence = 0.95
	previewRunes       = 200
)

// Detector returns the language of a payload.
type Detector interface {
	Detect(ctx context.Context, p models.Payload) (models.LanguageMetadata, error)
}

type request struct {
	code     string
	patterns []*regexp.Regexp
}

func compile(code string, exprs ...string) request {
	r := request{code: code}
	for _, e := range exprs {
		r.patterns = append(r.patterns, regexp.MustCompile(`(?i)`+e))
	}
	return r
}

// requests are checked in order; the first match wins.
var requests = []request{
	compile("hi", `\bin\s+hindi\b`, `\bin\s+हिंदी`, `हिंदी\s+में`, `\bhindi\s+mein\b`, `\bhindi\s+me\b`, `हिंदी\s+मैं`),
	compile("en", `\bin\s+english\b`, `\bin\s+अंग्रेजी`, `\benglish\s+mein\b`, `\benglish\s+me\b`),
	compile("mr", `\bin\s+marathi\b`, `\bin\s+मराठी`, `\bmarathi\s+mein\b`, `\bmarathi\s+me\b`, `मराठी\s+मध्ये`),
	compile("gu", `\bin\s+gujarati\b`, `\bin\s+ગુજરાતી`, `\bgujarati\s+mein\b`, `\bgujarati\s+me\b`),
	compile("ta", `\bin\s+tamil\b`, `\bin\s+தமிழ்`, `\btamil\s+mein\b`, `\btamil\s+me\b`),
	compile("te", `\bin\s+telugu\b`, `\bin\s+తెలుగు`, `\btelugu\s+mein\b`, `\btelugu\s+me\b`),
	compile("kn", `\bin\s+kannada\b`, `\bin\s+ಕನ್ನಡ`, `\bkannada\s+mein\b`, `\bkannada\s+me\b`),
	compile("bn", `\bin\s+bengali\b`, `\bin\s+বাংলা`, `\bbengali\s+mein\b`, `\bbengali\s+me\b`),
	compile("pa", `\bin\s+punjabi\b`, `\bin\s+ਪੰਜਾਬੀ`, `\bpunjabi\s+mein\b`, `\bpunjabi\s+me\b`),
	compile("ur", `\bin\s+urdu\b`, `\bin\s+اردو`, `\burdu\s+mein\b`, `\burdu\s+me\b`),
	compile("or", `\bin\s+odia\b`, `\bin\s+ଓଡ଼ିଆ`, `\bodia\s+mein\b`, `\bodia\s+me\b`),
	compile("ml", `\bin\s+malayalam\b`, `\bin\s+മലയാളം`, `\bmalayalam\s+mein\b`, `\bmalayalam\s+me\b`),
}

// ExplicitRequest returns the language a text explicitly asks for, such as "in hindi".
func ExplicitRequest(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	for _, r := range requests {
		for _, p := range r.patterns {
			if p.MatchString(text) {
				return r.code, true
			}
		}
	}
	return "", false
}

// scripts maps a Unicode script to the language it most likely indicates.
var scripts = []struct {
	table *unicode.RangeTable
	code  string
}{
	{unicode.Devanagari, "hi"},
	{unicode.Bengali, "bn"},
	{unicode.Gurmukhi, "pa"},
	{unicode.Gujarati, "gu"},
	{unicode.Oriya, "or"},
	{unicode.Tamil, "ta"},
	{unicode.Telugu, "te"},
	{unicode.Kannada, "kn"},
	{unicode.Malayalam, "ml"},
	{unicode.Arabic, "ur"},
	{unicode.Han, "zh"},
	{unicode.Hiragana, "ja"},
	{unicode.Katakana, "ja"},
	{unicode.Hangul, "ko"},
	{unicode.Cyrillic, "ru"},
	{unicode.Latin, "en"},
}

// ScriptGuess picks the language of the dominant script among the letters of text.
func ScriptGuess(text string) (string, float64) {
	counts := map[string]int{}
	total := 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		total++
		for _, s := range scripts {
			if unicode.Is(s.table, r) {
				counts[s.code]++
				break
			}
		}
	}
	if total == 0 {
		return DefaultCode, 0
	}
	best, bestN := DefaultCode, 0
	for _, s := range scripts {
		if n := counts[s.code]; n > bestN {
			best, bestN = s.code, n
		}
	}
	return best, float64(bestN) / float64(total)
}

// Canonical validates a code as a BCP 47 tag and returns its base language.
func Canonical(code string) (string, bool) {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return "", false
	}
	base, conf := tag.Base()
	if conf == language.No {
		return "", false
	}
	return base.String(), true
}

// HeuristicDetector honours explicit requests and otherwise guesses from the script.
type HeuristicDetector struct {
	logger *slog.Logger
}

func NewHeuristicDetector(logger *slog.Logger) *HeuristicDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &HeuristicDetector{logger: logger}
}

func (d *HeuristicDetector) Detect(ctx context.Context, p models.Payload) (models.LanguageMetadata, error) {
	if err := ctx.Err(); err != nil {
		return models.LanguageMetadata{}, err
	}
	text := aggregate(p)
	preview := truncate(text, previewRunes)

	for _, field := range []string{p.TextPrompt, p.Notes} {
		code, ok := ExplicitRequest(field)
		if !ok {
			continue
		}
		if canon, valid := Canonical(code); valid {
			d.logger.Info("explicit language request", "language", canon)
			return models.LanguageMetadata{Code: canon, Confidence: explicitConfidence, Explicit: true, Preview: preview}, nil
		}
		d.logger.Warn("invalid explicit language code, falling back to detection", "code", code)
	}

	if strings.TrimSpace(text) == "" {
		return models.LanguageMetadata{Code: DefaultCode, Confidence: 0}, nil
	}
	code, confidence := ScriptGuess(text)
	if canon, ok := Canonical(code); ok {
		code = canon
	} else {
		code, confidence = DefaultCode, 0
	}
	return models.LanguageMetadata{Code: code, Confidence: confidence, Preview: preview}, nil
}

// aggregate joins the payload fields detection runs over.
func aggregate(p models.Payload) string {
	var segments []string
	if p.TextPrompt != "" {
		segments = append(segments, p.TextPrompt)
	}
	if p.Notes != "" {
		segments = append(segments, p.Notes)
	}
	if len(p.Keywords) > 0 {
		segments = append(segments, strings.Join(p.Keywords, " "))
	}
	return strings.Join(segments, " \n ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
