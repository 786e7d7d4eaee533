// Package narrative turns document insights into a slide deck with a
// language model. The model answers with a flat JSON object whose keys name
// the template placeholders; whatever it leaves out is filled with fallbacks.
package narrative

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/suvichaar/storygen/internal/models"
)

// maxSourceRunes caps the source text sent to the model.
const maxSourceRunes = 3000

// GenericAlt is appended to image prompts and used when a slide has none.
const GenericAlt = "Flat vector illustration of the slide's idea; clean geometric shapes, " +
	"smooth gradients, harmonious palette; inclusive, family-friendly; " +
	"no text, logos or watermarks; no real-person likeness."

// safetyAddendum is added to the system prompt on the simplified attempt.
const safetyAddendum = "Keep every value neutral, factual and family-friendly. " +
	"Avoid graphic detail, named private individuals and sensitive imagery."

// PromptContext is the request-level context the prompt is written for.
type PromptContext struct {
	Mode        models.Mode
	Language    string
	Category    string
	TemplateKey string
	Keywords    []string
}

// paragraphLimit is the character budget of content slide i.
func paragraphLimit(i int) int {
	switch {
	case i <= 1:
		return 500
	case i <= 5:
		return 500 - (i-1)*50
	default:
		return 250
	}
}

// LanguageName returns the English name of a language code, or the code itself.
func LanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}

// SourceText is the text the narrative is written from.
func SourceText(ins models.DocInsights) string {
	text := strings.TrimSpace(ins.Text(0))
	if utf8.RuneCountInString(text) > maxSourceRunes {
		text = string([]rune(text)[:maxSourceRunes])
	}
	return text
}

// SystemPrompt describes the JSON contract for a deck with middle content slides.
func SystemPrompt(pc PromptContext, middle int) string {
	lang := LanguageName(pc.Language)

	var b strings.Builder
	switch pc.Mode {
	case models.ModeNews:
		b.WriteString("You are a news editor writing a short, factual web story. ")
		b.WriteString("Report only what the source says, in a neutral tone.\n\n")
	default:
		b.WriteString("You are an educator writing a curious, engaging explainer web story. ")
		b.WriteString("Explain the idea step by step for a general audience.\n\n")
	}
	if pc.Category != "" {
		fmt.Fprintf(&b, "Category: %s.\n", pc.Category)
	}
	if len(pc.Keywords) > 0 {
		fmt.Fprintf(&b, "Focus keywords: %s.\n", strings.Join(pc.Keywords, ", "))
	}

	fmt.Fprintf(&b, "\nLANGUAGE RULES:\n")
	fmt.Fprintf(&b, "- Story values (storytitle, s1paragraph1..s%dparagraph1, ctaparagraph) MUST be written in %s.\n", middle, lang)
	fmt.Fprintf(&b, "- Image prompts (s0alt1, s1alt1..s%dalt1) MUST be in English only.\n", middle)

	fmt.Fprintf(&b, "\nTASKS:\n")
	fmt.Fprintf(&b, "1) storytitle: a short, catchy title of at most 80 characters, plain text.\n")
	fmt.Fprintf(&b, "2) Exactly %d content slides:\n", middle)
	for i := 1; i <= middle; i++ {
		fmt.Fprintf(&b, "   - s%dparagraph1: at most %d characters\n", i, paragraphLimit(i))
	}
	fmt.Fprintf(&b, "3) One image prompt per slide: s0alt1 for the cover, s1alt1..s%dalt1 for the content slides. "+
		"Prompts must be safe, with no real-person likeness and no text in the image.\n", middle)
	fmt.Fprintf(&b, "4) ctaparagraph: one closing sentence inviting the reader to explore more.\n")

	fmt.Fprintf(&b, "\nReturn a single JSON object with exactly these keys:\n{\n")
	keys := FieldKeys(middle)
	for i, k := range keys {
		sep := ","
		if i == len(keys)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "  %q: \"...\"%s\n", k, sep)
	}
	b.WriteString("}\n")
	return b.String()
}

// UserPrompt wraps the source text.
func UserPrompt(source string, middle int) string {
	return fmt.Sprintf("SOURCE INPUT:\n%s\n\nReturn only the JSON object described above. "+
		"No markdown, no code fences, just valid JSON. Include EXACTLY %d slides.", source, middle)
}

// RenderPrompt is the user prompt for a deck of slideCount slides, as stored on the record.
func RenderPrompt(ins models.DocInsights, slideCount int) string {
	return UserPrompt(SourceText(ins), middleCount(slideCount))
}

// FieldKeys lists the JSON keys expected for middle content slides, in prompt order.
func FieldKeys(middle int) []string {
	keys := []string{"storytitle", "s0alt1"}
	for i := 1; i <= middle; i++ {
		keys = append(keys, fmt.Sprintf("s%dparagraph1", i))
	}
	for i := 1; i <= middle; i++ {
		keys = append(keys, fmt.Sprintf("s%dalt1", i))
	}
	return append(keys, "ctaparagraph")
}

func middleCount(slideCount int) int {
	if slideCount < 2 {
		return 0
	}
	return slideCount - 2
}
