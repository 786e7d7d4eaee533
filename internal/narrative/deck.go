package narrative

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/suvichaar/storygen/internal/models"
	"github.com/suvichaar/storygen/internal/template"
)

const (
	maxCoverRunes = 180
	defaultTitle  = "Web Story"
)

var (
	fencedJSON = regexp.MustCompile("```(?:json)?\\s*(\\{[\\s\\S]*\\})\\s*```")
	bracedJSON = regexp.MustCompile(`\{[\s\S]*\}`)

	errNotJSON = errors.New("no json object in model output")
)

// ParseFields reads the model output as a flat JSON object. It tries the whole
// output, then a fenced code block, then the outermost brace span. Non-string
// values are kept in their JSON form.
func ParseFields(raw string) (map[string]string, error) {
	candidates := []string{strings.TrimSpace(raw)}
	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		candidates = append(candidates, m[1])
	}
	if m := bracedJSON.FindString(raw); m != "" {
		candidates = append(candidates, m)
	}
	for _, c := range candidates {
		var obj map[string]any
		if err := json.Unmarshal([]byte(c), &obj); err != nil {
			continue
		}
		out := make(map[string]string, len(obj))
		for k, v := range obj {
			switch val := v.(type) {
			case string:
				out[k] = val
			case nil:
			default:
				b, _ := json.Marshal(val)
				out[k] = string(b)
			}
		}
		return out, nil
	}
	return nil, errNotJSON
}

// BuildDeck assembles a deck of exactly slideCount slides from the parsed
// fields: the cover, slideCount-2 content slides and the call to action.
func BuildDeck(fields map[string]string, pc PromptContext, ins models.DocInsights, slideCount int) models.SlideDeck {
	middle := middleCount(slideCount)
	lang := pc.Language
	if lang == "" {
		lang = "en"
	}
	deck := models.SlideDeck{TemplateKey: pc.TemplateKey, LanguageCode: lang}

	title := clean(fields["storytitle"])
	if title == "" {
		title = clean(ins.SourceTitle)
	}
	if title == "" {
		title = strings.Trim(truncate(clean(fields["s1paragraph1"]), 60), " .,-")
	}
	if title == "" {
		title = defaultTitle
	}
	title = truncate(title, maxCoverRunes)

	coverAlt := strings.TrimSpace(fields["s0alt1"])
	if coverAlt == "" {
		coverAlt = fmt.Sprintf("Cover for the story titled '%s': welcoming, abstract motif. %s", title, GenericAlt)
	}
	deck.Slides = append(deck.Slides, models.SlideBlock{
		Index:         0,
		PlaceholderID: "storytitle",
		Text:          title,
		AltText:       coverAlt,
	})

	for i := 1; i <= middle; i++ {
		text := clean(fields[fmt.Sprintf("s%dparagraph1", i)])
		alt := strings.TrimSpace(fields[fmt.Sprintf("s%dalt1", i)])
		if text == "" {
			text = fmt.Sprintf("Slide %d content", i)
			if alt == "" {
				alt = GenericAlt
			}
		}
		if alt == "" {
			alt = truncate(text, 200) + ". " + GenericAlt
		}
		deck.Slides = append(deck.Slides, models.SlideBlock{
			Index:         i,
			PlaceholderID: fmt.Sprintf("s%dparagraph1", i),
			Text:          text,
			AltText:       alt,
		})
	}

	if slideCount >= 2 {
		cta := clean(fields["ctaparagraph"])
		if cta == "" {
			cta = defaultCTA(pc.Mode)
		}
		deck.Slides = append(deck.Slides, models.SlideBlock{
			Index:         slideCount - 1,
			PlaceholderID: "ctaparagraph",
			Text:          cta,
			AltText:       GenericAlt,
		})
	}
	return deck
}

func defaultCTA(mode models.Mode) string {
	if mode == models.ModeNews {
		return "Stay informed. Read more stories on Suvichaar."
	}
	return "Keep exploring. Discover more stories on Suvichaar."
}

func clean(s string) string {
	return strings.TrimSpace(template.StripMarkdown(s))
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:max]))
}
