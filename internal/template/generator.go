package template

import (
	"fmt"
	"html"
	"strings"
)

// SlideGenerator renders the markup of one interior slide.
// Implementations are pure: the output depends only on the arguments.
type SlideGenerator interface {
	RenderSlide(text, imageURL, audioURL string, slideIndex int) string
}

// GeneratorFactory builds a generator for a template's default background.
type GeneratorFactory func(background string) SlideGenerator

// Generators are the generator kinds a manifest can reference.
var Generators = map[string]GeneratorFactory{
	"amp-fullbleed": func(bg string) SlideGenerator { return FullBleed{Background: bg} },
	"amp-split":     func(bg string) SlideGenerator { return Split{Background: bg} },
}

const footer = `<p class="footer">©SuvichaarAI</p>`

func pageOpen(id, audioURL string) string {
	advance := id + "-audio"
	if audioURL == "" {
		advance = "7s"
	}
	return fmt.Sprintf(`<amp-story-page id="%s" auto-advance-after="%s">`, id, advance)
}

func audioLayer(id, audioURL string) string {
	if audioURL == "" {
		return ""
	}
	return fmt.Sprintf(`<amp-video autoplay layout="nodisplay" id="%s-audio"><source type="audio/mpeg" src="%s"></amp-video>`,
		id, html.EscapeString(audioURL))
}

func escapeText(text string) string {
	return strings.ReplaceAll(html.EscapeString(text), "\n", "<br>")
}

// FullBleed places the image behind the whole page with the text at the bottom.
type FullBleed struct {
	Background string
}

func (g FullBleed) RenderSlide(text, imageURL, audioURL string, slideIndex int) string {
	if imageURL == "" {
		imageURL = g.Background
	}
	id := fmt.Sprintf("slide-%d", slideIndex)
	var b strings.Builder
	b.WriteString(pageOpen(id, audioURL))
	b.WriteString(`<amp-story-grid-layer template="fill">`)
	fmt.Fprintf(&b, `<amp-img src="%s" width="720" height="1280" layout="responsive" alt=""></amp-img>`, html.EscapeString(imageURL))
	b.WriteString(`</amp-story-grid-layer>`)
	b.WriteString(`<amp-story-grid-layer template="vertical" class="bottom">`)
	b.WriteString(audioLayer(id, audioURL))
	fmt.Fprintf(&b, `<div class="text1"><p>%s</p></div>`, escapeText(text))
	b.WriteString(footer)
	b.WriteString(`</amp-story-grid-layer></amp-story-page>`)
	return b.String()
}

// Split puts the image in the top half and the text in a panel below it.
type Split struct {
	Background string
}

func (g Split) RenderSlide(text, imageURL, audioURL string, slideIndex int) string {
	if imageURL == "" {
		imageURL = g.Background
	}
	id := fmt.Sprintf("slide-%d", slideIndex)
	var b strings.Builder
	b.WriteString(pageOpen(id, audioURL))
	b.WriteString(`<amp-story-grid-layer template="thirds">`)
	fmt.Fprintf(&b, `<amp-img grid-area="upper-third" src="%s" width="720" height="640" layout="responsive" alt=""></amp-img>`, html.EscapeString(imageURL))
	b.WriteString(audioLayer(id, audioURL))
	fmt.Fprintf(&b, `<div grid-area="lower-third" class="panel"><p class="text2">%s</p>%s</div>`, escapeText(text), footer)
	b.WriteString(`</amp-story-grid-layer></amp-story-page>`)
	return b.String()
}
