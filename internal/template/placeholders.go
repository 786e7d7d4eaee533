package template

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/suvichaar/storygen/internal/models"
)

const (
	maxTitleRunes       = 180
	maxDescriptionRunes = 160
	defaultTitle        = "Web Story"
)

// Brand carries the publisher metadata written into every document.
type Brand struct {
	Name           string
	Publisher      string
	PublisherLogo  string
	User           string
	UserProfileURL string
	SiteLogoURL    string // fmt pattern with %d for width and height
}

// DefaultBrand is the Suvichaar branding.
func DefaultBrand() Brand {
	return Brand{
		Name:           "Suvichaar",
		Publisher:      "Suvichaar",
		PublisherLogo:  "https://media.suvichaar.org/media/brandasset/suvichaariconblack.png",
		User:           "Suvichaar Team",
		UserProfileURL: "https://www.suvichaar.org",
		SiteLogoURL:    "https://media.suvichaar.org/filters:resize/%dx%d/media/brandasset/suvichaariconblack.png",
	}
}

// Document is everything the renderer needs for one story.
type Document struct {
	Mode      models.Mode
	Category  string
	Language  string
	Deck      models.SlideDeck
	Images    []models.ImageAsset // indexed by slide
	Voices    []models.VoiceAsset // any order, at most one per slide
	CanURL    string
	CanURL1   string
	Published time.Time
	Brand     Brand
}

func (d Document) image(i int) models.ImageAsset {
	for _, a := range d.Images {
		if a.SlideIndex == i {
			return a
		}
	}
	return models.ImageAsset{SlideIndex: i}
}

func (d Document) audio(i int) string {
	for _, v := range d.Voices {
		if v.SlideIndex == i {
			return v.AudioURL
		}
	}
	return ""
}

// SlideText returns the cleaned text of slide i.
func (d Document) SlideText(i int) string {
	if i < 0 || i >= len(d.Deck.Slides) {
		return ""
	}
	return StripMarkdown(d.Deck.Slides[i].Text)
}

// Title is the cleaned, capped cover text.
func (d Document) Title() string {
	title := truncateRunes(d.SlideText(0), maxTitleRunes, "")
	if title == "" {
		return defaultTitle
	}
	return title
}

// Placeholders builds the unescaped value of every {{token}} a layout may use.
func Placeholders(d Document) map[string]string {
	title := d.Title()
	last := len(d.Deck.Slides) - 1
	cover := d.image(0)
	published := d.Published.UTC().Format(time.RFC3339)

	p := map[string]string{
		"storytitle":          title,
		"pagetitle":           fmt.Sprintf("%s | %s", title, d.Brand.Name),
		"storytitle_audiourl": d.audio(0),
		"image0":              cover.Variant("portrait"),
		"potraitcoverurl":     cover.Variant("cover"),
		"portraitcoverurl":    cover.Variant("cover"),
		"msthumbnailcoverurl": cover.Variant("thumbnail"),
		"metadescription":     metaDescription(d, title),
		"metakeywords":        metaKeywords(d),
		"category":            d.Category,
		"lang":                LangTag(d.Language),
		"contenttype":         contentType(d.Mode),
		"canurl":              d.CanURL,
		"canurl1":             d.CanURL1,
		"publishedtime":       published,
		"modifiedtime":        published,
		"organization":        d.Brand.Name,
		"publisher":           d.Brand.Publisher,
		"publisherlogosrc":    d.Brand.PublisherLogo,
		"user":                d.Brand.User,
		"userprofileurl":      d.Brand.UserProfileURL,
		"prevstorytitle":      "",
		"prevstorylink":       "",
		"nextstorytitle":      "",
		"nextstorylink":       "",
	}
	for _, size := range []int{32, 96, 144, 180, 192} {
		p[fmt.Sprintf("sitelogo%dx%d", size, size)] = fmt.Sprintf(d.Brand.SiteLogoURL, size, size)
	}
	for i := range d.Deck.Slides {
		audio := d.audio(i)
		p[fmt.Sprintf("s%dparagraph1", i)] = d.SlideText(i)
		p[fmt.Sprintf("s%dimage1", i)] = d.image(i).Variant("portrait")
		p[fmt.Sprintf("s%daudio_url", i)] = audio
		p[fmt.Sprintf("s%daudio1", i)] = audio
	}
	if last >= 0 {
		p["ctaparagraph"] = d.SlideText(last)
		p["ctaimage"] = d.image(last).Variant("portrait")
		p["ctaaudio_url"] = d.audio(last)
	}
	return p
}

func metaDescription(d Document, title string) string {
	desc := d.SlideText(1)
	if desc == "" {
		desc = title
	}
	desc = strings.Join(strings.Fields(desc), " ")
	return truncateRunes(desc, maxDescriptionRunes, "...")
}

func metaKeywords(d Document) string {
	parts := []string{}
	if d.Category != "" {
		parts = append(parts, d.Category)
	}
	if d.Language != "" {
		parts = append(parts, d.Language)
	}
	parts = append(parts, "web story")
	if d.Mode == models.ModeNews {
		parts = append(parts, "news")
	} else {
		parts = append(parts, "education", "curious")
	}
	return strings.Join(parts, ", ")
}

func contentType(mode models.Mode) string {
	if mode == models.ModeNews {
		return "News"
	}
	return "Article"
}

// LangTag maps a detected language code to the document lang attribute.
func LangTag(code string) string {
	code = strings.TrimSpace(code)
	switch {
	case code == "":
		return "en-US"
	case code == "en":
		return "en-US"
	case code == "hi":
		return "hi-IN"
	case strings.Contains(code, "-"):
		return code
	default:
		return code + "-US"
	}
}

func truncateRunes(s string, max int, ellipsis string) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	keep := max - utf8.RuneCountInString(ellipsis)
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:keep])) + ellipsis
}
