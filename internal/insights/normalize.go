// Package insights turns the request content into a normalized payload and
// then into the ordered source chunks the narrative is written from.
package insights

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/suvichaar/storygen/internal/models"
)

var (
	urlPattern = regexp.MustCompile(`(?i)\bhttps?://[^\s<>"']+|\bwww\.[^\s<>"']+|\b[a-z0-9][a-z0-9-]*(?:\.[a-z0-9-]+)*\.(?:com|org|net|in|io|gov|edu|co|news|info|ai)(?:/[^\s<>"']*)?`)
	spaces     = regexp.MustCompile(`\s+`)
)

// Classify works out what the unified input field holds. It returns the kind,
// the URLs found, the remaining text and, for a file reference, the reference.
func Classify(input string) (models.InputKind, []string, string) {
	input = strings.TrimSpace(input)
	if input == "" {
		return models.InputText, nil, ""
	}
	if models.IsFileRef(input) {
		return models.InputFile, nil, input
	}
	matches := urlPattern.FindAllString(input, -1)
	var urls []string
	for _, m := range matches {
		if u, ok := NormalizeURL(m); ok {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return models.InputText, nil, input
	}
	rest := strings.TrimSpace(spaces.ReplaceAllString(urlPattern.ReplaceAllString(input, ""), " "))
	if rest != "" {
		return models.InputMixed, dedupe(urls), rest
	}
	return models.InputURL, dedupe(urls), ""
}

// NormalizeURL adds https:// to www. and bare-domain references and rejects
// anything that is not an absolute http(s) URL with a host.
func NormalizeURL(raw string) (string, bool) {
	raw = strings.TrimRight(strings.TrimSpace(raw), ".,;:!?)]}'\"")
	if raw == "" {
		return "", false
	}
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		if strings.Contains(raw, "://") || !strings.Contains(raw, ".") {
			return "", false
		}
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}
	return u.String(), true
}

// SplitKeywords splits comma separated entries and drops blanks and repeats.
func SplitKeywords(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, kw := range strings.Split(entry, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				out = append(out, kw)
			}
		}
	}
	return dedupe(out)
}

// Normalize folds user_input into the explicit request fields.
func Normalize(req *models.GenerationRequest) models.Payload {
	p := models.Payload{
		Mode:        req.Mode,
		TextPrompt:  strings.TrimSpace(req.TextPrompt),
		Notes:       strings.TrimSpace(req.Notes),
		Attachments: trimAll(req.Attachments),
		Keywords:    SplitKeywords(req.PromptKeywords),
	}
	for _, raw := range req.URLs {
		if u, ok := NormalizeURL(raw); ok {
			p.URLs = append(p.URLs, u)
		}
	}

	kind, urls, rest := Classify(req.UserInput)
	switch kind {
	case models.InputFile:
		p.Attachments = append(p.Attachments, rest)
	case models.InputURL:
		p.URLs = append(p.URLs, urls...)
	case models.InputMixed:
		p.URLs = append(p.URLs, urls...)
		p.Notes = joinText(p.Notes, rest)
	case models.InputText:
		if rest != "" {
			if p.TextPrompt == "" {
				p.TextPrompt = rest
			} else {
				p.Notes = joinText(p.Notes, rest)
			}
		}
	}
	p.URLs = dedupe(p.URLs)
	p.Attachments = dedupe(p.Attachments)

	if strings.TrimSpace(req.UserInput) != "" {
		p.Kind = kind
	} else {
		p.Kind = inferKind(p)
	}
	return p
}

func inferKind(p models.Payload) models.InputKind {
	hasText := p.TextPrompt != "" || p.Notes != ""
	switch {
	case len(p.URLs) > 0 && hasText:
		return models.InputMixed
	case len(p.URLs) > 0:
		return models.InputURL
	case len(p.Attachments) > 0 && !hasText:
		return models.InputFile
	}
	return models.InputText
}

func joinText(a, b string) string {
	if a == "" {
		return b
	}
	return a + "\n" + b
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := in[:0:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
