package insights

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Article is the readable content of a fetched page.
type Article struct {
	Title       string
	Description string
	Paragraphs  []string
	Images      []string
}

// Text joins the paragraphs, falling back to the meta description.
func (a Article) Text() string {
	if len(a.Paragraphs) > 0 {
		return strings.Join(a.Paragraphs, "\n\n")
	}
	return a.Description
}

// ParseArticle extracts the title, paragraph text and og:image references of
// an HTML page. Relative image references are resolved against base.
func ParseArticle(body []byte, base string) (Article, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return Article{}, err
	}
	baseURL, _ := url.Parse(base)

	var a Article
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Nav, atom.Footer, atom.Aside:
				return
			case atom.Title:
				if a.Title == "" {
					a.Title = collapse(textOf(n))
				}
				return
			case atom.Meta:
				readMeta(n, &a, baseURL)
				return
			case atom.P:
				if t := collapse(textOf(n)); t != "" {
					a.Paragraphs = append(a.Paragraphs, t)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return a, nil
}

func readMeta(n *html.Node, a *Article, base *url.URL) {
	var key, content string
	for _, attr := range n.Attr {
		switch strings.ToLower(attr.Key) {
		case "property", "name":
			key = strings.ToLower(attr.Val)
		case "content":
			content = strings.TrimSpace(attr.Val)
		}
	}
	if content == "" {
		return
	}
	switch key {
	case "og:image", "og:image:url", "twitter:image":
		if ref := resolve(base, content); ref != "" && !contains(a.Images, ref) {
			a.Images = append(a.Images, ref)
		}
	case "og:title":
		if a.Title == "" {
			a.Title = content
		}
	case "description", "og:description":
		if a.Description == "" {
			a.Description = content
		}
	}
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func resolve(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
