package insights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/suvichaar/storygen/internal/httpclient"
	"github.com/suvichaar/storygen/internal/models"
)

// DefaultChunkRunes caps the size of one semantic chunk.
const DefaultChunkRunes = 800

// maxImageRefs caps the page images carried into the insights.
const maxImageRefs = 5

// Extractor builds the document insights of a payload.
type Extractor interface {
	Run(ctx context.Context, p models.Payload) (models.DocInsights, error)
}

// PageFetcher downloads a URL.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, string, error)
}

// ObjectReader reads stored attachments.
type ObjectReader interface {
	Get(ctx context.Context, uriOrKey string) ([]byte, error)
}

// Pipeline extracts page articles, the request text and text attachments.
type Pipeline struct {
	pages     PageFetcher
	objects   ObjectReader
	isSafe    func(string) (bool, error)
	chunkSize int
	logger    *slog.Logger
}

func NewPipeline(pages PageFetcher, objects ObjectReader, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		pages:     pages,
		objects:   objects,
		isSafe:    httpclient.IsSafeURL,
		chunkSize: DefaultChunkRunes,
		logger:    logger,
	}
}

// WithURLCheck replaces the SSRF guard used before fetching pages.
func (p *Pipeline) WithURLCheck(check func(string) (bool, error)) *Pipeline {
	p.isSafe = check
	return p
}

// Run never fails on a bad source; unreadable URLs and attachments are logged and skipped.
func (p *Pipeline) Run(ctx context.Context, payload models.Payload) (models.DocInsights, error) {
	var out models.DocInsights

	for _, u := range payload.URLs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		article, err := p.fetchArticle(ctx, u)
		if err != nil {
			p.logger.Warn("url extraction failed, skipping", "url", u, "error", err)
			continue
		}
		if out.SourceTitle == "" {
			out.SourceTitle = article.Title
		}
		out.Chunks = append(out.Chunks, p.chunks("url:"+u, u, article.Text())...)
		for _, img := range article.Images {
			if len(out.ImageRefs) < maxImageRefs && !contains(out.ImageRefs, img) {
				out.ImageRefs = append(out.ImageRefs, img)
			}
		}
	}

	out.Chunks = append(out.Chunks, p.chunks("payload:text", "payload", requestText(payload))...)

	for i, ref := range payload.Attachments {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if models.IsImageRef(ref) {
			continue
		}
		if !isTextRef(ref) {
			p.logger.Info("attachment type not extracted, skipping", "attachment", ref)
			continue
		}
		text, err := p.readText(ctx, ref)
		if err != nil {
			p.logger.Warn("attachment read failed, skipping", "attachment", ref, "error", err)
			continue
		}
		out.Chunks = append(out.Chunks, p.chunks(fmt.Sprintf("attachment-%d", i+1), ref, text)...)
	}
	return out, nil
}

func (p *Pipeline) fetchArticle(ctx context.Context, u string) (Article, error) {
	if ok, err := p.isSafe(u); !ok {
		return Article{}, fmt.Errorf("unsafe url: %w", err)
	}
	body, _, err := p.pages.Fetch(ctx, u)
	if err != nil {
		return Article{}, err
	}
	article, err := ParseArticle(body, u)
	if err != nil {
		return Article{}, fmt.Errorf("parse html: %w", err)
	}
	if strings.TrimSpace(article.Text()) == "" {
		return Article{}, errors.New("no readable text")
	}
	return article, nil
}

func (p *Pipeline) readText(ctx context.Context, ref string) (string, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		if ok, serr := p.isSafe(ref); !ok {
			return "", fmt.Errorf("unsafe url: %w", serr)
		}
		data, _, err = p.pages.Fetch(ctx, ref)
	case p.objects != nil:
		data, err = p.objects.Get(ctx, ref)
	default:
		return "", fmt.Errorf("no object store for %s", ref)
	}
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s is not utf-8 text", ref)
	}
	return string(data), nil
}

func (p *Pipeline) chunks(idPrefix, source, text string) []models.SemanticChunk {
	parts := Chunk(text, p.chunkSize)
	out := make([]models.SemanticChunk, len(parts))
	for i, part := range parts {
		out[i] = models.SemanticChunk{ID: fmt.Sprintf("%s#%d", idPrefix, i+1), Text: part, Source: source}
	}
	return out
}

// requestText is the caller's own text. When URLs are present they are the
// primary source, so only the notes are kept, as context.
func requestText(p models.Payload) string {
	var segments []string
	if len(p.URLs) > 0 {
		if p.Notes != "" {
			segments = append(segments, "[Additional Context]: "+p.Notes)
		}
	} else {
		if p.TextPrompt != "" {
			segments = append(segments, p.TextPrompt)
		}
		if p.Notes != "" {
			segments = append(segments, p.Notes)
		}
	}
	if len(p.Keywords) > 0 {
		segments = append(segments, strings.Join(p.Keywords, " "))
	}
	return strings.Join(segments, "\n\n")
}

func isTextRef(ref string) bool {
	switch strings.ToLower(path.Ext(stripQuery(ref))) {
	case ".txt", ".md":
		return true
	}
	return false
}

func stripQuery(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		return ref[:i]
	}
	return ref
}

// Chunk splits text into pieces of at most max runes, breaking between
// paragraphs where possible and between words otherwise.
func Chunk(text string, max int) []string {
	if max <= 0 {
		max = DefaultChunkRunes
	}
	var out []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
		curLen = 0
	}
	add := func(piece, sep string) {
		n := utf8.RuneCountInString(piece)
		if curLen > 0 && curLen+utf8.RuneCountInString(sep)+n > max {
			flush()
		}
		if curLen > 0 {
			cur.WriteString(sep)
			curLen += utf8.RuneCountInString(sep)
		}
		cur.WriteString(piece)
		curLen += n
	}

	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if utf8.RuneCountInString(para) <= max {
			add(para, "\n\n")
			continue
		}
		flush()
		for _, word := range strings.Fields(para) {
			for utf8.RuneCountInString(word) > max {
				r := []rune(word)
				add(string(r[:max]), " ")
				word = string(r[max:])
			}
			add(word, " ")
		}
		flush()
	}
	flush()
	return out
}
