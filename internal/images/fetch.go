package images

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/suvichaar/storygen/internal/httpclient"
)

// Fetcher loads image bytes from an http(s) URL, a storage URI or a local path.
type Fetcher struct {
	http       *httpclient.Client
	store      ObjectStore
	gcs        BlobReader
	cache      Cache
	allowLocal bool
	isSafe     func(string) (bool, error)
}

// FetcherOption customises a Fetcher.
type FetcherOption func(*Fetcher)

// WithGCS enables gs:// references.
func WithGCS(r BlobReader) FetcherOption {
	return func(f *Fetcher) { f.gcs = r }
}

// WithCache caches http(s) downloads.
func WithCache(c Cache) FetcherOption {
	return func(f *Fetcher) { f.cache = c }
}

// WithLocalFiles allows plain filesystem paths.
func WithLocalFiles(allow bool) FetcherOption {
	return func(f *Fetcher) { f.allowLocal = allow }
}

// WithURLCheck replaces the SSRF guard.
func WithURLCheck(check func(string) (bool, error)) FetcherOption {
	return func(f *Fetcher) { f.isSafe = check }
}

func NewFetcher(client *httpclient.Client, store ObjectStore, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{http: client, store: store, isSafe: httpclient.IsSafeURL}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the image bytes and content type behind ref.
func (f *Fetcher) Fetch(ctx context.Context, ref string) ([]byte, string, error) {
	ref = strings.TrimSpace(ref)
	var (
		data []byte
		ct   string
		err  error
	)
	switch {
	case ref == "":
		return nil, "", errors.New("empty image reference")
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		data, ct, err = f.fetchHTTP(ctx, ref)
	case strings.HasPrefix(ref, "s3://"):
		if f.store == nil {
			return nil, "", fmt.Errorf("no object store for %s", ref)
		}
		data, err = f.store.Get(ctx, ref)
	case strings.HasPrefix(ref, "gs://"):
		if f.gcs == nil {
			return nil, "", fmt.Errorf("gs:// references are disabled: %s", ref)
		}
		data, ct, err = f.gcs.Read(ctx, ref)
	default:
		if !f.allowLocal {
			return nil, "", fmt.Errorf("local paths are disabled: %s", ref)
		}
		data, err = os.ReadFile(ref)
	}
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", ref, err)
	}
	ct = imageContentType(ref, ct, data)
	if !strings.HasPrefix(ct, "image/") {
		return nil, "", fmt.Errorf("fetch %s: not an image (%s)", ref, ct)
	}
	return data, ct, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, ref string) ([]byte, string, error) {
	if ok, err := f.isSafe(ref); !ok {
		return nil, "", fmt.Errorf("unsafe url: %w", err)
	}
	if f.cache != nil {
		if data, ct, ok := f.cache.Get(ctx, ref); ok {
			return data, ct, nil
		}
	}
	data, ct, err := f.http.Fetch(ctx, ref)
	if err != nil {
		return nil, "", err
	}
	if f.cache != nil {
		f.cache.Set(ctx, ref, data, ct)
	}
	return data, ct, nil
}

// imageContentType trusts a declared image type, then the extension, then sniffing.
func imageContentType(ref, declared string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && strings.HasPrefix(mt, "image/") {
		return mt
	}
	if byExt := mime.TypeByExtension(path.Ext(stripQuery(ref))); strings.HasPrefix(byExt, "image/") {
		return byExt
	}
	return http.DetectContentType(data)
}

func stripQuery(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		return ref[:i]
	}
	return ref
}

// Filename picks an object file name for ref, deriving the extension from ct when needed.
func Filename(ref, ct string, fallback string) string {
	name := path.Base(stripQuery(ref))
	if name == "." || name == "/" || name == "" {
		name = fallback
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '-'
	}, name)
	if path.Ext(name) == "" {
		name += extensionFor(ct)
	}
	return name
}

func extensionFor(ct string) string {
	switch ct {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}
	return ".png"
}
