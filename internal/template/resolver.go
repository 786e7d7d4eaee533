package template

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"path"
	"strings"
)

// ErrLayoutMissing is returned when a resolved template has no layout asset.
var ErrLayoutMissing = errors.New("layout asset missing")

// Descriptor identifies the layout chosen for a request.
type Descriptor struct {
	Name   string // canonical name derived from the reference
	Layout string // file name inside the layout directory
	Fixed  bool   // the layout already contains every slide
	Known  bool   // false when the default generator was substituted
}

// Resolver turns template references into a layout descriptor and a generator.
type Resolver struct {
	registry *Registry
	layouts  fs.FS
	logger   *slog.Logger
}

// NewResolver returns a Resolver over registry that reads layouts from dir.
func NewResolver(registry *Registry, dir fs.FS, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{registry: registry, layouts: dir, logger: logger}
}

// CanonicalName strips a URL or storage-URI prefix and the file extension.
//
//	https://host/path/test-news-1.html -> test-news-1
//	s3://bucket/templates/test-news-1.html -> test-news-1
func CanonicalName(ref string) string {
	ref = strings.TrimSpace(ref)
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" {
		if u.Path != "" {
			ref = u.Path
		} else {
			ref = u.Host
		}
	}
	ref = strings.TrimRight(ref, "/")
	name := path.Base(ref)
	if ext := path.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// Resolve never fails: unknown names log a warning and get the default generator.
// The descriptor still points at the requested name's layout file, which
// LoadLayout may not find.
func (r *Resolver) Resolve(ref string) (Descriptor, SlideGenerator) {
	name := CanonicalName(ref)
	if e, ok := r.registry.Get(name); ok {
		return Descriptor{Name: name, Layout: e.Layout, Fixed: e.Fixed, Known: true}, e.Generator
	}
	def := r.registry.Default()
	r.logger.Warn("unknown template, using default generator", "ref", ref, "name", name, "default", def.Name)
	if name == "" {
		return Descriptor{Name: def.Name, Layout: def.Layout, Fixed: def.Fixed, Known: false}, def.Generator
	}
	return Descriptor{Name: name, Layout: name + ".html", Known: false}, def.Generator
}

// LoadLayout reads the layout file for d.
func (r *Resolver) LoadLayout(d Descriptor) (string, error) {
	data, err := fs.ReadFile(r.layouts, d.Layout)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("template %s: %w", d.Name, ErrLayoutMissing)
		}
		return "", fmt.Errorf("template %s: %w", d.Name, err)
	}
	return string(data), nil
}

// Names lists the registered templates.
func (r *Resolver) Names() []string {
	return r.registry.Names()
}
