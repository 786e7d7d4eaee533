// Package images plans, fetches and stores the background image of every slide.
package images

import (
	"context"

	"github.com/suvichaar/storygen/internal/models"
)

// Built-in assets used when a slide has no usable image.
const (
	DefaultSlideURL = "https://media.suvichaar.org/upload/polaris/polarisslide.png"
	DefaultCoverURL = "https://media.suvichaar.org/upload/polaris/polariscover.png"
)

// Variant sizes registered for every stored image.
var (
	PortraitSize  = Size{Role: "portrait", Width: 720, Height: 1280}
	CoverSize     = Size{Role: "cover", Width: 720, Height: 1280}
	ThumbnailSize = Size{Role: "thumbnail", Width: 300, Height: 300}
)

// Size is a named resize target.
type Size struct {
	Role   string
	Width  int
	Height int
}

// SizesFor returns the variants slide index needs.
func SizesFor(index int) []Size {
	if index == 0 {
		return []Size{PortraitSize, CoverSize, ThumbnailSize}
	}
	return []Size{PortraitSize}
}

// RawImage is an image candidate before it is stored. Either Ref or Data is set.
// Err marks a slot the provider could not fill.
type RawImage struct {
	Source      models.SourcePolicy
	Ref         string
	Data        []byte
	ContentType string
	Filename    string
	Err         error
}

// Provider produces raw images for a deck under one source policy.
type Provider interface {
	Provide(ctx context.Context, deck models.SlideDeck, p models.Payload) ([]RawImage, error)
}

// Providers maps a source policy to its provider.
type Providers map[models.SourcePolicy]Provider

// ObjectStore is the blob storage used for provisioned images.
type ObjectStore interface {
	Put(ctx context.Context, data []byte, keyHint, contentType string) (string, error)
	Get(ctx context.Context, uriOrKey string) ([]byte, error)
	URL(key string) string
	ResizedURL(key string, width, height int) string
	// OwnedKey returns the key of a reference that already points into this store.
	OwnedKey(ref string) (string, bool)
}

// Cache keeps fetched image bytes keyed by source URL.
type Cache interface {
	Get(ctx context.Context, url string) ([]byte, string, bool)
	Set(ctx context.Context, url string, data []byte, contentType string)
}

// BlobReader reads objects from a foreign storage scheme such as gs://.
type BlobReader interface {
	Read(ctx context.Context, uri string) ([]byte, string, error)
}

// DefaultAsset is the built-in asset for slide index.
func DefaultAsset(index int) models.ImageAsset {
	url := DefaultSlideURL
	if index == 0 {
		url = DefaultCoverURL
	}
	a := models.ImageAsset{SlideIndex: index, Source: models.SourceDefault, URL: url}
	for _, s := range SizesFor(index) {
		a.Variants = append(a.Variants, models.ImageVariant{Role: s.Role, Width: s.Width, Height: s.Height, URL: url})
	}
	return a
}

// fallbackAsset replaces a failed slide with its default and keeps the original reference.
func fallbackAsset(index int, rawRef string) models.ImageAsset {
	a := DefaultAsset(index)
	a.RawRef = rawRef
	a.Fallback = true
	return a
}
