package images

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/suvichaar/storygen/internal/models"
)

// Provisioner stores planned images and registers their variants.
type Provisioner struct {
	store   ObjectStore
	fetcher *Fetcher
	prefix  string
	limit   int
	logger  *slog.Logger
}

func NewProvisioner(store ObjectStore, fetcher *Fetcher, prefix string, limit int, logger *slog.Logger) *Provisioner {
	if limit <= 0 {
		limit = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{store: store, fetcher: fetcher, prefix: prefix, limit: limit, logger: logger}
}

// Provision builds the final asset of every slot. A slot that cannot be fetched
// or stored falls back to its default with a warning; the result always has
// one asset per slot, in slide order.
func (p *Provisioner) Provision(ctx context.Context, slots []Slot) ([]models.ImageAsset, []models.Warning) {
	assets := make([]models.ImageAsset, len(slots))
	failures := make([]error, len(slots))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)
	for i, slot := range slots {
		if slot.Raw == nil {
			assets[i] = slot.Asset
			continue
		}
		g.Go(func() error {
			asset, err := p.provisionOne(gctx, slot)
			if err != nil {
				p.logger.Warn("image provisioning failed, using default (non-fatal)",
					"slide", slot.Asset.SlideIndex, "ref", slot.Raw.Ref, "error", err)
				assets[i] = fallbackAsset(slot.Asset.SlideIndex, slot.Raw.Ref)
				failures[i] = err
				return nil
			}
			assets[i] = asset
			return nil
		})
	}
	_ = g.Wait()

	var warnings []models.Warning
	for i, err := range failures {
		if err != nil {
			warnings = append(warnings, models.Warning{SlideIndex: slots[i].Asset.SlideIndex, Kind: models.WarnImage, Message: err.Error()})
		}
	}
	return assets, warnings
}

func (p *Provisioner) provisionOne(ctx context.Context, slot Slot) (models.ImageAsset, error) {
	raw := slot.Raw
	asset := slot.Asset

	key, owned := "", false
	if raw.Ref != "" && len(raw.Data) == 0 {
		key, owned = p.store.OwnedKey(raw.Ref)
	}
	if !owned {
		data, ct := raw.Data, raw.ContentType
		if len(data) == 0 {
			var err error
			data, ct, err = p.fetcher.Fetch(ctx, raw.Ref)
			if err != nil {
				return asset, err
			}
		} else {
			ct = imageContentType(raw.Filename, ct, data)
		}
		name := raw.Filename
		if name == "" {
			name = Filename(raw.Ref, ct, fmt.Sprintf("slide-%d", asset.SlideIndex))
		}
		var err error
		key, err = p.store.Put(ctx, data, p.prefix+uuid.NewString()+"/"+name, ct)
		if err != nil {
			return asset, fmt.Errorf("store image: %w", err)
		}
	}

	asset.ObjectKey = key
	asset.URL = p.store.URL(key)
	asset.Variants = nil
	for _, s := range SizesFor(asset.SlideIndex) {
		asset.Variants = append(asset.Variants, models.ImageVariant{
			Role:   s.Role,
			Width:  s.Width,
			Height: s.Height,
			URL:    p.store.ResizedURL(key, s.Width, s.Height),
		})
	}
	return asset, nil
}
