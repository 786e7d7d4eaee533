package images

import (
	"fmt"

	"github.com/suvichaar/storygen/internal/models"
)

// Slot is the plan for one slide: the asset so far and the raw image to build it from.
type Slot struct {
	Asset models.ImageAsset
	Raw   *RawImage // nil when the asset is already final
}

// Reconcile assigns exactly one image to each of slideCount slides.
//
// Under the default policy every slide gets its built-in asset. Otherwise raw
// images are assigned in order; a short supply repeats the last image and an
// oversupply is truncated, each with a reconcile warning. Slots whose raw image
// carries an error fall back to the default with an image warning.
func Reconcile(slideCount int, policy models.SourcePolicy, raw []RawImage) ([]Slot, []models.Warning) {
	if slideCount <= 0 {
		return nil, nil
	}
	slots := make([]Slot, slideCount)
	var warnings []models.Warning

	if policy == models.SourceDefault || policy == "" {
		for i := range slots {
			slots[i] = Slot{Asset: DefaultAsset(i)}
		}
		return slots, nil
	}

	if len(raw) == 0 {
		warnings = append(warnings, models.Warning{
			SlideIndex: -1,
			Kind:       models.WarnReconcile,
			Message:    fmt.Sprintf("%s source supplied no images; using defaults", policy),
		})
		for i := range slots {
			slots[i] = Slot{Asset: fallbackAsset(i, "")}
		}
		return slots, warnings
	}

	switch {
	case len(raw) < slideCount:
		warnings = append(warnings, models.Warning{
			SlideIndex: -1,
			Kind:       models.WarnReconcile,
			Message:    fmt.Sprintf("%d images for %d slides; repeating the last image", len(raw), slideCount),
		})
	case len(raw) > slideCount:
		warnings = append(warnings, models.Warning{
			SlideIndex: -1,
			Kind:       models.WarnReconcile,
			Message:    fmt.Sprintf("%d images for %d slides; extra images dropped", len(raw), slideCount),
		})
	}

	for i := range slots {
		r := raw[min(i, len(raw)-1)]
		if r.Source == "" {
			r.Source = policy
		}
		if r.Err != nil {
			slots[i] = Slot{Asset: fallbackAsset(i, r.Ref)}
			warnings = append(warnings, models.Warning{SlideIndex: i, Kind: models.WarnImage, Message: r.Err.Error()})
			continue
		}
		slots[i] = Slot{
			Asset: models.ImageAsset{SlideIndex: i, Source: r.Source, RawRef: r.Ref},
			Raw:   &r,
		}
	}
	return slots, warnings
}
