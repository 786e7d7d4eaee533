package images

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/suvichaar/storygen/internal/httpclient"
	"github.com/suvichaar/storygen/internal/models"
)

// DefaultProvider supplies nothing; reconciliation fills every slide with built-in assets.
type DefaultProvider struct{}

func (DefaultProvider) Provide(context.Context, models.SlideDeck, models.Payload) ([]RawImage, error) {
	return nil, nil
}

// CustomProvider passes the caller's image attachments through in order.
type CustomProvider struct{}

func (CustomProvider) Provide(_ context.Context, _ models.SlideDeck, payload models.Payload) ([]RawImage, error) {
	refs := payload.ImageAttachments()
	if len(refs) == 0 {
		return nil, &models.ValidationError{Field: "attachments", Reason: "custom image source requires at least one image attachment"}
	}
	out := make([]RawImage, len(refs))
	for i, ref := range refs {
		out[i] = RawImage{Source: models.SourceCustom, Ref: ref}
	}
	return out, nil
}

// PexelsBaseURL is the root of the Pexels REST API.
const PexelsBaseURL = "https://api.pexels.com"

// PexelsProvider runs one stock-photo search per slide with the request keywords.
type PexelsProvider struct {
	client *httpclient.Client
	apiKey string
	limit  int
}

func NewPexelsProvider(client *httpclient.Client, apiKey string, limit int) *PexelsProvider {
	if limit <= 0 {
		limit = 4
	}
	return &PexelsProvider{client: client, apiKey: apiKey, limit: limit}
}

type pexelsSearch struct {
	Photos []struct {
		ID  int64  `json:"id"`
		Alt string `json:"alt"`
		Src struct {
			Original string `json:"original"`
			Large2x  string `json:"large2x"`
			Portrait string `json:"portrait"`
		} `json:"src"`
	} `json:"photos"`
}

func (p *PexelsProvider) Provide(ctx context.Context, deck models.SlideDeck, payload models.Payload) ([]RawImage, error) {
	query := strings.Join(payload.Keywords, " ")
	if strings.TrimSpace(query) == "" {
		return nil, &models.ValidationError{Field: "prompt_keywords", Reason: "pexels image source requires at least one keyword"}
	}
	out := make([]RawImage, len(deck.Slides))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)
	for i := range deck.Slides {
		g.Go(func() error {
			ref, err := p.search(gctx, query, i+1)
			out[i] = RawImage{Source: models.SourcePexels, Ref: ref, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

func (p *PexelsProvider) search(ctx context.Context, query string, page int) (string, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("orientation", "portrait")
	q.Set("per_page", "1")
	q.Set("page", strconv.Itoa(page))

	var res pexelsSearch
	if err := p.client.GetJSON(ctx, "/v1/search", q, map[string]string{"Authorization": p.apiKey}, &res); err != nil {
		return "", err
	}
	if len(res.Photos) == 0 {
		return "", fmt.Errorf("pexels: no photo for %q page %d", query, page)
	}
	src := res.Photos[0].Src
	for _, ref := range []string{src.Portrait, src.Large2x, src.Original} {
		if ref != "" {
			return ref, nil
		}
	}
	return "", fmt.Errorf("pexels: photo %d has no source url", res.Photos[0].ID)
}
