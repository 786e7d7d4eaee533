package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validNews() GenerationRequest {
	return GenerationRequest{Mode: ModeNews, SlideCount: 4, TextPrompt: "pune accident"}
}

func TestGenerationRequest_ApplyDefaults(t *testing.T) {
	req := GenerationRequest{Mode: " NEWS ", SlideCount: 5}
	req.ApplyDefaults()

	assert.Equal(t, ModeNews, req.Mode)
	assert.Equal(t, SourceDefault, req.ImageSource)
	assert.Equal(t, "test-news-1", req.TemplateKey)
	assert.Equal(t, "News", req.Category)

	curious := GenerationRequest{Mode: ModeCurious, Category: "Science"}
	curious.ApplyDefaults()
	assert.Equal(t, "curious-template-1", curious.TemplateKey)
	assert.Equal(t, "Science", curious.Category)
}

func TestGenerationRequest_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *GenerationRequest)
		field  string
	}{
		{"valid news", func(r *GenerationRequest) {}, ""},
		{"unknown mode", func(r *GenerationRequest) { r.Mode = "sports" }, "mode"},
		{"news too few slides", func(r *GenerationRequest) { r.SlideCount = 3 }, "slide_count"},
		{"news too many slides", func(r *GenerationRequest) { r.SlideCount = 11 }, "slide_count"},
		{"news upper bound ok", func(r *GenerationRequest) { r.SlideCount = 10 }, ""},
		{"curious too few slides", func(r *GenerationRequest) { r.Mode = ModeCurious; r.SlideCount = 6 }, "slide_count"},
		{"curious no upper bound", func(r *GenerationRequest) { r.Mode = ModeCurious; r.SlideCount = 15 }, ""},
		{"pexels not allowed in news", func(r *GenerationRequest) { r.ImageSource = SourcePexels }, "image_source"},
		{"unknown policy", func(r *GenerationRequest) { r.ImageSource = "stock" }, "image_source"},
		{"custom without images", func(r *GenerationRequest) {
			r.ImageSource = SourceCustom
			r.Attachments = []string{"s3://bucket/report.pdf"}
		}, "attachments"},
		{"custom with images", func(r *GenerationRequest) {
			r.ImageSource = SourceCustom
			r.Attachments = []string{"https://cdn.example.org/a.jpg"}
		}, ""},
		{"curious pexels needs keywords", func(r *GenerationRequest) {
			r.Mode = ModeCurious
			r.SlideCount = 7
			r.ImageSource = SourcePexels
		}, "prompt_keywords"},
		{"pexels blank keywords", func(r *GenerationRequest) {
			r.Mode = ModeCurious
			r.SlideCount = 7
			r.ImageSource = SourcePexels
			r.PromptKeywords = []string{" ", " , "}
		}, "prompt_keywords"},
		{"custom image given as user_input", func(r *GenerationRequest) {
			r.ImageSource = SourceCustom
			r.TextPrompt = ""
			r.UserInput = "https://cdn.example.org/uploads/flood.png"
		}, ""},
		{"no content", func(r *GenerationRequest) { r.TextPrompt = "" }, "user_input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validNews()
			tt.mutate(&req)
			if req.ImageSource == "" {
				req.ImageSource = SourceDefault
			}
			err := req.Validate()
			if tt.field == "" {
				require.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestIsImageRef(t *testing.T) {
	assert.True(t, IsImageRef("https://x.org/a/B.JPG?w=3"))
	assert.True(t, IsImageRef("s3://bucket/uploads/cover.png"))
	assert.True(t, IsImageRef("/tmp/photo.webp"))
	assert.False(t, IsImageRef("notes.txt"))
	assert.False(t, IsImageRef("https://x.org/article"))
}

func TestIsFileRef(t *testing.T) {
	assert.True(t, IsFileRef("s3://bucket/report.pdf"))
	assert.True(t, IsFileRef("uploads/photo.gif"))
	assert.True(t, IsFileRef("https://x.org/a.png?w=2"))
	assert.False(t, IsFileRef("photo.png"))
	assert.False(t, IsFileRef("see uploads/photo.png"))
	assert.False(t, IsFileRef("https://x.org/article"))
}

func TestImageAttachments(t *testing.T) {
	req := GenerationRequest{
		Attachments: []string{" s3://bucket/a.jpg ", "s3://bucket/notes.pdf"},
		UserInput:   "https://cdn.example.org/b.webp",
	}
	assert.Equal(t, []string{"s3://bucket/a.jpg", "https://cdn.example.org/b.webp"}, req.ImageAttachments())

	p := Payload{Attachments: []string{"s3://bucket/notes.pdf", "s3://bucket/c.png"}}
	assert.Equal(t, []string{"s3://bucket/c.png"}, p.ImageAttachments())
}

func TestAllowsPolicy(t *testing.T) {
	assert.True(t, AllowsPolicy(ModeNews, SourceAI))
	assert.False(t, AllowsPolicy(ModeNews, SourcePexels))
	assert.True(t, AllowsPolicy(ModeCurious, SourcePexels))
	assert.False(t, AllowsPolicy("other", SourceDefault))
}

func TestImageAsset_Variant(t *testing.T) {
	a := ImageAsset{URL: "u", Variants: []ImageVariant{{Role: "thumbnail", URL: "t"}}}
	assert.Equal(t, "t", a.Variant("thumbnail"))
	assert.Equal(t, "u", a.Variant("cover"))
}
