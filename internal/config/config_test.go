package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "MINIO_BUCKET", "PARALLELISM", "PIPELINE_TIMEOUT", "SIDE_EFFECT_TIMEOUT", "MINIO_USE_SSL", "AUDIO_PREFIX"} {
		t.Setenv(k, "")
	}
	c := Load()

	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, "suvichaarapp", c.MinioBucket)
	assert.Equal(t, 4, c.Parallelism)
	assert.Equal(t, 4*time.Minute, c.PipelineTimeout)
	assert.Equal(t, 30*time.Second, c.SideEffectTimeout)
	assert.False(t, c.MinioUseSSL)
	assert.Equal(t, "media/audio", c.AudioPrefix)
	assert.Equal(t, "media/images/", c.ImagePrefix)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PARALLELISM", "8")
	t.Setenv("PIPELINE_TIMEOUT", "90s")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("CANONICAL_BASE", "https://example.org/")
	t.Setenv("AI_IMAGE_BACKEND", "Gemini")

	c := Load()
	assert.Equal(t, 8, c.Parallelism)
	assert.Equal(t, 90*time.Second, c.PipelineTimeout)
	assert.True(t, c.MinioUseSSL)
	assert.Equal(t, "https://example.org", c.CanonicalBase)
	assert.Equal(t, "gemini", c.AIImageBackend)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("PARALLELISM", "-2")
	t.Setenv("SIDE_EFFECT_TIMEOUT", "soon")

	c := Load()
	assert.Equal(t, 4, c.Parallelism)
	assert.Equal(t, 30*time.Second, c.SideEffectTimeout)
}

func TestIsPlaceholder(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"   ", true},
		{"replace-with-your-key", true},
		{"your-api-key", true},
		{"sk-example-123", true},
		{"STUB", true},
		{"dummy", true},
		{"sk-live-9f8e7d", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPlaceholder(tt.in))
		})
	}
}
