package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		in     string
		bucket string
		key    string
		ok     bool
	}{
		{"s3://suvichaarapp/media/images/a/b.png", "suvichaarapp", "media/images/a/b.png", true},
		{"s3://suvichaarapp/", "", "", false},
		{"s3:///key", "", "", false},
		{"https://x/y", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			b, k, err := ParseS3URI(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, b)
			assert.Equal(t, tt.key, k)
		})
	}
}

func TestParseGSURI(t *testing.T) {
	b, o, err := ParseGSURI("gs://research/papers/a.png")
	require.NoError(t, err)
	assert.Equal(t, "research", b)
	assert.Equal(t, "papers/a.png", o)

	_, _, err = ParseGSURI("s3://research/a.png")
	assert.Error(t, err)
}

func TestMinioStore_Addresses(t *testing.T) {
	s := &MinioStore{bucket: "suvichaarapp", cdnBase: "https://media.suvichaar.org"}

	assert.Equal(t, "https://media.suvichaar.org/media/audio/x.mp3", s.URL("media/audio/x.mp3"))
	assert.True(t, strings.HasPrefix(s.ResizedURL("media/images/a.png", 720, 1280), "https://media.suvichaar.org/ey"))

	key, ok := s.OwnedKey("s3://suvichaarapp/media/images/a.png")
	assert.True(t, ok)
	assert.Equal(t, "media/images/a.png", key)

	_, ok = s.OwnedKey("s3://otherbucket/media/images/a.png")
	assert.False(t, ok)
	_, ok = s.OwnedKey("https://media.suvichaar.org/media/images/a.png")
	assert.False(t, ok)
}

func TestCacheKey(t *testing.T) {
	a := cacheKey("https://images.pexels.com/p1.jpg")
	b := cacheKey("https://images.pexels.com/p2.jpg")

	assert.True(t, strings.HasPrefix(a, "imgcache:"))
	assert.Len(t, strings.TrimPrefix(a, "imgcache:"), 64)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, cacheKey("https://images.pexels.com/p1.jpg"))
}
