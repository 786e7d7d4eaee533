package store

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/suvichaar/storygen/internal/images"
)

// GCSReader reads gs:// objects with application default credentials.
type GCSReader struct {
	client *storage.Client
}

var _ images.BlobReader = (*GCSReader)(nil)

func NewGCSReader(ctx context.Context) (*GCSReader, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCSReader{client: client}, nil
}

func (r *GCSReader) Read(ctx context.Context, uri string) ([]byte, string, error) {
	bucket, object, err := ParseGSURI(uri)
	if err != nil {
		return nil, "", err
	}
	rc, err := r.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("gcs open %s: %w", uri, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, "", fmt.Errorf("gcs read %s: %w", uri, err)
	}
	return data, rc.Attrs.ContentType, nil
}

func (r *GCSReader) Close() error {
	return r.client.Close()
}

// ParseGSURI splits gs://bucket/object.
func ParseGSURI(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("not a gs uri: %s", uri)
	}
	bucket, object, _ = strings.Cut(rest, "/")
	if bucket == "" || object == "" {
		return "", "", fmt.Errorf("gs uri needs bucket and object: %s", uri)
	}
	return bucket, object, nil
}
