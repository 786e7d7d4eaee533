package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/suvichaar/storygen/internal/images"
)

// MinioStore wraps a MinIO client for images, audio and rendered documents.
type MinioStore struct {
	client  *minio.Client
	bucket  string
	cdnBase string
}

var _ images.ObjectStore = (*MinioStore)(nil)

func NewMinioStore(ctx context.Context, endpoint, accessKey, secretKey, bucket, cdnBase string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	// Ensure bucket exists
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}

	return &MinioStore{client: client, bucket: bucket, cdnBase: strings.TrimRight(cdnBase, "/")}, nil
}

// Bucket is the bucket all keys live in.
func (s *MinioStore) Bucket() string { return s.bucket }

// Upload stores bytes under the given object key.
func (s *MinioStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	reader := bytes.NewReader(data)
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// Download retrieves the object bytes.
func (s *MinioStore) Download(ctx context.Context, key string) ([]byte, string, error) {
	return s.download(ctx, s.bucket, key)
}

func (s *MinioStore) download(ctx context.Context, bucket, key string) ([]byte, string, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", err
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, "", err
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", err
	}
	return data, info.ContentType, nil
}

// Put uploads data under keyHint and returns the key it was stored at.
func (s *MinioStore) Put(ctx context.Context, data []byte, keyHint, contentType string) (string, error) {
	key := strings.TrimLeft(keyHint, "/")
	if err := s.Upload(ctx, key, data, contentType); err != nil {
		return "", fmt.Errorf("minio put %s: %w", key, err)
	}
	return key, nil
}

// Get reads an s3://bucket/key URI or a bare key in our bucket.
func (s *MinioStore) Get(ctx context.Context, uriOrKey string) ([]byte, error) {
	bucket, key := s.bucket, strings.TrimLeft(uriOrKey, "/")
	if strings.HasPrefix(uriOrKey, "s3://") {
		var err error
		bucket, key, err = ParseS3URI(uriOrKey)
		if err != nil {
			return nil, err
		}
	}
	data, _, err := s.download(ctx, bucket, key)
	return data, err
}

// URL is the public CDN address of key.
func (s *MinioStore) URL(key string) string {
	return s.cdnBase + "/" + strings.TrimLeft(key, "/")
}

// ResizedURL is the image-handler address of key at width x height.
func (s *MinioStore) ResizedURL(key string, width, height int) string {
	return images.ResizedURL(s.cdnBase, s.bucket, key, width, height)
}

// OwnedKey returns the key of an s3:// reference into our bucket.
func (s *MinioStore) OwnedKey(ref string) (string, bool) {
	bucket, key, err := ParseS3URI(ref)
	if err != nil || bucket != s.bucket {
		return "", false
	}
	return key, true
}

// ParseS3URI splits s3://bucket/key.
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 uri: %s", uri)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 uri needs bucket and key: %s", uri)
	}
	return bucket, key, nil
}
