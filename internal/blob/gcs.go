package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
)

// GCSStore reads objects from a single Cloud Storage bucket using
// application-default credentials.
type GCSStore struct {
	client *storage.Client
	bucket string
	logger *zap.Logger
}

// NewGCSStore creates a store bound to one bucket.
func NewGCSStore(ctx context.Context, bucket string, logger *zap.Logger) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, logger: logger}, nil
}

// Download fetches an object and its metadata. Returns (nil, nil) when the
// object does not exist.
func (s *GCSStore) Download(ctx context.Context, key string) (*Object, error) {
	obj := s.client.Bucket(s.bucket).Object(key)

	attrs, err := obj.Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			s.logger.Warn("Object does not exist",
				zap.String("bucket", s.bucket), zap.String("key", key))
			return nil, nil
		}
		return nil, fmt.Errorf("object attrs %s/%s: %w", s.bucket, key, err)
	}

	r, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open object %s/%s: %w", s.bucket, key, err)
	}
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object %s/%s: %w", s.bucket, key, err)
	}

	return &Object{Data: data, Metadata: attrs.Metadata}, nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
