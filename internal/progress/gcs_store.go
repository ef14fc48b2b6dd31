package progress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"cloud.google.com/go/storage"
)

// GCSStore keeps each blob as a JSON object in a Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStore creates a Cloud Storage client for bucket. Objects are written under prefix.
func NewGCSStore(ctx context.Context, bucket, prefix string) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("progress bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, prefix: prefix}, nil
}

func (s *GCSStore) objectName(key string) string {
	return path.Join(s.prefix, key+".json")
}

func (s *GCSStore) Get(ctx context.Context, key string) ([]byte, error) {
	reader, err := s.client.Bucket(s.bucket).Object(s.objectName(key)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open progress object: %w", err)
	}
	defer reader.Close()

	payload, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read progress object: %w", err)
	}
	return payload, nil
}

func (s *GCSStore) Put(ctx context.Context, key string, payload []byte) error {
	writer := s.client.Bucket(s.bucket).Object(s.objectName(key)).NewWriter(ctx)
	writer.ContentType = "application/json"
	writer.CacheControl = "no-store"

	if _, err := writer.Write(payload); err != nil {
		_ = writer.Close()
		return fmt.Errorf("write progress object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close progress object: %w", err)
	}
	return nil
}

// Close closes the storage client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
