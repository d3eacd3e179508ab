package reports

import (
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

// ObjectStore reads and writes whole objects in a bucket.
// This interface enables mocking of cloud storage in tests.
type ObjectStore interface {
	// Write stores data under bucket/object, replacing any existing object.
	Write(ctx context.Context, bucket, object, contentType string, data []byte) error

	// Read returns the bytes of bucket/object.
	Read(ctx context.Context, bucket, object string) ([]byte, error)
}

// GCSObjectStore is the Google Cloud Storage implementation of ObjectStore.
// It assumes Application Default Credentials are configured.
type GCSObjectStore struct {
	client *storage.Client
}

// NewGCSObjectStore creates a storage client shared by all operations.
func NewGCSObjectStore(ctx context.Context) (*GCSObjectStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSObjectStore{client: client}, nil
}

// Close releases the storage client.
func (s *GCSObjectStore) Close() error {
	return s.client.Close()
}

// Write uploads data with a two minute timeout.
func (s *GCSObjectStore) Write(ctx context.Context, bucket, object, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write GCS object %s/%s: %w", bucket, object, err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload %s/%s: %w", bucket, object, err)
	}
	return nil
}

// Read downloads bucket/object.
func (s *GCSObjectStore) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	rc, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}
	return data, nil
}
