package driver

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCSStorage implements port.ObjectStore on Google Cloud Storage. It relies
// on Application Default Credentials, so no explicit keys are configured.
type GCSStorage struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
}

// NewGCSStorage creates a GCS-backed object store for the given bucket.
func NewGCSStorage(ctx context.Context, bucket string) (*GCSStorage, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	return &GCSStorage{
		client: client,
		bucket: client.Bucket(bucket),
		name:   bucket,
	}, nil
}

// Close releases the underlying client.
func (g *GCSStorage) Close() error {
	return g.client.Close()
}

// Put stores data at key and returns the gs:// URI.
func (g *GCSStorage) Put(ctx context.Context, key string, data []byte) (string, error) {
	w := g.bucket.Object(key).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close object writer %s: %w", key, err)
	}

	return fmt.Sprintf("gs://%s/%s", g.name, key), nil
}

// Get retrieves the data stored at key.
func (g *GCSStorage) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := g.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open object %s: %w", key, err)
	}
	defer r.Close()

	return io.ReadAll(r)
}

// Exists reports whether an object exists at key.
func (g *GCSStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := g.bucket.Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("object attrs %s: %w", key, err)
	}
	return true, nil
}

// HealthCheck verifies the bucket is reachable.
func (g *GCSStorage) HealthCheck(ctx context.Context) bool {
	_, err := g.bucket.Attrs(ctx)
	return err == nil
}
