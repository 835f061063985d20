package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/acastillo/docpipeline/internal/storage"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GCSStore implements storage.ObjectStore on Google Cloud Storage.
// Areas map directly to bucket names.
type GCSStore struct {
	client *gcs.Client
}

// NewGCSStore creates a GCS-backed object store.
func NewGCSStore(ctx context.Context) (*GCSStore, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	return &GCSStore{client: client}, nil
}

func (s *GCSStore) Exists(ctx context.Context, area, path string) (bool, error) {
	_, err := s.client.Bucket(area).Object(path).Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat gs://%s/%s: %w", area, path, err)
	}
	return true, nil
}

func (s *GCSStore) Get(ctx context.Context, area, path string) ([]byte, error) {
	reader, err := s.client.Bucket(area).Object(path).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, storage.ErrObjectNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open gs://%s/%s: %w", area, path, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s: %w", area, path, err)
	}
	return data, nil
}

// Put uploads the object in one write. The object only becomes visible when
// the writer is closed successfully, so consumers never observe partial
// content.
func (s *GCSStore) Put(ctx context.Context, area, path string, data []byte, contentType string) error {
	writer := s.client.Bucket(area).Object(path).NewWriter(ctx)
	writer.ContentType = contentType
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write to gs://%s/%s: %w", area, path, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize gs://%s/%s: %w", area, path, err)
	}
	return nil
}

func (s *GCSStore) Copy(ctx context.Context, srcArea, srcPath, dstArea, dstPath string) error {
	src := s.client.Bucket(srcArea).Object(srcPath)
	dst := s.client.Bucket(dstArea).Object(dstPath)
	_, err := dst.CopierFrom(src).Run(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return storage.ErrObjectNotExist
	}
	if err != nil {
		return fmt.Errorf("failed to copy gs://%s/%s to gs://%s/%s: %w", srcArea, srcPath, dstArea, dstPath, err)
	}
	return nil
}

func (s *GCSStore) List(ctx context.Context, area, prefix string) ([]storage.ObjectInfo, error) {
	it := s.client.Bucket(area).Objects(ctx, &gcs.Query{Prefix: prefix})
	var infos []storage.ObjectInfo
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list gs://%s/%s: %w", area, prefix, err)
		}
		infos = append(infos, storage.ObjectInfo{
			Path:        attrs.Name,
			Size:        attrs.Size,
			ContentType: attrs.ContentType,
			Created:     attrs.Created,
		})
	}
	return infos, nil
}

func (s *GCSStore) Delete(ctx context.Context, area, path string) error {
	err := s.client.Bucket(area).Object(path).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return storage.ErrObjectNotExist
	}
	if err != nil {
		return fmt.Errorf("failed to delete gs://%s/%s: %w", area, path, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
