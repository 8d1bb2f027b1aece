package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore archives receipts in a Cloud Storage bucket.
type GCSStore struct {
	client  *storage.Client
	bucket  string
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewGCSStore opens a storage client using Application Default Credentials unless opts say otherwise.
func NewGCSStore(ctx context.Context, bucket, prefix string, logger *slog.Logger, opts ...option.ClientOption) (*GCSStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, prefix: prefix, timeout: 2 * time.Minute, logger: logger}, nil
}

func (s *GCSStore) Put(ctx context.Context, obj Object) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	imageKey, docKey := objectKeys(s.prefix, obj)
	if err := s.write(ctx, imageKey, obj.Image.MIME(), obj.Image.Bytes); err != nil {
		return "", err
	}
	if len(obj.Document) > 0 {
		if err := s.write(ctx, docKey, "application/json", obj.Document); err != nil {
			return "", err
		}
	}
	uri := fmt.Sprintf("gs://%s/%s", s.bucket, imageKey)
	s.logger.Debug("archive.gcs.put", "uri", uri, "bytes", len(obj.Image.Bytes))
	return uri, nil
}

func (s *GCSStore) write(ctx context.Context, key, contentType string, data []byte) error {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy %s to GCS writer: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload %s: %w", key, err)
	}
	return nil
}

func (s *GCSStore) Close() error { return s.client.Close() }
