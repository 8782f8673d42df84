package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSConfig holds Google Cloud Storage settings
type GCSConfig struct {
	Project     string
	Bucket      string
	Credentials []byte // service account JSON, Application Default Credentials when empty
}

// GCSStore is a Store backed by a Google Cloud Storage bucket
type GCSStore struct {
	client *storage.Client
	bucket string
	logger *slog.Logger
}

// NewGCSStore creates a storage client for the configured bucket
func NewGCSStore(ctx context.Context, cfg *GCSConfig, logger *slog.Logger) (*GCSStore, error) {
	var opts []option.ClientOption
	if len(cfg.Credentials) > 0 {
		opts = append(opts, option.WithCredentialsJSON(cfg.Credentials))
	}

	logger.Info("Connecting to Google Cloud Storage",
		slog.String("project", cfg.Project),
		slog.String("bucket", cfg.Bucket),
		slog.Bool("explicit_credentials", len(cfg.Credentials) > 0),
	)

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCSStore{
		client: client,
		bucket: cfg.Bucket,
		logger: logger,
	}, nil
}

// Upload streams r into the named object
func (s *GCSStore) Upload(ctx context.Context, name, contentType string, r io.Reader) error {
	// canceling the writer's context abandons the upload without committing partial data
	writeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(name).NewWriter(writeCtx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		cancel()
		return fmt.Errorf("failed to upload %s: %w", s.URI(name), err)
	}

	// The object is only committed once Close succeeds
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to upload %s: %w", s.URI(name), err)
	}

	s.logger.Debug("Object uploaded",
		slog.String("uri", s.URI(name)),
	)

	return nil
}

// Exists checks the object's metadata
func (s *GCSStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.Bucket(s.bucket).Object(name).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", s.URI(name), err)
	}
	return true, nil
}

// Download reads the whole object
func (s *GCSStore) Download(ctx context.Context, name string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.URI(name), err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.URI(name), err)
	}
	return data, nil
}

// URI returns the gs:// address of the named object
func (s *GCSStore) URI(name string) string {
	return fmt.Sprintf("gs://%s/%s", s.bucket, name)
}

// Close releases the storage client
func (s *GCSStore) Close() error {
	s.logger.Info("Closing Google Cloud Storage client")
	return s.client.Close()
}
