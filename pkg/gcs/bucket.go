package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// ErrNotFound is returned by Open when the object does not exist.
var ErrNotFound = errors.New("gcs object not found")

// Config selects the bucket and optional credentials file.
type Config struct {
	Bucket          string
	CredentialsFile string
}

// Bucket stores resource files as objects in one Google Cloud Storage bucket.
type Bucket struct {
	client *storage.Client
	bucket string
	logger zerolog.Logger
}

// New opens a storage client for the configured bucket.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Bucket, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket must be provided")
	}

	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &Bucket{
		client: client,
		bucket: cfg.Bucket,
		logger: logger.With().Str("component", "gcs").Str("bucket", cfg.Bucket).Logger(),
	}, nil
}

// Put writes body to the object at path. The write only takes effect on Close.
func (b *Bucket) Put(ctx context.Context, path, contentType string, body io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := b.client.Bucket(b.bucket).Object(path).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}

	b.logger.Info().Str("path", path).Msg("file uploaded to gcs")
	return nil
}

// Delete removes the object at path. A missing object counts as deleted.
func (b *Bucket) Delete(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err := b.client.Bucket(b.bucket).Object(path).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete GCS object %q: %w", path, err)
	}
	return nil
}

// Open returns a reader for the object; closing it releases the request context.
func (b *Bucket) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)

	r, err := b.client.Bucket(b.bucket).Object(path).NewReader(ctx)
	if err != nil {
		cancel()
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open GCS reader: %w", err)
	}
	return &cancelOnClose{ReadCloser: r, cancel: cancel}, nil
}

// Close releases the underlying client.
func (b *Bucket) Close() error {
	return b.client.Close()
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *cancelOnClose) Close() error {
	err := r.ReadCloser.Close()
	r.cancel()
	return err
}
