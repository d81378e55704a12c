package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/receiptbox/internal/common"
)

const gcsPublicHost = "https://storage.googleapis.com/"

// GCSStore keeps images in one bucket. URLs are gs://bucket/key unless a public base URL is set.
type GCSStore struct {
	client        *storage.Client
	bucket        string
	publicBaseURL string
	logger        *slog.Logger
}

// NewGCSStore uses Application Default Credentials unless opts say otherwise.
func NewGCSStore(ctx context.Context, bucket, publicBaseURL string, logger *slog.Logger, opts ...option.ClientOption) (*GCSStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStore{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
		logger:        logger,
	}, nil
}

func (g *GCSStore) Close() error {
	return g.client.Close()
}

func (g *GCSStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}
	g.logger.Debug("image stored", "driver", "gcs", "bucket", g.bucket, "key", key, "bytes", len(data))
	return g.objectURL(key), nil
}

func (g *GCSStore) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("image %s: %w", key, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}
	return data, nil
}

// Delete treats an already-missing object as deleted.
func (g *GCSStore) Delete(ctx context.Context, key string) error {
	err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete GCS object %s: %w", key, err)
	}
	return nil
}

func (g *GCSStore) objectURL(key string) string {
	if g.publicBaseURL != "" {
		return g.publicBaseURL + "/" + key
	}
	return "gs://" + g.bucket + "/" + key
}

// KeyFromURL accepts gs:// URIs, storage.googleapis.com URLs and the configured public base.
func (g *GCSStore) KeyFromURL(raw string) (string, error) {
	var rest string
	switch {
	case g.publicBaseURL != "" && strings.HasPrefix(raw, g.publicBaseURL+"/"):
		return strings.TrimPrefix(raw, g.publicBaseURL+"/"), nil
	case strings.HasPrefix(raw, "gs://"):
		rest = strings.TrimPrefix(raw, "gs://")
	case strings.HasPrefix(raw, gcsPublicHost):
		rest = strings.TrimPrefix(raw, gcsPublicHost)
	default:
		return "", fmt.Errorf("%w: not a GCS URL: %q", common.ErrInvalidInput, raw)
	}
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", fmt.Errorf("%w: GCS URL has no object path: %q", common.ErrInvalidInput, raw)
	}
	if parts[0] != g.bucket {
		return "", fmt.Errorf("%w: object is in bucket %q, not %q", common.ErrInvalidInput, parts[0], g.bucket)
	}
	return parts[1], nil
}

var _ ImageStore = (*GCSStore)(nil)
