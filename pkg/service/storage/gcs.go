package storage

import (
	"context"
	"io"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/domain/interfaces"
	"google.golang.org/api/option"
)

// GCS stores uploads in a Cloud Storage bucket
type GCS struct {
	client        *storage.Client
	bucket        string
	publicBaseURL string
	uploadTimeout time.Duration
}

var _ interfaces.FileStorage = &GCS{}

type GCSOption func(*gcsConfig)

type gcsConfig struct {
	clientOptions []option.ClientOption
	publicBaseURL string
}

// WithCredentialsFile authenticates with a service account key file instead
// of application default credentials
func WithCredentialsFile(path string) GCSOption {
	return func(c *gcsConfig) {
		c.clientOptions = append(c.clientOptions, option.WithCredentialsFile(path))
	}
}

// WithPublicBaseURL serves objects from a CDN domain instead of storage.googleapis.com
func WithPublicBaseURL(base string) GCSOption {
	return func(c *gcsConfig) {
		c.publicBaseURL = strings.TrimRight(base, "/")
	}
}

// WithClientOptions passes raw client options, e.g. an emulator endpoint
func WithClientOptions(opts ...option.ClientOption) GCSOption {
	return func(c *gcsConfig) {
		c.clientOptions = append(c.clientOptions, opts...)
	}
}

func NewGCS(ctx context.Context, bucket string, opts ...GCSOption) (*GCS, error) {
	if bucket == "" {
		return nil, goerr.New("GCS bucket name is required")
	}

	cfg := &gcsConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.clientOptions = append(cfg.clientOptions, option.WithScopes(storage.ScopeReadWrite))

	client, err := storage.NewClient(ctx, cfg.clientOptions...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}

	base := cfg.publicBaseURL
	if base == "" {
		base = "https://storage.googleapis.com/" + bucket
	}

	return &GCS{
		client:        client,
		bucket:        bucket,
		publicBaseURL: base,
		uploadTimeout: 2 * time.Minute,
	}, nil
}

func (s *GCS) Upload(ctx context.Context, path, contentType string, r io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", goerr.Wrap(interfaces.ErrStorage, "failed to write object",
			goerr.V("bucket", s.bucket),
			goerr.V("path", path),
			goerr.V("cause", err.Error()))
	}
	if err := w.Close(); err != nil {
		return "", goerr.Wrap(interfaces.ErrStorage, "failed to finalize object",
			goerr.V("bucket", s.bucket),
			goerr.V("path", path),
			goerr.V("cause", err.Error()))
	}

	return s.publicBaseURL + "/" + escapePath(path), nil
}

func (s *GCS) Close() error {
	return s.client.Close()
}

func escapePath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
