// Package archive stores raw classifier responses in Cloud Storage for audit.
package archive

import (
	"context"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/utils/safe"
	"google.golang.org/api/option"
)

// GCS writes objects into one bucket
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// Option is a functional option for GCS configuration
type Option func(*gcsConfig)

type gcsConfig struct {
	prefix          string
	credentialsFile string
}

// WithPrefix places every object under prefix
func WithPrefix(prefix string) Option {
	return func(c *gcsConfig) {
		c.prefix = prefix
	}
}

// WithCredentialsFile authenticates with a service account key instead of ADC
func WithCredentialsFile(path string) Option {
	return func(c *gcsConfig) {
		c.credentialsFile = path
	}
}

// NewGCS connects to Cloud Storage
func NewGCS(ctx context.Context, bucket string, opts ...Option) (*GCS, error) {
	if bucket == "" {
		return nil, goerr.New("archive bucket is required")
	}

	var cfg gcsConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var clientOpts []option.ClientOption
	if cfg.credentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.credentialsFile))
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}

	return &GCS{
		client: client,
		bucket: bucket,
		prefix: cfg.prefix,
	}, nil
}

func (g *GCS) objectName(key string) string {
	if g.prefix == "" {
		return key
	}
	return path.Join(g.prefix, key)
}

// Put writes data to key as a JSON object
func (g *GCS) Put(ctx context.Context, key string, data []byte) error {
	name := g.objectName(key)
	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		safe.Close(ctx, w)
		return goerr.Wrap(err, "failed to write archive object", goerr.V("bucket", g.bucket), goerr.V("object", name))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to close archive object", goerr.V("bucket", g.bucket), goerr.V("object", name))
	}
	return nil
}

// Get reads back an archived object
func (g *GCS) Get(ctx context.Context, key string) ([]byte, error) {
	name := g.objectName(key)
	r, err := g.client.Bucket(g.bucket).Object(name).NewReader(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open archive object", goerr.V("bucket", g.bucket), goerr.V("object", name))
	}
	defer safe.Close(ctx, r)

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read archive object", goerr.V("bucket", g.bucket), goerr.V("object", name))
	}
	return data, nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}
