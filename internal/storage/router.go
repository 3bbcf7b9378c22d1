package storage

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/andresuchdata/filestore/internal/config"
	"github.com/andresuchdata/filestore/pkg/logger"
)

// Router owns the active backend and hands out drivers bound to it.
type Router struct {
	backend Backend
	bucket  string
	baseDir string
	client  ObjectClient
	http    *http.Client
	allow   AllowList
	log     zerolog.Logger
}

type routerOptions struct {
	client     ObjectClient
	httpClient *http.Client
	cache      URLCache
	log        *zerolog.Logger
}

// Option customizes NewRouter.
type Option func(*routerOptions)

// WithObjectClient replaces the backend client NewRouter would build for a
// remote backend.
func WithObjectClient(c ObjectClient) Option {
	return func(o *routerOptions) { o.client = c }
}

// WithHTTPClient sets the client used to fetch presigned URLs.
func WithHTTPClient(c *http.Client) Option {
	return func(o *routerOptions) { o.httpClient = c }
}

// WithURLCache caches presigned URLs of remote backends.
func WithURLCache(c URLCache) Option {
	return func(o *routerOptions) { o.cache = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *routerOptions) { o.log = &l }
}

// NewRouter validates cfg and builds the shared backend client. It fails
// when the selected backend is missing required settings.
func NewRouter(ctx context.Context, cfg config.StorageConfig, opts ...Option) (*Router, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o routerOptions
	for _, opt := range opts {
		opt(&o)
	}

	log := logger.Log
	if o.log != nil {
		log = *o.log
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.FetchTimeout}
	}

	r := &Router{
		backend: Backend(cfg.Backend),
		bucket:  cfg.Bucket,
		baseDir: cfg.BaseDir,
		http:    httpClient,
		allow:   NewAllowList(cfg.AllowedExtensions),
		log:     log.With().Str("component", "storage").Logger(),
	}

	if r.backend == BackendLocal {
		r.log.Info().Str("base_dir", r.baseDir).Int("allowed_extensions", len(r.allow)).Msg("storage router ready")
		return r, nil
	}

	client := o.client
	if client == nil {
		var err error
		client, err = newObjectClient(ctx, r.backend, cfg)
		if err != nil {
			return nil, err
		}
	}
	if o.cache != nil {
		client = newCachedClient(client, o.cache, string(r.backend)+":"+r.bucket, r.log)
	}
	r.client = client

	r.log.Info().Str("bucket", r.bucket).Str("endpoint", cfg.Endpoint).Int("allowed_extensions", len(r.allow)).Msg("storage router ready")
	return r, nil
}

func newObjectClient(ctx context.Context, backend Backend, cfg config.StorageConfig) (ObjectClient, error) {
	remote := RemoteConfig{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		UseSSL:    cfg.UseSSL,
	}

	switch backend {
	case BackendS3:
		return NewS3Client(ctx, remote)
	case BackendObjectStore:
		return NewMinioClient(remote)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", config.ErrInvalidStorage, backend)
	}
}

// Backend reports the configured variant.
func (r *Router) Backend() Backend { return r.backend }

// DriverFor returns a new driver of the configured variant bound to path,
// filename and payload. Normalization happens inside the driver.
func (r *Router) DriverFor(path, filename string, payload *Payload) Driver {
	if r.backend == BackendLocal {
		return NewLocalDriver(r.baseDir, path, filename, payload, r.allow, r.log)
	}
	return NewRemoteDriver(r.backend, r.client, r.http, path, filename, payload, r.allow, r.log)
}
