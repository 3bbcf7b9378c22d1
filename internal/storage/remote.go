package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ObjectClient is the capability a remote backend provides. Implementations
// must be safe for concurrent use.
type ObjectClient interface {
	PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	RemoveObject(ctx context.Context, key string) error
}

// RemoteDriver serves both remote variants. Reads go through a presigned URL
// fetched with the shared HTTP client.
type RemoteDriver struct {
	backend Backend
	client  ObjectClient
	http    *http.Client
	handle  FileHandle
	allow   AllowList
	log     zerolog.Logger
}

// NewRemoteDriver binds a handle to a remote backend. The path is normalized
// to an object key prefix.
func NewRemoteDriver(backend Backend, client ObjectClient, httpClient *http.Client, path, filename string, payload *Payload, allow AllowList, log zerolog.Logger) *RemoteDriver {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RemoteDriver{
		backend: backend,
		client:  client,
		http:    httpClient,
		handle: FileHandle{
			Path:     NormalizeRemotePath(path),
			Filename: filename,
			Payload:  payload,
		},
		allow: allow,
		log:   log.With().Str("backend", string(backend)).Logger(),
	}
}

func (d *RemoteDriver) Backend() Backend { return d.backend }

func (d *RemoteDriver) Handle() FileHandle { return d.handle }

// readKey addresses an object as stored, filename including its extension.
func (d *RemoteDriver) readKey() string {
	return d.handle.Path + d.handle.Filename
}

// writeKey appends the payload extension, the way objects are written.
func (d *RemoteDriver) writeKey() string {
	return d.handle.Path + d.handle.Filename + payloadExtension(d.handle.Payload)
}

func (d *RemoteDriver) Upload(ctx context.Context) Result {
	ext, rejected := checkUpload(d.allow, d.handle.Payload)
	if rejected != nil {
		return *rejected
	}

	key := d.writeKey()
	p := d.handle.Payload
	if err := d.client.PutObject(ctx, key, p.Reader, p.Size, uploadContentType(ext)); err != nil {
		return d.backendFailure("put", key, err)
	}

	d.log.Debug().Str("key", key).Msg("object stored")
	return succeeded()
}

func (d *RemoteDriver) ReadBytes(ctx context.Context) Result {
	body, res := d.fetch(ctx)
	if body == nil {
		return res
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return d.backendFailure("read", d.readKey(), err)
	}
	res.Data = data
	return res
}

func (d *RemoteDriver) ReadBase64(ctx context.Context) Result {
	res := d.ReadBytes(ctx)
	if !res.Success {
		return res
	}
	res.Base64 = base64.StdEncoding.EncodeToString(res.Data)
	res.Extension = fileExtension(d.handle.Filename)
	return res
}

// AccessURL presigns without checking that the object exists.
func (d *RemoteDriver) AccessURL(ctx context.Context) Result {
	key := d.readKey()
	url, err := d.client.PresignGet(ctx, key, AccessURLExpiry)
	if err != nil {
		return d.backendFailure("presign", key, err)
	}
	res := succeeded()
	res.URL = url
	return res
}

func (d *RemoteDriver) Download(ctx context.Context) Result {
	body, res := d.fetch(ctx)
	if body == nil {
		return res
	}
	res.Download = &Download{
		Body:        body.ReadCloser,
		ContentType: ContentType(fileExtension(d.handle.Filename)),
		Filename:    downloadFilename(d.handle.Filename),
		Size:        body.size,
	}
	return res
}

func (d *RemoteDriver) Delete(ctx context.Context) Result {
	key := d.writeKey()
	if err := d.client.RemoveObject(ctx, key); err != nil {
		return d.backendFailure("remove", key, err)
	}
	return succeeded()
}

type fetchedBody struct {
	io.ReadCloser
	size int64
}

// fetch presigns the read key and GETs it. A nil body comes with the failure
// result to return.
func (d *RemoteDriver) fetch(ctx context.Context) (*fetchedBody, Result) {
	key := d.readKey()
	url, err := d.client.PresignGet(ctx, key, ReadURLExpiry)
	if err != nil {
		return nil, d.backendFailure("presign", key, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, d.backendFailure("fetch", key, err)
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return nil, d.backendFailure("fetch", key, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, failed(ErrNotFound, nil)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		resp.Body.Close()
		return nil, d.backendFailure("fetch", key, fmt.Errorf("unexpected status %d fetching object", resp.StatusCode))
	}

	return &fetchedBody{ReadCloser: resp.Body, size: resp.ContentLength}, succeeded()
}

func (d *RemoteDriver) backendFailure(op, key string, err error) Result {
	d.log.Warn().Err(err).Str("op", op).Str("key", key).Msg("remote storage operation failed")
	return failed(ErrBackend, err)
}

var _ Driver = (*RemoteDriver)(nil)
