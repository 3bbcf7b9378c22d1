// Package storage routes file uploads, reads and deletes to the configured
// backend: the local filesystem, an S3 bucket or a MinIO-style object store.
// Callers obtain a Driver from a Router and branch on Result.Success only.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Backend identifies a driver variant.
type Backend string

const (
	BackendLocal       Backend = "local"
	BackendS3          Backend = "s3"
	BackendObjectStore Backend = "minio"
)

// Presigned URL lifetimes.
const (
	ReadURLExpiry   = 600 * time.Second
	AccessURLExpiry = 60 * time.Second
)

const messageSuccessful = "successful"

var (
	// ErrUnsupportedFormat rejects an upload whose extension is not allow-listed.
	ErrUnsupportedFormat = errors.New("file format not supported")
	// ErrMissingPayload rejects an upload without file data.
	ErrMissingPayload = errors.New("file data not provided")
	// ErrNotFound reports a missing object or containing directory.
	ErrNotFound = errors.New("File not found")
	// ErrInvalidPath rejects an empty filename or a location outside the
	// local base directory.
	ErrInvalidPath = errors.New("invalid file path")
	// ErrNotSupported reports an operation the backend has no equivalent for.
	ErrNotSupported = errors.New("operation not supported by local storage")
	// ErrBackend wraps any failure raised by the filesystem or the backend client.
	ErrBackend = errors.New("storage backend failure")
)

// Payload is the file data carried by an upload.
type Payload struct {
	Reader io.Reader
	// Name is the original file name; its extension becomes part of the key.
	Name string
	// Size in bytes, zero or negative when unknown.
	Size int64
}

// NameOnly returns a Payload without data, used to carry the extension of a
// stored object into Delete.
func NameOnly(name string) *Payload {
	return &Payload{Name: name}
}

// FileHandle is the unit of work bound to a driver.
type FileHandle struct {
	Path     string
	Filename string
	Payload  *Payload
}

// Download is a located object ready to be streamed to a client.
type Download struct {
	Body        io.ReadCloser
	ContentType string
	Filename    string
	Size        int64
}

// Result is the outcome of every driver operation. Only the fields relevant
// to the operation are set on success.
type Result struct {
	Success bool
	Message string
	Err     error

	Data      []byte
	Base64    string
	Extension string
	URL       string
	Download  *Download
}

func succeeded() Result {
	return Result{Success: true, Message: messageSuccessful}
}

// failed builds a failure result of the given kind. The message is the
// captured cause when there is one, the kind itself otherwise.
func failed(kind, cause error) Result {
	if cause == nil {
		return Result{Message: kind.Error(), Err: kind}
	}
	return Result{Message: cause.Error(), Err: fmt.Errorf("%w: %w", kind, cause)}
}

// Driver is implemented by every backend variant.
type Driver interface {
	Backend() Backend
	Handle() FileHandle

	// Upload writes the payload at path + filename + extension.
	Upload(ctx context.Context) Result
	// ReadBytes returns the object at path + filename in Result.Data.
	ReadBytes(ctx context.Context) Result
	// ReadBase64 returns the object base64 encoded along with its extension.
	ReadBase64(ctx context.Context) Result
	// AccessURL returns a short-lived presigned URL in Result.URL. With a URL
	// cache configured the URL may be reused for up to half of
	// AccessURLExpiry, so it can have as little as half its lifetime left.
	AccessURL(ctx context.Context) Result
	// Download returns a streamable object in Result.Download.
	Download(ctx context.Context) Result
	// Delete removes the object.
	Delete(ctx context.Context) Result
}

// ExtensionPayload returns the payload Delete needs to address an object by
// filename plus ext, or nil when ext is empty. A missing leading dot is added.
func ExtensionPayload(filename, ext string) *Payload {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return nil
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return NameOnly(filename + ext)
}
