package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// LocalDriver stores files under a base directory on the local filesystem.
type LocalDriver struct {
	base   string
	handle FileHandle
	allow  AllowList
	log    zerolog.Logger
}

// NewLocalDriver binds a handle to the local filesystem. The path is
// normalized under baseDir.
func NewLocalDriver(baseDir, path, filename string, payload *Payload, allow AllowList, log zerolog.Logger) *LocalDriver {
	return &LocalDriver{
		handle: FileHandle{
			Path:     NormalizeLocalPath(baseDir, path),
			Filename: filename,
			Payload:  payload,
		},
		base:  filepath.Clean(filepath.FromSlash(baseDir)),
		allow: allow,
		log:   log.With().Str("backend", string(BackendLocal)).Logger(),
	}
}

func (d *LocalDriver) Backend() Backend { return BackendLocal }

func (d *LocalDriver) Handle() FileHandle { return d.handle }

// locate resolves path + filename + suffix and returns the containing
// directory and the file. Both must stay inside the base directory.
func (d *LocalDriver) locate(suffix string) (string, string, error) {
	if strings.TrimSpace(d.handle.Filename) == "" {
		return "", "", ErrInvalidPath
	}
	dir := filepath.Clean(filepath.FromSlash(d.handle.Path))
	file := filepath.Clean(filepath.FromSlash(d.handle.Path + d.handle.Filename + suffix))
	if !d.contains(dir) || !d.contains(file) || file == dir || file == d.base {
		return "", "", ErrInvalidPath
	}
	return dir, file, nil
}

func (d *LocalDriver) contains(target string) bool {
	rel, err := filepath.Rel(d.base, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (d *LocalDriver) rejectLocation(err error) Result {
	d.log.Warn().Str("path", d.handle.Path).Str("filename", d.handle.Filename).Msg("rejected file location")
	return failed(err, nil)
}

// Upload writes the payload. A copy that fails midway leaves the partial
// file in place.
func (d *LocalDriver) Upload(ctx context.Context) Result {
	ext, rejected := checkUpload(d.allow, d.handle.Payload)
	if rejected != nil {
		return *rejected
	}

	dir, target, err := d.locate(ext)
	if err != nil {
		return d.rejectLocation(err)
	}

	// MkdirAll tolerates a directory created concurrently by another upload.
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return d.backendFailure("mkdir", err)
	}

	f, err := os.Create(target)
	if err != nil {
		return d.backendFailure("create", err)
	}
	if _, err := io.Copy(f, d.handle.Payload.Reader); err != nil {
		f.Close()
		return d.backendFailure("write", err)
	}
	if err := f.Close(); err != nil {
		return d.backendFailure("close", err)
	}

	d.log.Debug().Str("file", target).Msg("file stored")
	return succeeded()
}

func (d *LocalDriver) ReadBytes(ctx context.Context) Result {
	_, file, err := d.locate("")
	if err != nil {
		return d.rejectLocation(err)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return d.readFailure(err)
	}
	res := succeeded()
	res.Data = data
	return res
}

func (d *LocalDriver) ReadBase64(ctx context.Context) Result {
	res := d.ReadBytes(ctx)
	if !res.Success {
		return res
	}
	res.Base64 = base64.StdEncoding.EncodeToString(res.Data)
	res.Extension = fileExtension(d.handle.Filename)
	return res
}

// AccessURL has no local equivalent.
func (d *LocalDriver) AccessURL(ctx context.Context) Result {
	return failed(ErrNotSupported, nil)
}

func (d *LocalDriver) Download(ctx context.Context) Result {
	_, file, err := d.locate("")
	if err != nil {
		return d.rejectLocation(err)
	}
	f, err := os.Open(file)
	if err != nil {
		return d.readFailure(err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return d.backendFailure("stat", err)
	}
	if info.IsDir() {
		f.Close()
		return failed(ErrNotFound, nil)
	}

	res := succeeded()
	res.Download = &Download{
		Body:        f,
		ContentType: ContentType(fileExtension(d.handle.Filename)),
		Filename:    downloadFilename(d.handle.Filename),
		Size:        info.Size(),
	}
	return res
}

// Delete removes path + filename once the containing directory is known to
// exist. Directories are never removed.
func (d *LocalDriver) Delete(ctx context.Context) Result {
	dir, file, err := d.locate("")
	if err != nil {
		return d.rejectLocation(err)
	}
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return failed(ErrNotFound, nil)
		}
		return d.backendFailure("stat", err)
	}

	info, err := os.Stat(file)
	if err != nil {
		return d.readFailure(err)
	}
	if info.IsDir() {
		return failed(ErrNotFound, nil)
	}

	if err := os.Remove(file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return failed(ErrNotFound, nil)
		}
		return d.backendFailure("remove", err)
	}
	return succeeded()
}

func (d *LocalDriver) readFailure(err error) Result {
	if errors.Is(err, fs.ErrNotExist) {
		return failed(ErrNotFound, nil)
	}
	return d.backendFailure("read", err)
}

func (d *LocalDriver) backendFailure(op string, err error) Result {
	d.log.Warn().Err(err).Str("op", op).Str("path", d.handle.Path).Str("filename", d.handle.Filename).Msg("local storage operation failed")
	return failed(ErrBackend, err)
}

var _ Driver = (*LocalDriver)(nil)
