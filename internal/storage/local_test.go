package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(base, path, filename string, payload *Payload) *LocalDriver {
	return NewLocalDriver(base, path, filename, payload, NewAllowList([]string{".png", ".pdf"}), zerolog.Nop())
}

func pngPayload(name string, data []byte) *Payload {
	return &Payload{Reader: bytes.NewReader(data), Name: name, Size: int64(len(data))}
}

func TestLocalUploadStoresFileUnderBaseDir(t *testing.T) {
	base := t.TempDir()
	ctx := context.Background()

	res := newLocal(base, "uploads", "photo", pngPayload("photo.png", []byte{0x01, 0x02, 0x03})).Upload(ctx)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "successful", res.Message)
	assert.NoError(t, res.Err)

	data, err := os.ReadFile(filepath.Join(base, "uploads", "photo.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, data)
}

func TestLocalUploadRejectsUnsupportedFormat(t *testing.T) {
	base := t.TempDir()

	res := newLocal(base, "uploads", "doc", pngPayload("doc.exe", []byte("MZ"))).Upload(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, "file format not supported", res.Message)
	assert.ErrorIs(t, res.Err, ErrUnsupportedFormat)

	_, err := os.Stat(filepath.Join(base, "uploads"))
	assert.True(t, os.IsNotExist(err), "no directory or file may be created")
}

func TestLocalUploadWithoutPayload(t *testing.T) {
	res := newLocal(t.TempDir(), "uploads", "photo", nil).Upload(context.Background())
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrMissingPayload)
}

func TestLocalUploadExtensionComesFromPayloadName(t *testing.T) {
	base := t.TempDir()

	res := newLocal(base, "docs", "report.exe", pngPayload("scan.pdf", []byte("%PDF"))).Upload(context.Background())
	require.True(t, res.Success, res.Message)

	_, err := os.Stat(filepath.Join(base, "docs", "report.exe.pdf"))
	assert.NoError(t, err)
}

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestLocalUploadFailureLeavesPartialFile(t *testing.T) {
	base := t.TempDir()
	payload := &Payload{Reader: &failingReader{data: []byte{0x01}, err: errors.New("connection reset")}, Name: "photo.png"}

	res := newLocal(base, "uploads", "photo", payload).Upload(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, "connection reset", res.Message)
	assert.ErrorIs(t, res.Err, ErrBackend)

	data, err := os.ReadFile(filepath.Join(base, "uploads", "photo.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, data)
}

func TestLocalConcurrentUploadsShareNewDirectory(t *testing.T) {
	base := t.TempDir()
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("img%d", i)
			results[i] = newLocal(base, "fresh/dir", name, pngPayload(name+".png", []byte{byte(i)})).Upload(ctx)
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		assert.True(t, res.Success, "upload %d: %s", i, res.Message)
	}
}

func TestLocalRoundTrip(t *testing.T) {
	base := t.TempDir()
	ctx := context.Background()
	content := []byte("\x89PNG\r\n\x1a\n-body")

	require.True(t, newLocal(base, "/uploads", "photo", pngPayload("photo.png", content)).Upload(ctx).Success)

	raw := newLocal(base, "uploads/", "photo.png", nil).ReadBytes(ctx)
	require.True(t, raw.Success, raw.Message)
	assert.Equal(t, content, raw.Data)

	encoded := newLocal(base, "uploads", "photo.png", nil).ReadBase64(ctx)
	require.True(t, encoded.Success, encoded.Message)
	assert.Equal(t, "png", encoded.Extension)
	decoded, err := base64.StdEncoding.DecodeString(encoded.Base64)
	require.NoError(t, err)
	assert.Equal(t, content, decoded)
}

func TestLocalReadMissingFile(t *testing.T) {
	ctx := context.Background()
	d := newLocal(t.TempDir(), "uploads", "nothing.png", nil)

	for name, res := range map[string]Result{
		"bytes":    d.ReadBytes(ctx),
		"base64":   d.ReadBase64(ctx),
		"download": d.Download(ctx),
	} {
		assert.False(t, res.Success, name)
		assert.Equal(t, "File not found", res.Message, name)
		assert.ErrorIs(t, res.Err, ErrNotFound, name)
	}
}

func TestLocalDownload(t *testing.T) {
	base := t.TempDir()
	ctx := context.Background()
	require.True(t, newLocal(base, "docs", "contract", pngPayload("contract.pdf", []byte("%PDF-1.7"))).Upload(ctx).Success)

	res := newLocal(base, "docs", "contract.pdf", nil).Download(ctx)
	require.True(t, res.Success, res.Message)
	require.NotNil(t, res.Download)
	defer res.Download.Body.Close()

	assert.Equal(t, "application/pdf", res.Download.ContentType)
	assert.Equal(t, "documentfile.pdf", res.Download.Filename)
	assert.Equal(t, int64(8), res.Download.Size)

	body, err := io.ReadAll(res.Download.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(body))
}

func TestLocalAccessURLNotSupported(t *testing.T) {
	res := newLocal(t.TempDir(), "uploads", "photo.png", nil).AccessURL(context.Background())
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrNotSupported)
	assert.Empty(t, res.URL)
}

func TestLocalDelete(t *testing.T) {
	base := t.TempDir()
	ctx := context.Background()

	missingDir := newLocal(base, "nowhere", "photo.png", nil).Delete(ctx)
	assert.False(t, missingDir.Success)
	assert.Equal(t, "File not found", missingDir.Message)

	require.True(t, newLocal(base, "uploads", "photo", pngPayload("photo.png", []byte{1})).Upload(ctx).Success)

	missingFile := newLocal(base, "uploads", "other.png", nil).Delete(ctx)
	assert.False(t, missingFile.Success)
	assert.ErrorIs(t, missingFile.Err, ErrNotFound)

	deleted := newLocal(base, "uploads", "photo.png", nil).Delete(ctx)
	require.True(t, deleted.Success, deleted.Message)

	again := newLocal(base, "uploads", "photo.png", nil).ReadBytes(ctx)
	assert.False(t, again.Success)
	assert.Equal(t, "File not found", again.Message)
}

func TestLocalHandleIsNormalized(t *testing.T) {
	d := newLocal("/data", "/uploads", "photo", nil)
	assert.Equal(t, "/data/uploads/", d.Handle().Path)
	assert.Equal(t, BackendLocal, d.Backend())
}

func TestLocalRejectsLocationsOutsideBaseDir(t *testing.T) {
	root := t.TempDir()
	base := filepath.Join(root, "data")
	require.NoError(t, os.MkdirAll(filepath.Join(base, "uploads"), 0o755))
	secret := filepath.Join(root, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("TOPSECRET"), 0o644))
	ctx := context.Background()

	cases := []struct {
		name     string
		path     string
		filename string
	}{
		{"parent path", "../", "secret.txt"},
		{"nested parent path", "uploads/../../", "secret.txt"},
		{"parent filename", "uploads", "../../secret.txt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := newLocal(base, tc.path, tc.filename, nil)

			for op, res := range map[string]Result{
				"bytes":    d.ReadBytes(ctx),
				"base64":   d.ReadBase64(ctx),
				"download": d.Download(ctx),
				"delete":   d.Delete(ctx),
			} {
				assert.False(t, res.Success, op)
				assert.ErrorIs(t, res.Err, ErrInvalidPath, op)
				assert.Nil(t, res.Data, op)
			}

			data, err := os.ReadFile(secret)
			require.NoError(t, err)
			assert.Equal(t, "TOPSECRET", string(data))
		})
	}
}

func TestLocalUploadOutsideBaseDirIsRejected(t *testing.T) {
	root := t.TempDir()
	base := filepath.Join(root, "data")

	res := newLocal(base, "../escaped", "photo", pngPayload("photo.png", []byte{1})).Upload(context.Background())
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrInvalidPath)

	_, err := os.Stat(filepath.Join(root, "escaped"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalParentSegmentsInsideBaseDirAreAllowed(t *testing.T) {
	base := t.TempDir()
	ctx := context.Background()
	require.True(t, newLocal(base, "docs", "contract", pngPayload("contract.pdf", []byte("%PDF"))).Upload(ctx).Success)

	res := newLocal(base, "uploads/../docs", "contract.pdf", nil).ReadBytes(ctx)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "%PDF", string(res.Data))
}

func TestLocalEmptyFilenameNeverTouchesDirectory(t *testing.T) {
	base := t.TempDir()
	ctx := context.Background()
	dir := filepath.Join(base, "uploads")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	for _, filename := range []string{"", "  ", "."} {
		d := newLocal(base, "uploads", filename, nil)

		deleted := d.Delete(ctx)
		assert.False(t, deleted.Success, "filename %q", filename)
		assert.ErrorIs(t, deleted.Err, ErrInvalidPath, "filename %q", filename)
		assert.Equal(t, "invalid file path", deleted.Message)

		read := d.ReadBytes(ctx)
		assert.ErrorIs(t, read.Err, ErrInvalidPath, "filename %q", filename)
	}

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalDeleteRefusesDirectory(t *testing.T) {
	base := t.TempDir()
	nested := filepath.Join(base, "uploads", "archive")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	res := newLocal(base, "uploads", "archive", nil).Delete(context.Background())
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrNotFound)

	_, err := os.Stat(nested)
	assert.NoError(t, err)
}
