package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/filestore/internal/storage"
)

// driverSource is the part of *storage.Router the commands need.
type driverSource interface {
	DriverFor(path, filename string, payload *storage.Payload) storage.Driver
}

var errMissingFilename = errors.New("filename is required")

func requireFilename(filename string) error {
	if strings.TrimSpace(filename) == "" {
		return errMissingFilename
	}
	return nil
}

func resultError(action string, res storage.Result) error {
	return fmt.Errorf("%s failed: %s", action, res.Message)
}

// uploadFiles uploads every file concurrently and reports each outcome.
// All files are attempted; the first failure is returned.
func uploadFiles(ctx context.Context, drivers driverSource, path string, files []string, concurrency int, out io.Writer) error {
	if concurrency <= 0 {
		concurrency = 1
	}

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	g.SetLimit(concurrency)

	for _, file := range files {
		g.Go(func() error {
			err := uploadFile(ctx, drivers, path, file)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fmt.Fprintf(out, "FAIL %s: %v\n", file, err)
				return err
			}
			fmt.Fprintf(out, "OK   %s\n", file)
			return nil
		})
	}
	return g.Wait()
}

func uploadFile(ctx context.Context, drivers driverSource, path, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", file, err)
	}

	name := filepath.Base(file)
	filename := strings.TrimSuffix(name, filepath.Ext(name))
	payload := &storage.Payload{Reader: f, Name: name, Size: info.Size()}

	if res := drivers.DriverFor(path, filename, payload).Upload(ctx); !res.Success {
		return resultError("upload", res)
	}
	return nil
}

func getFile(ctx context.Context, drivers driverSource, path, filename, output string, asBase64 bool, stdout io.Writer) error {
	if err := requireFilename(filename); err != nil {
		return err
	}
	d := drivers.DriverFor(path, filename, nil)

	var data []byte
	if asBase64 {
		res := d.ReadBase64(ctx)
		if !res.Success {
			return resultError("read", res)
		}
		data = []byte(res.Base64 + "\n")
	} else {
		res := d.ReadBytes(ctx)
		if !res.Success {
			return resultError("read", res)
		}
		data = res.Data
	}

	if output == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("failed creating directory for %s: %w", output, err)
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("failed writing %s: %w", output, err)
	}
	return nil
}

func printURL(ctx context.Context, drivers driverSource, path, filename string, out io.Writer) error {
	if err := requireFilename(filename); err != nil {
		return err
	}
	res := drivers.DriverFor(path, filename, nil).AccessURL(ctx)
	if !res.Success {
		return resultError("url", res)
	}
	_, err := fmt.Fprintln(out, res.URL)
	return err
}

func deleteFile(ctx context.Context, drivers driverSource, path, filename, extension string, out io.Writer) error {
	if err := requireFilename(filename); err != nil {
		return err
	}
	payload := storage.ExtensionPayload(filename, extension)
	res := drivers.DriverFor(path, filename, payload).Delete(ctx)
	if !res.Success {
		return resultError("delete", res)
	}
	_, err := fmt.Fprintln(out, res.Message)
	return err
}
