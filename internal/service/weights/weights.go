// Package weights locates model weights on disk, downloading them once when a fallback URL is configured.
package weights

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	getter "github.com/hashicorp/go-getter"

	"predictor/internal/apperr"
)

// Fetcher downloads src into the file dst.
type Fetcher interface {
	Fetch(ctx context.Context, src, dst string) error
}

// GetterFetcher downloads with go-getter in single-file mode.
type GetterFetcher struct {
	Pwd string
}

// Fetch implements Fetcher.
func (f GetterFetcher) Fetch(ctx context.Context, src, dst string) error {
	client := &getter.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  dst,
		Pwd:  f.Pwd,
		Mode: getter.ClientModeFile,
	}
	if err := client.Get(); err != nil {
		return fmt.Errorf("failed to download %s: %w", src, err)
	}
	return nil
}

// Resolve makes sure path exists. When it is missing and url is set, it is downloaded with exactly one
// fetch attempt. When it is missing and url is empty, the error is MissingModelFile.
func Resolve(ctx context.Context, path, url string, fetcher Fetcher) (string, error) {
	if fileExists(path) {
		return path, nil
	}
	if url == "" {
		return "", apperr.New(apperr.MissingModelFile, "model file not found: %s", path)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", apperr.Wrap(apperr.MissingModelFile, err, "cannot create weights directory %s", dir)
		}
	}
	if err := fetcher.Fetch(ctx, url, path); err != nil {
		return "", apperr.Wrap(apperr.MissingModelFile, err, "model file not found: %s", path)
	}
	if !fileExists(path) {
		return "", apperr.New(apperr.MissingModelFile, "download of %s produced no file at %s", url, path)
	}
	return path, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
