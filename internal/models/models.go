// Package models resolves model references. Local paths are returned as
// is; http(s) URLs are downloaded once into a cache directory.
package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/teslashibe/go-moodcam/internal/httpc"
	"github.com/teslashibe/go-moodcam/internal/log"
)

// ErrNotFound is returned for local model paths that do not exist.
var ErrNotFound = errors.New("model file not found")

// Resolver turns model references into local file paths.
type Resolver struct {
	CacheDir string
	Client   *http.Client
}

// NewResolver creates a resolver that caches downloads in dir.
func NewResolver(dir string) *Resolver {
	return &Resolver{
		CacheDir: dir,
		Client:   httpc.NewClient(httpc.DownloadTimeout),
	}
}

// IsURL reports whether ref should be downloaded.
func IsURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Resolve returns a local path for ref. An empty ref resolves to "".
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	if !IsURL(ref) {
		if _, err := os.Stat(ref); err != nil {
			return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return ref, nil
	}

	dest, err := r.CachePath(ref)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(dest); err == nil {
		log.Debug("model cached", "url", ref, "path", dest)
		return dest, nil
	}

	if err := os.MkdirAll(r.CacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create model cache: %w", err)
	}

	// Download next to the destination and rename so a partial file is
	// never mistaken for a cached model.
	tmp, err := os.CreateTemp(r.CacheDir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	log.Info("downloading model", "url", ref)
	n, err := httpc.Download(ctx, r.Client, ref, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("download model: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("store model: %w", err)
	}
	log.Info("model downloaded", "path", dest, "bytes", n)
	return dest, nil
}

// CachePath is where the download of rawURL is stored. The URL hash keeps
// files with the same name from different hosts apart.
func (r *Resolver) CachePath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse model url: %w", err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		name = "model"
	}
	sum := sha256.Sum256([]byte(rawURL))
	return filepath.Join(r.CacheDir, hex.EncodeToString(sum[:4])+"-"+name), nil
}
