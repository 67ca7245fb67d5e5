package camera

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/teslashibe/go-moodcam/internal/log"
	"github.com/teslashibe/go-moodcam/pkg/frame"
)

// ErrNoImages is returned when a replay directory has no usable images.
var ErrNoImages = errors.New("no images to replay")

// Replay plays a directory of stills as frames at the configured rate.
type Replay struct {
	files    []string
	interval time.Duration
	rotation int
	loop     bool
}

// NewReplay lists the images in cfg.Device.
func NewReplay(cfg Config) (*Replay, error) {
	files, err := ListImages(cfg.Device)
	if err != nil {
		return nil, err
	}
	return &Replay{
		files:    files,
		interval: time.Second / time.Duration(cfg.Framerate),
		rotation: cfg.Rotation,
		loop:     cfg.Loop,
	}, nil
}

// ListImages returns the jpg and png files in dir in name order.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read replay dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if IsImage(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoImages, dir)
	}
	sort.Strings(files)
	return files, nil
}

// IsImage reports whether name has an image extension we can decode.
func IsImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// Run delivers one image per tick. It returns nil at the end of the
// directory unless looping.
func (r *Replay) Run(ctx context.Context, deliver Deliver) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		for _, path := range r.files {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
			if ctx.Err() != nil {
				return nil
			}

			img, err := imaging.Open(path)
			if err != nil {
				log.Warn("replay image skipped", "path", path, "error", err)
				continue
			}
			f, err := frame.FromImage(img, r.rotation, nil)
			if err != nil {
				log.Warn("replay image skipped", "path", path, "error", err)
				continue
			}
			deliver(f)
		}
		if !r.loop {
			return nil
		}
	}
}

// Close is a no-op; files are opened per frame.
func (r *Replay) Close() error { return nil }
