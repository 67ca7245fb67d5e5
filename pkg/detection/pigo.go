package detection

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	pigo "github.com/esimov/pigo/core"
	"github.com/teslashibe/go-moodcam/internal/log"
)

// PigoDetector is a pure-Go cascade face detector. It needs no native
// runtime, only the facefinder cascade file.
type PigoDetector struct {
	classifier *pigo.Pigo
	config     Config
	mu         sync.Mutex
}

// NewPigo unpacks the cascade file named by cfg.ModelPath.
func NewPigo(cfg Config) (*PigoDetector, error) {
	cascade, err := os.ReadFile(cfg.ModelPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, cfg.ModelPath)
		}
		return nil, fmt.Errorf("read cascade: %w", err)
	}

	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("unpack cascade: %w", err)
	}

	return &PigoDetector{classifier: classifier, config: cfg}, nil
}

// Detect runs the cascade over the grayscale version of img.
func (d *PigoDetector) Detect(ctx context.Context, img image.Image) ([]Box, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}

	src := pigo.ImgToNRGBA(img)
	cols, rows := src.Bounds().Dx(), src.Bounds().Dy()

	maxSize := d.config.MaxSize
	if side := min(cols, rows); maxSize > side {
		maxSize = side
	}

	params := pigo.CascadeParams{
		MinSize:     d.config.MinSize,
		MaxSize:     maxSize,
		ShiftFactor: d.config.ShiftFactor,
		ScaleFactor: d.config.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pigo.RgbToGrayscale(src),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	d.mu.Lock()
	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, d.config.IoUThresh)
	d.mu.Unlock()

	origin := img.Bounds().Min
	var boxes []Box
	for _, det := range dets {
		if det.Q < d.config.Quality {
			continue
		}
		half := det.Scale / 2
		boxes = append(boxes, Box{
			Left:       origin.X + det.Col - half,
			Top:        origin.Y + det.Row - half,
			Right:      origin.X + det.Col + half,
			Bottom:     origin.Y + det.Row + half,
			Confidence: cascadeConfidence(det.Q),
		})
	}

	if len(boxes) > 0 {
		log.Debug("pigo detections", "faces", len(boxes))
	}

	return boxes, nil
}

// Close is a no-op; the cascade is plain memory.
func (d *PigoDetector) Close() error { return nil }

// cascadeConfidence squashes the unbounded cascade score into 0-1.
func cascadeConfidence(q float32) float64 {
	return 1 - math.Exp(-float64(q)/20)
}
