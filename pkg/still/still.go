// Package still analyzes single images: every detected face is numbered,
// cropped without inflation and scored against the full label set.
package still

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"

	"github.com/teslashibe/go-moodcam/internal/log"
	"github.com/teslashibe/go-moodcam/pkg/detection"
	"github.com/teslashibe/go-moodcam/pkg/emotions"
	"github.com/teslashibe/go-moodcam/pkg/extract"
	"github.com/teslashibe/go-moodcam/pkg/overlay"
)

// MaxSide is the default length of the longest image side after scaling.
const MaxSide = 480

// ErrNoFace is returned by Analyze when the detector finds nothing.
var ErrNoFace = errors.New("no face detected")

// Config holds still image settings.
type Config struct {
	MaxSide   int               `mapstructure:"max_side" json:"max_side"` // 0 disables scaling
	Inflate   float64           `mapstructure:"inflate" json:"inflate"`
	Normalize bool              `mapstructure:"normalize" json:"normalize"`
	ColorMode extract.ColorMode `mapstructure:"color_mode" json:"color_mode"`
}

// DefaultConfig returns the still image defaults.
func DefaultConfig() Config {
	return Config{
		MaxSide:   MaxSide,
		Inflate:   extract.StillInflate,
		Normalize: true,
		ColorMode: extract.ModeGray,
	}
}

// Face is one numbered face of a still image.
type Face struct {
	Index        int                 `json:"index"` // 1-based, in detection order
	Box          detection.Box       `json:"box"`
	Prediction   emotions.Prediction `json:"prediction"`
	Distribution []emotions.Ranked   `json:"distribution"` // Highest score first
}

// Result is the analysis of one image.
type Result struct {
	Source  string        `json:"source,omitempty"`
	Width   int           `json:"width"`
	Height  int           `json:"height"`
	Faces   []Face        `json:"faces"`
	Error   string        `json:"error,omitempty"`
	Latency time.Duration `json:"latency_ns"`

	// Annotated is the scaled image with numbered boxes drawn on it.
	Annotated image.Image `json:"-"`
}

// Analyzer runs detection and classification over whole images.
// Safe for concurrent use; calls are serialized.
type Analyzer struct {
	cfg       Config
	detector  detection.Detector
	cls       emotions.Classifier
	labels    emotions.Labels
	extractor *extract.Extractor

	mu sync.Mutex
}

// New creates a still image analyzer. It does not take ownership of the
// detector and classifier.
func New(cfg Config, det detection.Detector, cls emotions.Classifier, labels emotions.Labels) *Analyzer {
	return &Analyzer{
		cfg:       cfg,
		detector:  det,
		cls:       cls,
		labels:    labels,
		extractor: extract.New(cfg.ColorMode),
	}
}

// Load opens an image file and applies its EXIF orientation.
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return img, nil
}

// Decode reads an image and applies its EXIF orientation.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// ScaleToMax resizes img so its longest side is maxSide, keeping the aspect
// ratio. Smaller images are scaled up. maxSide <= 0 returns img unchanged.
func ScaleToMax(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSide <= 0 || w == 0 || h == 0 {
		return img
	}

	var sw, sh int
	if h > w {
		sh = maxSide
		sw = int(float64(w) * float64(maxSide) / float64(h))
	} else {
		sw = maxSide
		sh = int(float64(h) * float64(maxSide) / float64(w))
	}
	if sw < 1 {
		sw = 1
	}
	if sh < 1 {
		sh = 1
	}
	if sw == w && sh == h {
		return img
	}
	return resize.Resize(uint(sw), uint(sh), img, resize.Bilinear)
}

// Analyze scales img, detects faces and classifies every usable one.
// A detector failure is returned as an error; finding no faces returns a
// result with ErrNoFace.
func (a *Analyzer) Analyze(ctx context.Context, img image.Image) (*Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	scaled := ScaleToMax(img, a.cfg.MaxSide)
	raster := imaging.Clone(scaled)
	if a.extractor.Mode() == extract.ModeGray {
		raster = imaging.Grayscale(raster)
	}

	res := &Result{
		Width:  raster.Bounds().Dx(),
		Height: raster.Bounds().Dy(),
		Faces:  []Face{},
	}

	boxes, err := a.detector.Detect(ctx, raster)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	var marks []overlay.Mark
	for i, box := range boxes {
		crop, region, ok := a.extractor.Crop(raster, box, a.cfg.Inflate)
		if !ok {
			log.Debug("still face outside image", "face", i+1, "box", box.String())
			continue
		}
		marks = append(marks, overlay.Mark{Box: region, Text: strconv.Itoa(i + 1)})

		scores, err := a.cls.Classify(ctx, crop, a.cfg.Normalize)
		if err != nil {
			log.Warn("still face classification failed", "face", i+1, "error", err)
			continue
		}
		res.Faces = append(res.Faces, Face{
			Index:        i + 1,
			Box:          region,
			Prediction:   emotions.Dominant(scores, a.labels),
			Distribution: emotions.Rank(scores, a.labels),
		})
	}

	res.Annotated = overlay.AnnotateMarks(scaled, marks)
	res.Latency = time.Since(start)

	if len(boxes) == 0 {
		return res, ErrNoFace
	}
	return res, nil
}

// AnalyzeFile is Load followed by Analyze.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*Result, error) {
	img, err := Load(path)
	if err != nil {
		return nil, err
	}
	res, err := a.Analyze(ctx, img)
	if res != nil {
		res.Source = path
	}
	return res, err
}
