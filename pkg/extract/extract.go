// Package extract turns a camera frame and a face box into an upright,
// cropped face image.
package extract

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/teslashibe/go-moodcam/pkg/detection"
	"github.com/teslashibe/go-moodcam/pkg/frame"
)

// ColorMode selects how planar YCbCr is converted to an interleaved raster.
type ColorMode string

const (
	// ModeGray uses only the luminance plane. Cheaper, loses color.
	ModeGray ColorMode = "gray"

	// ModeColor converts all three planes to RGB.
	ModeColor ColorMode = "color"
)

// Inflation factors used by the live and still-image flows.
const (
	LiveInflate  = 1.4
	StillInflate = 1.0
)

// ParseColorMode validates a mode name. An empty name means ModeGray.
func ParseColorMode(s string) (ColorMode, error) {
	switch ColorMode(s) {
	case "", ModeGray:
		return ModeGray, nil
	case ModeColor:
		return ModeColor, nil
	}
	return "", fmt.Errorf("unknown color mode %q", s)
}

// Inflate grows b about its center so that width and height are scaled by
// factor. Edges are truncated to integers. Factors <= 1 return b unchanged.
func Inflate(b detection.Box, factor float64) detection.Box {
	if factor <= 1 {
		return b
	}

	cx, cy := b.Center()
	halfW := float64(b.Width()) * factor / 2
	halfH := float64(b.Height()) * factor / 2

	return detection.Box{
		Left:       int(cx - halfW),
		Top:        int(cy - halfH),
		Right:      int(cx + halfW),
		Bottom:     int(cy + halfH),
		Confidence: b.Confidence,
	}
}

// Clamp limits b to a w×h raster. It returns false when the clamped box has
// no area, which callers treat as no detection.
func Clamp(b detection.Box, w, h int) (detection.Box, bool) {
	b.Left = max(b.Left, 0)
	b.Top = max(b.Top, 0)
	b.Right = min(b.Right, w)
	b.Bottom = min(b.Bottom, h)

	if b.Empty() {
		return detection.Box{}, false
	}
	return b, true
}

// Extractor converts frames with one ColorMode for its whole lifetime.
type Extractor struct {
	mode ColorMode
}

// New returns an Extractor using mode. An empty mode means ModeGray.
func New(mode ColorMode) *Extractor {
	if mode == "" {
		mode = ModeGray
	}
	return &Extractor{mode: mode}
}

// Mode returns the color conversion strategy.
func (e *Extractor) Mode() ColorMode { return e.mode }

// Rasterize converts f to an interleaved raster and rotates it upright.
// The result does not share memory with f, so f may be released afterwards.
func (e *Extractor) Rasterize(f *frame.RawFrame) *image.NRGBA {
	var src image.Image
	if e.mode == ModeColor {
		src = f.YCbCr()
	} else {
		src = f.Gray()
	}

	// imaging rotates counter-clockwise.
	switch f.Rotation {
	case 90:
		return imaging.Rotate270(src)
	case 180:
		return imaging.Rotate180(src)
	case 270:
		return imaging.Rotate90(src)
	default:
		return imaging.Clone(src)
	}
}

// Crop inflates box, clamps it to raster and crops. The returned box is the
// region actually cropped. ok is false when nothing of the box is visible.
func (e *Extractor) Crop(raster image.Image, box detection.Box, inflate float64) (*image.NRGBA, detection.Box, bool) {
	bounds := raster.Bounds()
	clamped, ok := Clamp(Inflate(box, inflate), bounds.Dx(), bounds.Dy())
	if !ok {
		return nil, detection.Box{}, false
	}
	return imaging.Crop(raster, clamped.Rect().Add(bounds.Min)), clamped, true
}

// Extract is Rasterize followed by Crop, for one-off use.
func (e *Extractor) Extract(f *frame.RawFrame, box detection.Box, inflate float64) (*image.NRGBA, bool) {
	img, _, ok := e.Crop(e.Rasterize(f), box, inflate)
	return img, ok
}

// SensorBox maps a box in upright coordinates back into the sensor
// orientation of f.
func SensorBox(b detection.Box, f *frame.RawFrame) detection.Box {
	r := frame.ToSensor(b.Rect(), f.Width, f.Height, f.Rotation)
	return detection.BoxFromRect(r, b.Confidence)
}
