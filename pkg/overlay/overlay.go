// Package overlay maps face boxes from the landscape sensor frame onto a
// portrait display canvas.
package overlay

import (
	"math"

	"github.com/teslashibe/go-moodcam/pkg/detection"
)

// Size is a width and height in pixels.
type Size struct {
	Width  int `mapstructure:"width" json:"width"`
	Height int `mapstructure:"height" json:"height"`
}

// Empty reports whether either dimension is zero or negative.
func (s Size) Empty() bool { return s.Width <= 0 || s.Height <= 0 }

// Rect is a canvas rectangle in floating point pixels.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Width returns the rect width.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height returns the rect height.
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// MapToCanvas converts box from analysis (sensor) coordinates to canvas
// coordinates. The axes are swapped because the analysis frame is landscape
// and the canvas portrait. When mirrored, the result is flipped horizontally
// for a front-facing camera.
//
// ok is false when analysis has a zero dimension; the caller should skip
// drawing for that frame.
func MapToCanvas(box detection.Box, analysis, canvas Size, mirrored bool) (Rect, bool) {
	if analysis.Width <= 0 || analysis.Height <= 0 {
		return Rect{}, false
	}

	xScale := float64(canvas.Width) / float64(analysis.Height)
	yScale := float64(canvas.Height) / float64(analysis.Width)

	r := Rect{
		Left:   float64(box.Top) * xScale,
		Top:    float64(box.Left) * yScale,
		Right:  float64(box.Bottom) * xScale,
		Bottom: float64(box.Right) * yScale,
	}

	if mirrored {
		r = Mirror(r, float64(canvas.Width))
	}
	return normalize(r), true
}

// Mirror reflects r about the vertical center line of a canvas of the given
// width. Applying it twice returns r.
func Mirror(r Rect, width float64) Rect {
	return Rect{
		Left:   width - r.Right,
		Top:    r.Top,
		Right:  width - r.Left,
		Bottom: r.Bottom,
	}
}

func normalize(r Rect) Rect {
	return Rect{
		Left:   math.Min(r.Left, r.Right),
		Top:    math.Min(r.Top, r.Bottom),
		Right:  math.Max(r.Left, r.Right),
		Bottom: math.Max(r.Top, r.Bottom),
	}
}
