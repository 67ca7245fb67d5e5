// Package detection finds face bounding boxes in upright images.
package detection

import (
	"context"
	"fmt"
	"image"
)

// Box is a face bounding box in pixel coordinates. Right and Bottom are exclusive.
type Box struct {
	Left, Top, Right, Bottom int
	Confidence               float64 // Detector confidence (0-1), 0 if unknown
}

// BoxFromRect converts an image.Rectangle to a Box.
func BoxFromRect(r image.Rectangle, confidence float64) Box {
	return Box{Left: r.Min.X, Top: r.Min.Y, Right: r.Max.X, Bottom: r.Max.Y, Confidence: confidence}
}

// Width returns the box width.
func (b Box) Width() int { return b.Right - b.Left }

// Height returns the box height.
func (b Box) Height() int { return b.Bottom - b.Top }

// Empty reports whether the box has no area.
func (b Box) Empty() bool { return b.Width() <= 0 || b.Height() <= 0 }

// Area returns the box area, 0 for empty boxes.
func (b Box) Area() int {
	if b.Empty() {
		return 0
	}
	return b.Width() * b.Height()
}

// Center returns the center point of the box.
func (b Box) Center() (x, y float64) {
	return float64(b.Left+b.Right) / 2, float64(b.Top+b.Bottom) / 2
}

// Rect returns the box as an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right, b.Bottom)
}

func (b Box) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", b.Left, b.Top, b.Right, b.Bottom)
}

// Detector is the interface for face detection backends.
// An error means detection failed; an empty slice means no face was found.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]Box, error)

	// Close releases resources
	Close() error
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(ctx context.Context, img image.Image) ([]Box, error)

// Detect calls f.
func (f DetectorFunc) Detect(ctx context.Context, img image.Image) ([]Box, error) {
	return f(ctx, img)
}

// Close is a no-op.
func (f DetectorFunc) Close() error { return nil }

// SelectBest picks the primary face from multiple detections.
// Priority: confidence * 0.7 + relative area * 0.3
func SelectBest(boxes []Box) *Box {
	i := BestIndex(boxes)
	if i < 0 {
		return nil
	}
	return &boxes[i]
}

// BestIndex is SelectBest returning the index of the primary face, or -1
// when boxes is empty. Ties keep the earliest box.
func BestIndex(boxes []Box) int {
	if len(boxes) <= 1 {
		return len(boxes) - 1
	}

	maxArea := 0
	for _, b := range boxes {
		if b.Area() > maxArea {
			maxArea = b.Area()
		}
	}
	if maxArea == 0 {
		maxArea = 1
	}

	bestScore := -1.0
	best := -1
	for i, b := range boxes {
		score := b.Confidence*0.7 + float64(b.Area())/float64(maxArea)*0.3
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best
}
