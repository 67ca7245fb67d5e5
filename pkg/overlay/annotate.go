package overlay

import (
	"image"
	"strconv"

	"github.com/fogleman/gg"
	"github.com/teslashibe/go-moodcam/pkg/detection"
)

const (
	strokeWidth  = 2
	textIndent   = 0.1 // Fraction of the box used to inset the face number
	defaultColor = "#00ff00"
)

// Mark is a box with the text drawn inside its bottom-left corner.
type Mark struct {
	Box  detection.Box
	Text string
}

// Annotate draws each box onto a copy of img with its 1-based face number
// near the bottom-left corner. Boxes are in img's pixel coordinates.
func Annotate(img image.Image, boxes []detection.Box) image.Image {
	marks := make([]Mark, len(boxes))
	for i, b := range boxes {
		marks[i] = Mark{Box: b, Text: strconv.Itoa(i + 1)}
	}
	return AnnotateMarks(img, marks)
}

// AnnotateMarks draws marks onto a copy of img.
func AnnotateMarks(img image.Image, marks []Mark) image.Image {
	dc := gg.NewContextForImage(img)
	dc.SetHexColor(defaultColor)
	dc.SetLineWidth(strokeWidth)

	for _, m := range marks {
		b := m.Box
		w, h := float64(b.Width()), float64(b.Height())

		dc.DrawRectangle(float64(b.Left), float64(b.Top), w, h)
		dc.Stroke()

		if m.Text != "" {
			dc.DrawString(m.Text,
				float64(b.Left)+w*textIndent,
				float64(b.Bottom)-h*textIndent)
		}
	}

	return dc.Image()
}
