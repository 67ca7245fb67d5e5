// Package frame wraps planar YCbCr camera buffers with a rotation hint and
// a release function that runs exactly once.
package frame

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RawFrame is one camera frame in sensor orientation.
//
// The planes are owned by whoever produced the frame. They stay valid until
// Release is called, after which the frame must not be read.
type RawFrame struct {
	ID string
	At time.Time

	Y, Cb, Cr []byte
	YStride   int
	CStride   int
	Subsample image.YCbCrSubsampleRatio

	// Width and Height are in sensor orientation.
	Width  int
	Height int

	// Rotation is the clockwise rotation in degrees that makes the image upright.
	Rotation int

	release func()
	once    sync.Once
}

// Planes describes the buffers of a planar YCbCr image.
type Planes struct {
	Y, Cb, Cr []byte
	YStride   int
	CStride   int
	Subsample image.YCbCrSubsampleRatio
	Width     int
	Height    int
}

// New validates the planes and wraps them in a RawFrame. release may be nil.
func New(p Planes, rotation int, release func()) (*RawFrame, error) {
	if err := ValidRotation(rotation); err != nil {
		return nil, err
	}
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, p.Width, p.Height)
	}
	if p.YStride < p.Width {
		return nil, fmt.Errorf("%w: luma stride %d < width %d", ErrInvalidSize, p.YStride, p.Width)
	}
	if len(p.Y) < p.YStride*(p.Height-1)+p.Width {
		return nil, fmt.Errorf("%w: luma plane has %d bytes", ErrShortBuffer, len(p.Y))
	}

	cw, ch := chromaSize(p.Width, p.Height, p.Subsample)
	if p.CStride < cw {
		return nil, fmt.Errorf("%w: chroma stride %d < %d", ErrInvalidSize, p.CStride, cw)
	}
	need := p.CStride*(ch-1) + cw
	if len(p.Cb) < need || len(p.Cr) < need {
		return nil, fmt.Errorf("%w: chroma planes need %d bytes", ErrShortBuffer, need)
	}

	return &RawFrame{
		ID:        uuid.NewString(),
		At:        time.Now(),
		Y:         p.Y,
		Cb:        p.Cb,
		Cr:        p.Cr,
		YStride:   p.YStride,
		CStride:   p.CStride,
		Subsample: p.Subsample,
		Width:     p.Width,
		Height:    p.Height,
		Rotation:  rotation,
		release:   release,
	}, nil
}

// FromI420 wraps a contiguous I420 buffer (Y, then U, then V, 4:2:0).
func FromI420(buf []byte, width, height, rotation int, release func()) (*RawFrame, error) {
	cw, ch := chromaSize(width, height, image.YCbCrSubsampleRatio420)
	ySize := width * height
	cSize := cw * ch
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if len(buf) < ySize+2*cSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrShortBuffer, len(buf), ySize+2*cSize)
	}
	return New(Planes{
		Y:         buf[:ySize],
		Cb:        buf[ySize : ySize+cSize],
		Cr:        buf[ySize+cSize : ySize+2*cSize],
		YStride:   width,
		CStride:   cw,
		Subsample: image.YCbCrSubsampleRatio420,
		Width:     width,
		Height:    height,
	}, rotation, release)
}

// FromYCbCr wraps a decoded image.YCbCr without copying.
func FromYCbCr(img *image.YCbCr, rotation int, release func()) (*RawFrame, error) {
	b := img.Rect
	// Rebase so the frame always starts at the origin.
	if b.Min != (image.Point{}) {
		cp := image.NewYCbCr(image.Rect(0, 0, b.Dx(), b.Dy()), img.SubsampleRatio)
		for y := 0; y < b.Dy(); y++ {
			copy(cp.Y[y*cp.YStride:y*cp.YStride+b.Dx()], img.Y[img.YOffset(b.Min.X, b.Min.Y+y):])
		}
		cw, ch := chromaSize(b.Dx(), b.Dy(), img.SubsampleRatio)
		for y := 0; y < ch; y++ {
			off := img.COffset(b.Min.X, b.Min.Y) + y*img.CStride
			copy(cp.Cb[y*cp.CStride:y*cp.CStride+cw], img.Cb[off:])
			copy(cp.Cr[y*cp.CStride:y*cp.CStride+cw], img.Cr[off:])
		}
		img = cp
	}
	return New(Planes{
		Y:         img.Y,
		Cb:        img.Cb,
		Cr:        img.Cr,
		YStride:   img.YStride,
		CStride:   img.CStride,
		Subsample: img.SubsampleRatio,
		Width:     b.Dx(),
		Height:    b.Dy(),
	}, rotation, release)
}

// Release returns the buffers to their producer. Safe to call more than once;
// the release function only runs the first time.
func (f *RawFrame) Release() {
	f.once.Do(func() {
		if f.release != nil {
			f.release()
		}
	})
}

// YCbCr returns a view over the frame planes. No pixels are copied.
func (f *RawFrame) YCbCr() *image.YCbCr {
	return &image.YCbCr{
		Y:              f.Y,
		Cb:             f.Cb,
		Cr:             f.Cr,
		YStride:        f.YStride,
		CStride:        f.CStride,
		SubsampleRatio: f.Subsample,
		Rect:           image.Rect(0, 0, f.Width, f.Height),
	}
}

// Gray returns a luminance-only view over the Y plane.
func (f *RawFrame) Gray() *image.Gray {
	return &image.Gray{
		Pix:    f.Y,
		Stride: f.YStride,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// UprightSize is the frame size after applying the rotation hint.
func (f *RawFrame) UprightSize() (w, h int) {
	if f.Rotation == 90 || f.Rotation == 270 {
		return f.Height, f.Width
	}
	return f.Width, f.Height
}

func chromaSize(w, h int, ratio image.YCbCrSubsampleRatio) (int, int) {
	switch ratio {
	case image.YCbCrSubsampleRatio422:
		return (w + 1) / 2, h
	case image.YCbCrSubsampleRatio420:
		return (w + 1) / 2, (h + 1) / 2
	case image.YCbCrSubsampleRatio440:
		return w, (h + 1) / 2
	case image.YCbCrSubsampleRatio411:
		return (w + 3) / 4, h
	case image.YCbCrSubsampleRatio410:
		return (w + 3) / 4, (h + 1) / 2
	default:
		return w, h
	}
}
