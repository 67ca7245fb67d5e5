package frame

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func i420(w, h int) []byte {
	cw, ch := (w+1)/2, (h+1)/2
	buf := make([]byte, w*h+2*cw*ch)
	for i := 0; i < w*h; i++ {
		buf[i] = byte(i % 251)
	}
	for i := w * h; i < len(buf); i++ {
		buf[i] = 128
	}
	return buf
}

func TestFromI420(t *testing.T) {
	buf := i420(8, 6)

	f, err := FromI420(buf, 8, 6, 90, nil)
	if err != nil {
		t.Fatalf("FromI420 failed: %v", err)
	}
	if f.Width != 8 || f.Height != 6 {
		t.Errorf("size: got %dx%d, want 8x6", f.Width, f.Height)
	}
	if len(f.Cb) != 12 || len(f.Cr) != 12 {
		t.Errorf("chroma planes: got %d/%d bytes, want 12", len(f.Cb), len(f.Cr))
	}
	if f.ID == "" {
		t.Error("expected frame id")
	}
	w, h := f.UprightSize()
	if w != 6 || h != 8 {
		t.Errorf("UprightSize: got %dx%d, want 6x8", w, h)
	}
	if got := f.Gray().GrayAt(3, 1).Y; got != buf[8+3] {
		t.Errorf("Gray view: got %d, want %d", got, buf[11])
	}
}

func TestFromI420Errors(t *testing.T) {
	tests := []struct {
		name     string
		buf      []byte
		w, h     int
		rotation int
		want     error
	}{
		{"short buffer", make([]byte, 10), 8, 6, 0, ErrShortBuffer},
		{"zero size", nil, 0, 6, 0, ErrInvalidSize},
		{"bad rotation", i420(8, 6), 8, 6, 45, ErrInvalidRotation},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromI420(tc.buf, tc.w, tc.h, tc.rotation, nil)
			if !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestReleaseOnce(t *testing.T) {
	calls := 0
	f, err := FromI420(i420(4, 4), 4, 4, 0, func() { calls++ })
	if err != nil {
		t.Fatalf("FromI420 failed: %v", err)
	}

	f.Release()
	f.Release()
	f.Release()

	if calls != 1 {
		t.Errorf("release ran %d times, want 1", calls)
	}
}

func TestFromYCbCrRebases(t *testing.T) {
	src := image.NewYCbCr(image.Rect(0, 0, 8, 8), image.YCbCrSubsampleRatio420)
	for i := range src.Y {
		src.Y[i] = byte(i)
	}
	sub := src.SubImage(image.Rect(2, 2, 6, 6)).(*image.YCbCr)

	f, err := FromYCbCr(sub, 0, nil)
	if err != nil {
		t.Fatalf("FromYCbCr failed: %v", err)
	}
	if f.Width != 4 || f.Height != 4 {
		t.Fatalf("size: got %dx%d, want 4x4", f.Width, f.Height)
	}
	if got, want := f.Gray().GrayAt(0, 0).Y, src.Y[src.YOffset(2, 2)]; got != want {
		t.Errorf("origin pixel: got %d, want %d", got, want)
	}
}

func TestRotationRoundTrip(t *testing.T) {
	const w, h = 640, 480
	r := image.Rect(100, 50, 200, 150)

	for _, deg := range []int{0, 90, 180, 270} {
		up := ToUpright(r, w, h, deg)
		if got := ToSensor(up, w, h, deg); got != r {
			t.Errorf("rotation %d: round trip got %v, want %v", deg, got, r)
		}
		if up.Dx()*up.Dy() != r.Dx()*r.Dy() {
			t.Errorf("rotation %d: area changed", deg)
		}
	}

	if got := ToUpright(r, w, h, 90); got != image.Rect(330, 100, 430, 200) {
		t.Errorf("rotation 90: got %v", got)
	}
}

func TestFromImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			c := color.NRGBA{A: 255}
			if x < 2 {
				c = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}

	f, err := FromImage(img, 90, nil)
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}
	if f.Width != 4 || f.Height != 2 || f.Subsample != image.YCbCrSubsampleRatio420 {
		t.Fatalf("got %dx%d %v", f.Width, f.Height, f.Subsample)
	}
	if f.Y[0] != 255 || f.Y[3] != 0 {
		t.Errorf("luma = %d, %d, want 255, 0", f.Y[0], f.Y[3])
	}
	if f.Cb[0] != 128 || f.Cr[0] != 128 {
		t.Errorf("chroma = %d, %d, want 128, 128", f.Cb[0], f.Cr[0])
	}
	if w, h := f.UprightSize(); w != 2 || h != 4 {
		t.Errorf("UprightSize = %dx%d, want 2x4", w, h)
	}
}

func TestFromImageKeepsYCbCr(t *testing.T) {
	img := image.NewYCbCr(image.Rect(0, 0, 8, 8), image.YCbCrSubsampleRatio420)
	f, err := FromImage(img, 0, nil)
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}
	if &f.Y[0] != &img.Y[0] {
		t.Error("expected the luma plane to be shared, not copied")
	}
}
