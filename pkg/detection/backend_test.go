package detection

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

// findModel looks for a model file in the usual locations relative to the package.
func findModel(name string) string {
	paths := []string{
		filepath.Join("models", name),
		filepath.Join("..", "..", "models", name),
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func solidImage(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}
	return img
}

func TestBackends_BlankImage(t *testing.T) {
	tests := []struct {
		name  string
		model string
		cfg   func(string) Config
	}{
		{"yunet", "face_detection_yunet.onnx", func(p string) Config {
			cfg := DefaultConfig()
			cfg.ModelPath = p
			return cfg
		}},
		{"pigo", "facefinder", func(p string) Config {
			cfg := DefaultPigoConfig()
			cfg.ModelPath = p
			return cfg
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := findModel(tc.model)
			if path == "" {
				t.Skipf("%s model not found, skipping test", tc.name)
			}

			d, err := New(tc.cfg(path))
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			defer d.Close()

			boxes, err := d.Detect(context.Background(), solidImage(320, 240))
			if err != nil {
				t.Fatalf("Detect failed: %v", err)
			}
			if len(boxes) != 0 {
				t.Errorf("expected no faces on a blank image, got %d", len(boxes))
			}

			if _, err := d.Detect(context.Background(), image.NewNRGBA(image.Rect(0, 0, 0, 0))); err == nil {
				t.Error("expected error for empty image")
			}
		})
	}
}

func TestCascadeConfidence(t *testing.T) {
	prev := -1.0
	for _, q := range []float32{0, 5, 20, 80, 400} {
		c := cascadeConfidence(q)
		if c < 0 || c > 1 {
			t.Errorf("q=%.0f: confidence %.3f out of range", q, c)
		}
		if c <= prev {
			t.Errorf("q=%.0f: confidence %.3f not increasing", q, c)
		}
		prev = c
	}
}
