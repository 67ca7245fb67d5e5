package emotions

import (
	"context"
	"errors"
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultLabels(t *testing.T) {
	labels := DefaultLabels()

	want := []string{"Angry", "Disgust", "Fear", "Happy", "Sad", "Surprise", "Neutral"}
	if labels.Len() != len(want) {
		t.Fatalf("Expected %d labels, got %d", len(want), labels.Len())
	}
	for i, name := range want {
		if labels.At(i) != name {
			t.Errorf("label %d: got %q, want %q", i, labels.At(i), name)
		}
		if idx, ok := labels.Index(name); !ok || idx != i {
			t.Errorf("Index(%q) = %d, %v", name, idx, ok)
		}
	}

	names := labels.Names()
	names[0] = "Mutated"
	if labels.At(0) != "Angry" {
		t.Error("Names must return a copy")
	}
}

func TestNewLabelsErrors(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  error
	}{
		{"empty", nil, ErrNoLabels},
		{"blank", []string{"Happy", " "}, ErrInvalidLabels},
		{"duplicate", []string{"Happy", "Sad", "Happy"}, ErrInvalidLabels},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLabels(tc.input...)
			if !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestLoadLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	content := "# custom set\nHappy\n\nSad\n  Calm  \n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	labels, err := LoadLabels(path)
	if err != nil {
		t.Fatalf("LoadLabels failed: %v", err)
	}
	if got := labels.Names(); len(got) != 3 || got[0] != "Happy" || got[1] != "Sad" || got[2] != "Calm" {
		t.Errorf("got %v", got)
	}

	if _, err := LoadLabels(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}

	def, err := LoadLabels("")
	if err != nil || def.Len() != 7 {
		t.Errorf("empty path: got %d labels, %v", def.Len(), err)
	}
}

func TestDominant(t *testing.T) {
	labels, _ := NewLabels("Angry", "Happy", "Sad")

	tests := []struct {
		name      string
		scores    Scores
		wantLabel string
		wantConf  float64
	}{
		{
			name:      "clear winner",
			scores:    Scores{"Happy": 0.2, "Sad": 0.2, "Angry": 0.6},
			wantLabel: "Angry",
			wantConf:  0.6,
		},
		{
			name:      "tie resolved by label order",
			scores:    Scores{"Sad": 0.5, "Happy": 0.5},
			wantLabel: "Happy",
			wantConf:  0.5,
		},
		{
			name:      "empty scores",
			scores:    Scores{},
			wantLabel: Unknown,
			wantConf:  0,
		},
		{
			name:      "nil scores",
			scores:    nil,
			wantLabel: Unknown,
			wantConf:  0,
		},
		{
			name:      "labels outside the set are ignored",
			scores:    Scores{"Bored": 0.9, "Sad": 0.1},
			wantLabel: "Sad",
			wantConf:  0.1,
		},
		{
			name:      "all zero picks first label",
			scores:    Scores{"Angry": 0, "Happy": 0, "Sad": 0},
			wantLabel: "Angry",
			wantConf:  0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Map iteration order must not matter.
			for i := 0; i < 20; i++ {
				got := Dominant(tc.scores, labels)
				if got.Label != tc.wantLabel || got.Confidence != tc.wantConf {
					t.Fatalf("got %+v, want %s (%.2f)", got, tc.wantLabel, tc.wantConf)
				}
			}
		})
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		label string
		conf  float64
		want  string
	}{
		{"Happy", 0.8766, "Happy (87.7%)"},
		{"Sad", 1.0, "Sad (100.0%)"},
		{Unknown, 0, "Unknown (0.0%)"},
		{"Fear", 0.05, "Fear (5.0%)"},
	}

	for _, tc := range tests {
		if got := Format(tc.label, tc.conf); got != tc.want {
			t.Errorf("Format(%q, %v) = %q, want %q", tc.label, tc.conf, got, tc.want)
		}
	}

	p := Prediction{Label: "Angry", Confidence: 0.6}
	if p.String() != "Angry (60.0%)" {
		t.Errorf("Prediction.String() = %q", p.String())
	}
}

func TestRank(t *testing.T) {
	labels := DefaultLabels()
	scores := Scores{"Happy": 0.5, "Sad": 0.1, "Angry": 0.1, "Neutral": 0.3}

	got := Rank(scores, labels)
	want := []string{"Happy", "Neutral", "Angry", "Sad"}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Label != name {
			t.Errorf("rank %d: got %q, want %q", i, got[i].Label, name)
		}
	}
	if got[0].Percent != "50.0%" {
		t.Errorf("percent: got %q", got[0].Percent)
	}
}

func TestClassifierFunc(t *testing.T) {
	var normalized bool
	var c Classifier = ClassifierFunc(func(ctx context.Context, img image.Image, normalize bool) (Scores, error) {
		normalized = normalize
		return Scores{"Happy": 1}, nil
	})

	scores, err := c.Classify(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4)), true)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if !normalized {
		t.Error("normalize flag not forwarded")
	}
	if scores["Happy"] != 1 {
		t.Errorf("got %v", scores)
	}
}

func TestSoftmax(t *testing.T) {
	out := softmax([]float64{1, 2, 3})
	sum := 0.0
	for _, v := range out {
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("sum = %v, want 1", sum)
	}
	if !(out[2] > out[1] && out[1] > out[0]) {
		t.Errorf("order not preserved: %v", out)
	}
}

func TestNewNetClassifierMissingModel(t *testing.T) {
	cfg := DefaultNetConfig()
	cfg.ModelPath = "/nonexistent/model.onnx"

	_, err := NewNetClassifier(cfg, DefaultLabels())
	if !errors.Is(err, ErrModelNotFound) {
		t.Errorf("got %v, want ErrModelNotFound", err)
	}
}
