package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load(New(), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	want := Default()
	if cfg.Camera != want.Camera {
		t.Errorf("camera = %+v, want %+v", cfg.Camera, want.Camera)
	}
	if cfg.Pipeline != want.Pipeline {
		t.Errorf("pipeline = %+v, want %+v", cfg.Pipeline, want.Pipeline)
	}
	if cfg.Detector != want.Detector {
		t.Errorf("detector = %+v, want %+v", cfg.Detector, want.Detector)
	}
	if cfg.Canvas.Width != 480 || cfg.Canvas.Height != 800 {
		t.Errorf("canvas = %+v", cfg.Canvas)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "moodcam.yaml")
	yaml := `
camera:
  width: 1280
  height: 720
  facing: back
pipeline:
  inflate: 1.2
  render_mode: primary
mqtt:
  broker: tcp://broker:1883
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MOODCAM_CAMERA_FRAMERATE", "15")
	t.Setenv("MOODCAM_DETECTOR_BACKEND", "pigo")

	cfg, err := Load(New(), path, nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"file width", cfg.Camera.Width, 1280},
		{"file facing", cfg.Camera.Facing, "back"},
		{"default rotation kept", cfg.Camera.Rotation, 0},
		{"file inflate", cfg.Pipeline.Inflate, 1.2},
		{"file render mode", string(cfg.Pipeline.RenderMode), "primary"},
		{"file broker", cfg.MQTT.Broker, "tcp://broker:1883"},
		{"env framerate", cfg.Camera.Framerate, 15},
		{"env backend", cfg.Detector.Backend, "pigo"},
		{"default topic kept", cfg.MQTT.Topic, "moodcam/snapshot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoadFlags(t *testing.T) {
	chdir(t, t.TempDir())

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("source", "webcam", "")
	flags.Int("width", 640, "")
	Flag(flags, "source", "camera.source")
	Flag(flags, "width", "camera.width")
	if err := flags.Parse([]string{"--source", "replay"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(New(), "", flags)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Camera.Source != "replay" {
		t.Errorf("source = %q, want replay", cfg.Camera.Source)
	}
	// Unset flags fall back to defaults rather than the flag default.
	if cfg.Camera.Width != 640 {
		t.Errorf("width = %d, want 640", cfg.Camera.Width)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("camera:\n  rotation: 45\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing explicit file", filepath.Join(dir, "nope.yaml")},
		{"invalid value", bad},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(New(), tt.path, nil); err == nil {
				t.Error("expected error")
			}
		})
	}
}

// chdir is the Go 1.21 equivalent of testing.T.Chdir.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}
