// Package pipeline runs the per-frame face emotion analysis: detect faces,
// crop each one, classify it and publish a snapshot for the overlay.
package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/teslashibe/go-moodcam/pkg/detection"
	"github.com/teslashibe/go-moodcam/pkg/emotions"
	"github.com/teslashibe/go-moodcam/pkg/extract"
	"github.com/teslashibe/go-moodcam/pkg/overlay"
)

// State is the outcome of analyzing one frame.
type State string

const (
	StateIdle   State = "idle"    // Started, nothing analyzed yet
	StateFaces  State = "faces"   // At least one face classified
	StateNoFace State = "no_face" // Detector found nothing usable
	StateError  State = "error"   // Detector failed
)

// Status texts shown to the user.
const (
	StatusIdle   = "Point camera at a face"
	StatusNoFace = "No face detected"
	StatusError  = "Error detecting face"
)

// RenderMode selects how face results are summarized in Snapshot.Status.
type RenderMode string

const (
	// RenderSummary lists every face as "Face N: Label (NN.N%)".
	RenderSummary RenderMode = "summary"

	// RenderPrimary shows only the most prominent face.
	RenderPrimary RenderMode = "primary"
)

// FaceResult is the classification of one face in one frame.
type FaceResult struct {
	Index int `json:"index"` // 1-based

	// Box is the cropped region in upright frame coordinates.
	Box detection.Box `json:"box"`

	// SensorBox is Box in sensor orientation, for overlay mapping.
	SensorBox detection.Box `json:"sensor_box"`

	Label      string          `json:"label"`
	Confidence float64         `json:"confidence"`
	Text       string          `json:"text"` // "Label (NN.N%)"
	Scores     emotions.Scores `json:"scores,omitempty"`
}

// Snapshot is everything the overlay needs for one frame. AnalysisSize is
// captured together with Faces so they are never paired with another frame.
type Snapshot struct {
	FrameID      string        `json:"frame_id,omitempty"`
	State        State         `json:"state"`
	Status       string        `json:"status"`
	Faces        []FaceResult  `json:"faces"`
	AnalysisSize overlay.Size  `json:"analysis_size"` // Sensor orientation
	UprightSize  overlay.Size  `json:"upright_size"`
	Mirrored     bool          `json:"mirrored"`
	Error        string        `json:"error,omitempty"`
	At           time.Time     `json:"at"`
	Latency      time.Duration `json:"latency_ns"`
}

// Sink receives published snapshots. Publish runs on the analyzer's worker
// goroutine; while it runs the frame stays in flight and new frames are
// dropped. A panicking sink is logged and skipped.
type Sink interface {
	Publish(s Snapshot)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(s Snapshot)

// Publish calls f.
func (f SinkFunc) Publish(s Snapshot) { f(s) }

// Config holds analyzer settings
type Config struct {
	Inflate    float64           `mapstructure:"inflate" json:"inflate"`
	Normalize  bool              `mapstructure:"normalize" json:"normalize"`
	ColorMode  extract.ColorMode `mapstructure:"color_mode" json:"color_mode"`
	RenderMode RenderMode        `mapstructure:"render_mode" json:"render_mode"`
}

// DefaultConfig returns the live camera defaults.
func DefaultConfig() Config {
	return Config{
		Inflate:    extract.LiveInflate,
		Normalize:  true,
		ColorMode:  extract.ModeGray,
		RenderMode: RenderSummary,
	}
}

// Validate checks if the config values are within valid ranges.
func (c *Config) Validate() []string {
	var errors []string
	if c.Inflate < 1 || c.Inflate > 4 {
		errors = append(errors, "inflate must be between 1.0 and 4.0")
	}
	if _, err := extract.ParseColorMode(string(c.ColorMode)); err != nil {
		errors = append(errors, "color_mode must be gray or color")
	}
	switch c.RenderMode {
	case "", RenderSummary, RenderPrimary:
	default:
		errors = append(errors, "render_mode must be summary or primary")
	}
	return errors
}

// Summarize builds the status text for a list of faces.
func Summarize(faces []FaceResult, mode RenderMode) string {
	if len(faces) == 0 {
		return StatusNoFace
	}

	if mode == RenderPrimary {
		boxes := make([]detection.Box, len(faces))
		for i, f := range faces {
			boxes[i] = f.Box
		}
		return faces[detection.BestIndex(boxes)].Text
	}

	lines := make([]string, len(faces))
	for i, f := range faces {
		lines[i] = fmt.Sprintf("Face %d: %s", f.Index, f.Text)
	}
	return strings.Join(lines, "\n")
}
