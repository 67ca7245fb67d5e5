// Package camera provides runtime-configurable camera settings and the
// frame sources that feed the analyzer.
package camera

import "fmt"

// Source kinds.
const (
	SourceWebcam = "webcam" // Local capture device through OpenCV
	SourceStream = "stream" // Remote websocket pushing I420 frames
	SourceReplay = "replay" // Directory of still images
)

// Camera facing.
const (
	FacingFront = "front"
	FacingBack  = "back"
)

// Config holds all camera configuration parameters.
// These can be modified via the camera API at runtime.
type Config struct {
	Source string `json:"source" mapstructure:"source"`
	// Device is the capture index or path (webcam), the ws:// URL (stream)
	// or the image directory (replay).
	Device string `json:"device" mapstructure:"device"`

	// === Resolution ===
	Width     int `json:"width" mapstructure:"width"`         // Frame width in pixels
	Height    int `json:"height" mapstructure:"height"`       // Frame height in pixels
	Framerate int `json:"framerate" mapstructure:"framerate"` // Target FPS

	// === Orientation ===
	// Facing decides mirroring of the overlay. Values: "front", "back"
	Facing string `json:"facing" mapstructure:"facing"`

	// Rotation is the clockwise rotation in degrees (0, 90, 180, 270)
	// that makes frames upright. Stream sources send their own.
	Rotation int `json:"rotation" mapstructure:"rotation"`

	// Loop restarts a replay source at the end of the directory.
	Loop bool `json:"loop" mapstructure:"loop"`
}

// Capture limits.
const (
	MinWidth     = 160
	MinHeight    = 120
	MaxWidth     = 3840
	MaxHeight    = 2160
	MaxFramerate = 120
)

// DefaultConfig returns a 640x480 front webcam. Desktop webcams deliver
// upright frames, so no rotation is applied.
func DefaultConfig() Config {
	return Config{
		Source:    SourceWebcam,
		Device:    "0",
		Width:     640,
		Height:    480,
		Framerate: 30,
		Facing:    FacingFront,
		Rotation:  0,
	}
}

// Mirrored reports whether the overlay must be flipped horizontally.
func (c *Config) Mirrored() bool {
	return c.Facing == FacingFront
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	validSources := map[string]bool{SourceWebcam: true, SourceStream: true, SourceReplay: true}
	if !validSources[c.Source] {
		errors = append(errors, "source must be webcam, stream, or replay")
	}

	// Resolution
	if c.Width < MinWidth || c.Width > MaxWidth {
		errors = append(errors, fmt.Sprintf("width must be between %d and %d", MinWidth, MaxWidth))
	}
	if c.Height < MinHeight || c.Height > MaxHeight {
		errors = append(errors, fmt.Sprintf("height must be between %d and %d", MinHeight, MaxHeight))
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, fmt.Sprintf("framerate must be between 1 and %d", MaxFramerate))
	}

	if c.Facing != FacingFront && c.Facing != FacingBack {
		errors = append(errors, "facing must be front or back")
	}

	switch c.Rotation {
	case 0, 90, 180, 270:
	default:
		errors = append(errors, "rotation must be 0, 90, 180, or 270")
	}

	return errors
}

// Capabilities describes accepted configuration values.
func Capabilities() map[string]interface{} {
	return map[string]interface{}{
		"sources":       []string{SourceWebcam, SourceStream, SourceReplay},
		"facings":       []string{FacingFront, FacingBack},
		"rotations":     []int{0, 90, 180, 270},
		"max_width":     MaxWidth,
		"max_height":    MaxHeight,
		"max_framerate": MaxFramerate,
		"presets":       PresetNames(),
	}
}
