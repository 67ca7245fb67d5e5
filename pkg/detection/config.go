package detection

import "fmt"

// Backend names accepted by New.
const (
	BackendYuNet = "yunet"
	BackendPigo  = "pigo"
)

// Config holds detector configuration
type Config struct {
	Backend          string  `mapstructure:"backend" json:"backend"`
	ModelPath        string  `mapstructure:"model_path" json:"model_path"` // ONNX model (yunet) or cascade file (pigo)
	ConfidenceThresh float64 `mapstructure:"confidence" json:"confidence"` // Minimum confidence (default 0.5)

	// YuNet
	InputWidth  int     `mapstructure:"input_width" json:"input_width"`
	InputHeight int     `mapstructure:"input_height" json:"input_height"`
	NMSThresh   float64 `mapstructure:"nms" json:"nms"`
	TopK        int     `mapstructure:"top_k" json:"top_k"`

	// Pigo
	MinSize     int     `mapstructure:"min_size" json:"min_size"`
	MaxSize     int     `mapstructure:"max_size" json:"max_size"`
	ShiftFactor float64 `mapstructure:"shift_factor" json:"shift_factor"`
	ScaleFactor float64 `mapstructure:"scale_factor" json:"scale_factor"`
	IoUThresh   float64 `mapstructure:"iou" json:"iou"`
	Quality     float32 `mapstructure:"quality" json:"quality"` // Minimum cascade score
}

// DefaultConfig returns production defaults for YuNet
func DefaultConfig() Config {
	return Config{
		Backend:          BackendYuNet,
		ModelPath:        "models/face_detection_yunet.onnx",
		ConfidenceThresh: 0.5,
		InputWidth:       320,
		InputHeight:      320,
		NMSThresh:        0.3,
		TopK:             5000,

		MinSize:     40,
		MaxSize:     1000,
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		IoUThresh:   0.2,
		Quality:     5.0,
	}
}

// DefaultPigoConfig returns defaults for the pigo cascade backend.
func DefaultPigoConfig() Config {
	cfg := DefaultConfig()
	cfg.Backend = BackendPigo
	cfg.ModelPath = "models/facefinder"
	return cfg
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	switch c.Backend {
	case BackendYuNet:
		if c.InputWidth <= 0 || c.InputHeight <= 0 {
			errors = append(errors, "input_width and input_height must be positive")
		}
		if c.NMSThresh < 0 || c.NMSThresh > 1 {
			errors = append(errors, "nms must be between 0 and 1")
		}
	case BackendPigo:
		if c.MinSize <= 0 || c.MaxSize < c.MinSize {
			errors = append(errors, "min_size must be positive and <= max_size")
		}
		if c.ShiftFactor <= 0 || c.ShiftFactor > 1 {
			errors = append(errors, "shift_factor must be between 0 and 1")
		}
		if c.ScaleFactor <= 1 {
			errors = append(errors, "scale_factor must be greater than 1")
		}
	default:
		errors = append(errors, fmt.Sprintf("backend must be %s or %s", BackendYuNet, BackendPigo))
	}

	if c.ModelPath == "" {
		errors = append(errors, "model_path is required")
	}
	if c.ConfidenceThresh < 0 || c.ConfidenceThresh > 1 {
		errors = append(errors, "confidence must be between 0 and 1")
	}

	return errors
}

// New creates the detector backend named by cfg.Backend.
func New(cfg Config) (Detector, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, errs)
	}

	switch cfg.Backend {
	case BackendPigo:
		return NewPigo(cfg)
	default:
		return NewYuNet(cfg)
	}
}
