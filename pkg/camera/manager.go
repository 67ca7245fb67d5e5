package camera

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Manager holds the current camera configuration and handles updates.
type Manager struct {
	config Config
	mu     sync.RWMutex

	// Callback when config changes (for reopening the source)
	OnConfigChange func(cfg Config) error
}

// NewManager creates a new camera manager with the given config.
func NewManager(cfg Config) *Manager {
	return &Manager{
		config: cfg,
	}
}

// GetConfig returns the current camera configuration.
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Mirrored reports whether the current camera faces the user.
func (m *Manager) Mirrored() bool {
	cfg := m.GetConfig()
	return cfg.Mirrored()
}

// SetConfig updates the camera configuration.
func (m *Manager) SetConfig(cfg Config) error {
	if errors := cfg.Validate(); len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}

	m.mu.Lock()
	m.config = cfg
	callback := m.OnConfigChange
	m.mu.Unlock()

	if callback != nil {
		if err := callback(cfg); err != nil {
			return fmt.Errorf("failed to apply config: %w", err)
		}
	}

	return nil
}

// SwitchFacing toggles between the front and back camera.
func (m *Manager) SwitchFacing() (Config, error) {
	cfg := m.GetConfig()
	if cfg.Facing == FacingFront {
		cfg.Facing = FacingBack
	} else {
		cfg.Facing = FacingFront
	}
	return cfg, m.SetConfig(cfg)
}

// UpdateConfig updates specific fields of the configuration.
// Accepts a map of field names to values. "facing" also accepts "toggle".
func (m *Manager) UpdateConfig(params map[string]interface{}) error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	// Check for preset first
	if presetName, ok := params["preset"].(string); ok {
		preset := GetPreset(presetName)
		if preset == nil {
			return fmt.Errorf("unknown preset: %s", presetName)
		}
		// Keep where frames come from; presets only describe the capture.
		preset.Source, preset.Device = cfg.Source, cfg.Device
		cfg = *preset
	}

	for key, value := range params {
		switch key {
		case "source":
			if v, ok := value.(string); ok {
				cfg.Source = v
			}
		case "device":
			if v, ok := value.(string); ok {
				cfg.Device = v
			}
		case "width":
			if v, ok := toInt(value); ok {
				cfg.Width = v
			}
		case "height":
			if v, ok := toInt(value); ok {
				cfg.Height = v
			}
		case "framerate":
			if v, ok := toInt(value); ok {
				cfg.Framerate = v
			}
		case "rotation":
			if v, ok := toInt(value); ok {
				cfg.Rotation = v
			}
		case "facing":
			if v, ok := value.(string); ok {
				if v == "toggle" {
					if cfg.Facing == FacingFront {
						v = FacingBack
					} else {
						v = FacingFront
					}
				}
				cfg.Facing = v
			}
		case "loop":
			if v, ok := value.(bool); ok {
				cfg.Loop = v
			}
		}
	}

	return m.SetConfig(cfg)
}

// GetConfigJSON returns the current config as a map for JSON serialization.
func (m *Manager) GetConfigJSON() map[string]interface{} {
	cfg := m.GetConfig()

	data, _ := json.Marshal(cfg)
	var result map[string]interface{}
	json.Unmarshal(data, &result)
	result["mirrored"] = cfg.Mirrored()

	return result
}

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}
