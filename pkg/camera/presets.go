package camera

// Preset names for common configurations
const (
	PresetVGA         = "vga"
	PresetVGAPortrait = "vga-portrait"
	PresetPhone       = "phone"
	PresetBack        = "back"
	Preset720p        = "720p"
	PresetLowPower    = "lowpower"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetVGA:         DefaultConfig(),
		PresetVGAPortrait: PortraitConfig(),
		PresetPhone:       PhoneConfig(),
		PresetBack:        BackConfig(),
		Preset720p:        HD720Config(),
		PresetLowPower:    LowPowerConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetVGA,
		PresetVGAPortrait,
		PresetPhone,
		PresetBack,
		Preset720p,
		PresetLowPower,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	presets := Presets()
	if cfg, ok := presets[name]; ok {
		return &cfg
	}
	return nil
}

// PortraitConfig returns a 480x640 capture that is already upright.
func PortraitConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 480
	cfg.Height = 640
	return cfg
}

// PhoneConfig returns a 640x480 front camera mounted sideways, as on a
// phone held upright: frames need a 90 degree turn.
func PhoneConfig() Config {
	cfg := DefaultConfig()
	cfg.Rotation = 90
	return cfg
}

// BackConfig returns the rear camera, which is not mirrored.
func BackConfig() Config {
	cfg := DefaultConfig()
	cfg.Facing = FacingBack
	return cfg
}

// HD720Config returns 720p HD configuration.
// Better for small faces, higher CPU usage.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// LowPowerConfig trades resolution and rate for CPU.
func LowPowerConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 320
	cfg.Height = 240
	cfg.Framerate = 10
	return cfg
}
