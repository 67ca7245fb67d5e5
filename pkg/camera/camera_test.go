package camera

import (
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	for _, name := range PresetNames() {
		t.Run(name, func(t *testing.T) {
			cfg := GetPreset(name)
			if cfg == nil {
				t.Fatalf("preset %q missing", name)
			}
			if errs := cfg.Validate(); len(errs) > 0 {
				t.Errorf("preset %q invalid: %v", name, errs)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errors int
	}{
		{"default", func(c *Config) {}, 0},
		{"bad source", func(c *Config) { c.Source = "usb" }, 1},
		{"too narrow", func(c *Config) { c.Width = 10 }, 1},
		{"too tall", func(c *Config) { c.Height = 5000 }, 1},
		{"zero fps", func(c *Config) { c.Framerate = 0 }, 1},
		{"bad facing", func(c *Config) { c.Facing = "left" }, 1},
		{"bad rotation", func(c *Config) { c.Rotation = 45 }, 1},
		{"two problems", func(c *Config) { c.Rotation = 45; c.Facing = "" }, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if got := len(cfg.Validate()); got != tt.errors {
				t.Errorf("Validate() returned %d errors, want %d: %v", got, tt.errors, cfg.Validate())
			}
		})
	}
}

func TestMirrored(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.Mirrored() {
		t.Error("front camera should be mirrored")
	}
	cfg = BackConfig()
	if cfg.Mirrored() {
		t.Error("back camera should not be mirrored")
	}
}

func TestManagerUpdateConfig(t *testing.T) {
	m := NewManager(DefaultConfig())

	var applied []Config
	m.OnConfigChange = func(cfg Config) error {
		applied = append(applied, cfg)
		return nil
	}

	if err := m.UpdateConfig(map[string]interface{}{"width": float64(1280), "height": 720}); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	cfg := m.GetConfig()
	if cfg.Width != 1280 || cfg.Height != 720 {
		t.Errorf("size = %dx%d, want 1280x720", cfg.Width, cfg.Height)
	}

	if err := m.UpdateConfig(map[string]interface{}{"facing": "toggle"}); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if m.Mirrored() {
		t.Error("toggle from front should give back")
	}

	if err := m.UpdateConfig(map[string]interface{}{"rotation": 45}); err == nil {
		t.Error("invalid rotation accepted")
	}
	if m.GetConfig().Rotation != 0 {
		t.Error("rejected update changed config")
	}

	if len(applied) != 2 {
		t.Errorf("OnConfigChange called %d times, want 2", len(applied))
	}
}

func TestManagerPreset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Source = SourceReplay
	cfg.Device = "/tmp/faces"
	m := NewManager(cfg)

	if err := m.UpdateConfig(map[string]interface{}{"preset": PresetVGAPortrait}); err != nil {
		t.Fatalf("preset: %v", err)
	}
	got := m.GetConfig()
	if got.Width != 480 || got.Height != 640 || got.Rotation != 0 {
		t.Errorf("portrait preset not applied: %+v", got)
	}
	if got.Source != SourceReplay || got.Device != "/tmp/faces" {
		t.Errorf("preset replaced the source: %+v", got)
	}

	if err := m.UpdateConfig(map[string]interface{}{"preset": "nope"}); err == nil {
		t.Error("unknown preset accepted")
	}
}

func TestRotationPresets(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		rotation int
	}{
		{"webcam default is upright", DefaultConfig(), 0},
		{"phone sensor is sideways", *GetPreset(PresetPhone), 90},
		{"portrait capture is upright", *GetPreset(PresetVGAPortrait), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.cfg.Rotation != tt.rotation {
				t.Errorf("rotation = %d, want %d", tt.cfg.Rotation, tt.rotation)
			}
		})
	}
}

func TestSwitchFacing(t *testing.T) {
	m := NewManager(DefaultConfig())
	cfg, err := m.SwitchFacing()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Facing != FacingBack {
		t.Errorf("facing = %s, want back", cfg.Facing)
	}
	cfg, _ = m.SwitchFacing()
	if cfg.Facing != FacingFront {
		t.Errorf("facing = %s, want front", cfg.Facing)
	}
}

func TestGetConfigJSON(t *testing.T) {
	m := NewManager(DefaultConfig())
	data := m.GetConfigJSON()
	if data["width"] != float64(640) {
		t.Errorf("width = %v", data["width"])
	}
	if data["mirrored"] != true {
		t.Errorf("mirrored = %v", data["mirrored"])
	}
}

func TestOpenUnknownSource(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Source = "usb"
	if _, err := Open(cfg); err == nil {
		t.Error("Open accepted unknown source")
	}
}
