// Package config loads moodcam configuration from defaults, an optional
// YAML file, MOODCAM_* environment variables and command-line flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/teslashibe/go-moodcam/pkg/camera"
	"github.com/teslashibe/go-moodcam/pkg/detection"
	"github.com/teslashibe/go-moodcam/pkg/emotions"
	"github.com/teslashibe/go-moodcam/pkg/overlay"
	"github.com/teslashibe/go-moodcam/pkg/pipeline"
	"github.com/teslashibe/go-moodcam/pkg/publish"
	"github.com/teslashibe/go-moodcam/pkg/still"
)

// EnvPrefix is prepended to environment variable names:
// MOODCAM_CAMERA_WIDTH overrides camera.width.
const EnvPrefix = "MOODCAM"

// Web holds dashboard server settings.
type Web struct {
	Addr   string `mapstructure:"addr" json:"addr"`
	Static string `mapstructure:"static" json:"static"` // Directory served at /, empty disables
}

// Models holds model download settings.
type Models struct {
	CacheDir string `mapstructure:"cache_dir" json:"cache_dir"`
}

// Config is the complete moodcam configuration.
type Config struct {
	LogLevel   string             `mapstructure:"log_level" json:"log_level"`
	Detector   detection.Config   `mapstructure:"detector" json:"detector"`
	Classifier emotions.NetConfig `mapstructure:"classifier" json:"classifier"`
	Camera     camera.Config      `mapstructure:"camera" json:"camera"`
	Pipeline   pipeline.Config    `mapstructure:"pipeline" json:"pipeline"`
	Still      still.Config       `mapstructure:"still" json:"still"`
	Canvas     overlay.Size       `mapstructure:"canvas" json:"canvas"` // Portrait display the overlay is drawn on
	Web        Web                `mapstructure:"web" json:"web"`
	MQTT       publish.Config     `mapstructure:"mqtt" json:"mqtt"`
	Models     Models             `mapstructure:"models" json:"models"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:   "info",
		Detector:   detection.DefaultConfig(),
		Classifier: emotions.DefaultNetConfig(),
		Camera:     camera.DefaultConfig(),
		Pipeline:   pipeline.DefaultConfig(),
		Still:      still.DefaultConfig(),
		Canvas:     overlay.Size{Width: 480, Height: 800},
		Web:        Web{Addr: ":8080"},
		MQTT:       publish.DefaultConfig(),
		Models:     Models{CacheDir: "models/cache"},
	}
}

// Validate collects problems from every section.
func (c *Config) Validate() error {
	var problems []string
	add := func(section string, errs []string) {
		for _, e := range errs {
			problems = append(problems, section+": "+e)
		}
	}
	add("detector", c.Detector.Validate())
	add("camera", c.Camera.Validate())
	add("pipeline", c.Pipeline.Validate())
	if c.Canvas.Empty() {
		problems = append(problems, "canvas: width and height must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigName("moodcam")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/moodcam")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, Default())
	return v
}

// Load reads the config file (path, or moodcam.yaml in the search path if
// empty), binds flags and decodes everything into a Config. A missing
// moodcam.yaml is not an error; a missing explicit path is.
func Load(v *viper.Viper, path string, flags *pflag.FlagSet) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		if err := BindFlags(v, flags); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// BindFlags binds every flag that has a config key annotation, so that
// --camera-width sets camera.width. Flags are annotated with Flag.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		keys := f.Annotations[annotation]
		if len(keys) == 0 || err != nil {
			return
		}
		err = v.BindPFlag(keys[0], f)
	})
	return err
}

const annotation = "moodcam_config_key"

// Flag marks the named flag as the command-line override for key.
func Flag(flags *pflag.FlagSet, name, key string) {
	if err := flags.SetAnnotation(name, annotation, []string{key}); err != nil {
		panic(fmt.Sprintf("config: annotate flag %q: %v", name, err))
	}
}

// setDefaults registers every leaf of cfg so AutomaticEnv can override
// keys that are not in the config file.
func setDefaults(v *viper.Viper, cfg Config) {
	data, err := json.Marshal(cfg)
	if err != nil {
		panic(fmt.Sprintf("config: encode defaults: %v", err))
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(data, &tree); err != nil {
		panic(fmt.Sprintf("config: decode defaults: %v", err))
	}
	walk("", tree, v.SetDefault)
}

func walk(prefix string, tree map[string]interface{}, set func(string, interface{})) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]interface{}); ok {
			walk(key, sub, set)
			continue
		}
		set(key, val)
	}
}
