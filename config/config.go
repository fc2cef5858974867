package config

import (
	"io/ioutil"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ModelEntry describes a model to load at startup and the clip to start
// playing on it.
type ModelEntry struct {
	Path         string  `yaml:"path"`
	Animation    string  `yaml:"animation,omitempty"`
	Loop         bool    `yaml:"loop,omitempty"`
	BlendSeconds float32 `yaml:"blend_seconds,omitempty"`
}

type Config struct {
	Listen     string       `yaml:"listen"`
	FrameRate  int          `yaml:"frame_rate"`
	WebDir     string       `yaml:"web_dir"`
	DumpModels bool         `yaml:"dump_models,omitempty"`
	Models     []ModelEntry `yaml:"models,omitempty"`
}

func Default() Config {
	return Config{
		Listen:    ":8000",
		FrameRate: 60,
		WebDir:    "web",
	}
}

// FromFile loads a YAML config, with defaults filled in for omitted fields.
func FromFile(path string) (Config, error) {
	cfg := Default()

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "Failed to read config %q", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "Failed to parse config %q", path)
	}

	if cfg.FrameRate <= 0 {
		cfg.FrameRate = 60
	}
	if cfg.Listen == "" {
		cfg.Listen = ":8000"
	}

	return cfg, nil
}
