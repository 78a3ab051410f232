package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/epsim/core/telemetry"
	"github.com/kilianp07/epsim/infra/mqtt"
)

// EnvPrefix marks environment variables that override file values.
// EPS_RUN__TIMESTEP_SECONDS=5 sets run.timestep_seconds.
const EnvPrefix = "EPS_"

type Config struct {
	EPS       EPSConfig        `json:"eps"`
	Run       RunConfig        `json:"run"`
	Telemetry telemetry.Config `json:"telemetry"`
	MQTT      mqtt.Config      `json:"mqtt"`
	Logging   LoggingConfig    `json:"logging"`
}

// Load reads the file at path, applies environment overrides, fills defaults
// and validates every section. An empty path loads the environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.EPS.SetDefaults()
	c.Run.SetDefaults()
	c.MQTT.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.EPS.Validate(); err != nil {
		return fmt.Errorf("eps: %w", err)
	}
	if err := c.Run.Validate(); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	if err := validateTelemetry(c.Telemetry); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	if err := c.MQTT.Validate(); err != nil {
		return err
	}
	return c.Logging.Validate()
}

func validateTelemetry(c telemetry.Config) error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("sinks[%d].type is required", i)
		}
	}
	return nil
}
