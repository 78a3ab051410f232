package config

import (
	"fmt"

	corelogger "github.com/kilianp07/epsim/core/logger"
)

// LoggingConfig sets the process log threshold.
type LoggingConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `json:"level"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = string(corelogger.LevelInfo)
	}
}

// Validate checks mandatory fields.
func (c LoggingConfig) Validate() error {
	switch corelogger.Level(c.Level) {
	case corelogger.LevelDebug, corelogger.LevelInfo, corelogger.LevelWarn, corelogger.LevelError:
		return nil
	}
	return fmt.Errorf("unknown log level %s", c.Level)
}
