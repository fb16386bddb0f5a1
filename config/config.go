package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Labflow     LabflowConfig      `yaml:"labflow"`
	Bus         BusConfig          `yaml:"bus"`
	Statistics  StatisticsConfig   `yaml:"statistics"`
	Export      ExportConfig       `yaml:"export"`
	Logging     LoggingConfig      `yaml:"logging"`
	Instruments []InstrumentConfig `yaml:"instruments"`
}

type LabflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type BusConfig struct {
	Timeout              time.Duration `yaml:"timeout"`
	ConnectTimeout       time.Duration `yaml:"connect_timeout"`
	MaxAttempts          int           `yaml:"max_attempts"`
	CommandsPerSecond    int           `yaml:"commands_per_second"`
	DrainErrorQueue      bool          `yaml:"drain_error_queue"`
	AllowGenericFallback bool          `yaml:"allow_generic_fallback"`
}

type StatisticsConfig struct {
	Samples int           `yaml:"samples"`
	Delay   time.Duration `yaml:"delay"`
}

type ExportConfig struct {
	Directory string `yaml:"directory"`
}

type InstrumentConfig struct {
	Nickname  string       `yaml:"nickname"`
	Resource  string       `yaml:"resource"`
	Transport string       `yaml:"transport"`
	Model     string       `yaml:"model"`
	Serial    SerialConfig `yaml:"serial"`
}

type SerialConfig struct {
	Baud        int           `yaml:"baud"`
	Terminator  string        `yaml:"terminator"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

type LoggingConfig struct {
	Level  string                 `yaml:"level"`
	Format string                 `yaml:"format"`
	Output string                 `yaml:"output"`
	MaxAge int                    `yaml:"max_age"`
	Fields map[string]interface{} `yaml:"fields"`
}

// defaultConfigPath is the path main falls back to; environment specific
// variants next to it take precedence when APP_ENV selects one.
const defaultConfigPath = "config/config.yml"

var envConfigPaths = map[string]string{
	environmentProduction: "config/config.production.yml",
	environmentStaging:    "config/config.staging.yml",
}

func LoadConfig(path string) (*Config, error) {
	path = resolveEnvSpecificPath(path, defaultConfigPath, envConfigPaths)

	// Read configuration file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Bus: BusConfig{
			Timeout:           5 * time.Second,
			ConnectTimeout:    3 * time.Second,
			MaxAttempts:       3,
			CommandsPerSecond: 20,
			DrainErrorQueue:   true,
		},
		Statistics: StatisticsConfig{
			Samples: 10,
			Delay:   100 * time.Millisecond,
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override export directory from the environment if available
	if v := os.Getenv("LABFLOW_EXPORT_DIR"); v != "" {
		config.Export.Directory = strings.TrimSpace(v)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Labflow.Name == "" {
		return fmt.Errorf("labflow.name is required")
	}

	if cfg.Labflow.Version == "" {
		return fmt.Errorf("labflow.version is required")
	}

	if cfg.Bus.Timeout <= 0 {
		return fmt.Errorf("bus.timeout must be greater than 0")
	}
	if cfg.Bus.MaxAttempts <= 0 {
		return fmt.Errorf("bus.max_attempts must be greater than 0")
	}
	if cfg.Bus.CommandsPerSecond <= 0 {
		return fmt.Errorf("bus.commands_per_second must be greater than 0")
	}

	if cfg.Statistics.Samples <= 0 {
		return fmt.Errorf("statistics.samples must be greater than 0")
	}

	seen := map[string]bool{}
	for i, inst := range cfg.Instruments {
		if inst.Nickname == "" {
			return fmt.Errorf("instruments[%d].nickname is required", i)
		}
		if !isValidNickname(inst.Nickname) {
			return fmt.Errorf("instruments[%d].nickname '%s' is invalid", i, inst.Nickname)
		}
		if seen[inst.Nickname] {
			return fmt.Errorf("instruments[%d].nickname '%s' is duplicated", i, inst.Nickname)
		}
		seen[inst.Nickname] = true

		if inst.Resource == "" {
			return fmt.Errorf("instruments[%d].resource is required", i)
		}
		switch inst.Transport {
		case "tcp":
		case "serial":
			// Serial instruments cannot answer *IDN?, so the model must be
			// declared up front.
			if inst.Model == "" {
				return fmt.Errorf("instruments[%d].model is required for serial transport", i)
			}
		default:
			return fmt.Errorf("instruments[%d].transport must be 'tcp' or 'serial'", i)
		}
	}

	return nil
}

var nicknameRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

func isValidNickname(name string) bool {
	if len(name) < 2 || len(name) > 63 {
		return false
	}
	return nicknameRegexp.MatchString(name)
}
