package yamlconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Ping rounding policies accepted in speed.ping_rounding
const (
	PingRoundingInteger     = "integer"
	PingRoundingTwoDecimals = "two_decimals"
)

// Config represents the application configuration
type Config struct {
	// Server settings
	Server ServerConfig `yaml:"server" json:"server"`
	// Task list settings
	Tasks TasksConfig `yaml:"tasks" json:"tasks"`
	// Speed test settings
	Speed SpeedConfig `yaml:"speed" json:"speed"`
}

// ServerConfig represents web server settings
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// TasksConfig represents task store settings
type TasksConfig struct {
	File string `yaml:"file" json:"file"`
	// MaxTasks caps the list length; 0 means unbounded.
	MaxTasks int `yaml:"max_tasks" json:"max_tasks"`
}

// SpeedConfig represents speed measurement settings
type SpeedConfig struct {
	PingRounding    string `yaml:"ping_rounding" json:"ping_rounding"`
	TimeoutSeconds  int    `yaml:"timeout_seconds" json:"timeout_seconds"`
	CooldownSeconds int    `yaml:"cooldown_seconds" json:"cooldown_seconds"`
	Candidates      int    `yaml:"candidates" json:"candidates"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Tasks: TasksConfig{
			File:     "tasks.json",
			MaxTasks: 7,
		},
		Speed: SpeedConfig{
			PingRounding:    PingRoundingInteger,
			TimeoutSeconds:  120,
			CooldownSeconds: 0,
			Candidates:      5,
		},
	}
}

// Load loads configuration from file, creates default if not exists
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); err == nil {
		return loadFromFile(configPath)
	} else if os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := Save(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	} else {
		return nil, fmt.Errorf("failed to check config file: %w", err)
	}
}

// LoadAndValidate loads the configuration and rejects invalid values
func LoadAndValidate(configPath string) (*Config, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// keys absent from the file keep their default values
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	mergeWithDefaults(cfg)

	return cfg, nil
}

// mergeWithDefaults restores defaults for strings written out as empty.
// Numeric fields are kept as written: 0 is meaningful for max_tasks, timeout and cooldown.
func mergeWithDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaults.Server.Addr
	}
	if cfg.Tasks.File == "" {
		cfg.Tasks.File = defaults.Tasks.File
	}
	if cfg.Speed.PingRounding == "" {
		cfg.Speed.PingRounding = defaults.Speed.PingRounding
	}
}

// Validate checks the configuration for invalid values
func (cfg *Config) Validate() error {
	if cfg.Tasks.MaxTasks < 0 {
		return fmt.Errorf("tasks.max_tasks must be >= 0, got %d", cfg.Tasks.MaxTasks)
	}
	switch cfg.Speed.PingRounding {
	case PingRoundingInteger, PingRoundingTwoDecimals:
	default:
		return fmt.Errorf("speed.ping_rounding must be %q or %q, got %q",
			PingRoundingInteger, PingRoundingTwoDecimals, cfg.Speed.PingRounding)
	}
	if cfg.Speed.TimeoutSeconds < 0 {
		return fmt.Errorf("speed.timeout_seconds must be >= 0, got %d", cfg.Speed.TimeoutSeconds)
	}
	if cfg.Speed.CooldownSeconds < 0 {
		return fmt.Errorf("speed.cooldown_seconds must be >= 0, got %d", cfg.Speed.CooldownSeconds)
	}
	if cfg.Speed.Candidates < 1 {
		return fmt.Errorf("speed.candidates must be >= 1, got %d", cfg.Speed.Candidates)
	}
	return nil
}

// Save saves configuration to YAML file
func Save(configPath string, cfg *Config) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// TasksPath resolves the task file against baseDir when it is relative
func (cfg *Config) TasksPath(baseDir string) string {
	if filepath.IsAbs(cfg.Tasks.File) {
		return cfg.Tasks.File
	}
	return filepath.Join(baseDir, cfg.Tasks.File)
}
