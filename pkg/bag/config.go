package bag

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config defines the recorder's disk-supervision behavior. The format
// itself is not configurable.
type Config struct {
	// DiskCheckInterval is the minimum time between free-space checks
	// while recording (default: 20s)
	DiskCheckInterval time.Duration `yaml:"disk_check_interval"`

	// MinFreeBytes disables writing when free space drops below it
	// (default: 1 GiB)
	MinFreeBytes uint64 `yaml:"min_free_bytes" validate:"required"`

	// WarnFreeBytes logs a warning when free space drops below it
	// (default: 5 GiB)
	WarnFreeBytes uint64 `yaml:"warn_free_bytes" validate:"gtefield=MinFreeBytes"`

	// WarnInterval rate-limits the "not logging" warning while writing
	// is disabled (default: 5s)
	WarnInterval time.Duration `yaml:"warn_interval"`
}

// DefaultConfig returns the recorder defaults.
func DefaultConfig() Config {
	return Config{
		DiskCheckInterval: 20 * time.Second,
		MinFreeBytes:      1 << 30,
		WarnFreeBytes:     5 << 30,
		WarnInterval:      5 * time.Second,
	}
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("bag config: %w", err)
	}
	if c.DiskCheckInterval <= 0 {
		return fmt.Errorf("bag config: disk_check_interval must be positive")
	}
	if c.WarnInterval <= 0 {
		return fmt.Errorf("bag config: warn_interval must be positive")
	}
	return nil
}

// UnmarshalYAML decodes the config, accepting Go duration strings for the
// interval fields and leaving absent fields untouched.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		DiskCheckInterval string  `yaml:"disk_check_interval"`
		MinFreeBytes      *uint64 `yaml:"min_free_bytes"`
		WarnFreeBytes     *uint64 `yaml:"warn_free_bytes"`
		WarnInterval      string  `yaml:"warn_interval"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	if raw.DiskCheckInterval != "" {
		d, err := time.ParseDuration(raw.DiskCheckInterval)
		if err != nil {
			return fmt.Errorf("disk_check_interval: %w", err)
		}
		c.DiskCheckInterval = d
	}
	if raw.WarnInterval != "" {
		d, err := time.ParseDuration(raw.WarnInterval)
		if err != nil {
			return fmt.Errorf("warn_interval: %w", err)
		}
		c.WarnInterval = d
	}
	if raw.MinFreeBytes != nil {
		c.MinFreeBytes = *raw.MinFreeBytes
	}
	if raw.WarnFreeBytes != nil {
		c.WarnFreeBytes = *raw.WarnFreeBytes
	}
	return nil
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
