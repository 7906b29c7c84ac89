package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ErrInvalidConfig is returned by Load when the configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// EnvPrefix is the prefix for environment overrides, e.g.
// CISAUDIT_AWS_DEFAULT_REGION.
const EnvPrefix = "CISAUDIT"

// Config is the top-level application configuration.
// It is loaded from ~/.config/cisaudit/config.yaml and must never be
// committed with real secrets.
type Config struct {
	AWS     AWSConfig     `mapstructure:"aws"`
	Log     LogConfig     `mapstructure:"log"`
	Policy  PolicyConfig  `mapstructure:"policy"`
	Cleanup CleanupConfig `mapstructure:"cleanup"`
	Audit   AuditConfig   `mapstructure:"audit"`
}

// AWSConfig holds AWS-specific defaults used when flags are not provided.
type AWSConfig struct {
	// DefaultRegion is the home region for global services (IAM, S3,
	// CloudTrail) when the profile has none. Empty falls back to us-east-1.
	DefaultRegion string `mapstructure:"default_region"`

	// DefaultProfile is used when no --profile flag is provided.
	DefaultProfile string `mapstructure:"default_profile"`

	// Regions restricts audits to these regions when --region is not set.
	Regions []string `mapstructure:"regions"`
}

// LogConfig configures the zerolog logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | console
}

// PolicyConfig points at the rule policy file.
type PolicyConfig struct {
	Path string `mapstructure:"path"`
}

// AuditConfig tunes collection.
type AuditConfig struct {
	// BucketConcurrency bounds parallel S3 bucket inspection.
	BucketConcurrency int `mapstructure:"bucket_concurrency"`
}

// CleanupConfig holds the image filters and retention defaults.
type CleanupConfig struct {
	ImageNamePatterns      []string `mapstructure:"image_name_patterns"`
	ImageDescriptionTags   []string `mapstructure:"image_description_tags"`
	SnapshotDescriptionTag []string `mapstructure:"snapshot_description_tags"`
	Retain                 int      `mapstructure:"retain"`
	KeepWindowDays         int      `mapstructure:"keep_window_days"`
	VolumeDays             int      `mapstructure:"volume_days"`
	SnapshotOrphanDays     int      `mapstructure:"snapshot_orphan_days"`
}

// DefaultPath returns ~/.config/cisaudit/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "cisaudit", "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("aws.default_region", "")
	v.SetDefault("aws.default_profile", "")
	v.SetDefault("aws.regions", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("policy.path", "./cisaudit.yaml")
	v.SetDefault("audit.bucket_concurrency", 8)
	v.SetDefault("cleanup.image_name_patterns", []string{"*RHEL-*"})
	v.SetDefault("cleanup.image_description_tags", []string{"packer*", "*RHEL*", "Spel*"})
	v.SetDefault("cleanup.snapshot_description_tags", []string{"*RHEL*", "packer image*"})
	v.SetDefault("cleanup.retain", 10)
	v.SetDefault("cleanup.keep_window_days", 0)
	v.SetDefault("cleanup.volume_days", 1096)
	v.SetDefault("cleanup.snapshot_orphan_days", 0)
}

// Load reads the config file at path. An empty path tries DefaultPath; a
// missing default file is not an error and yields the defaults. Environment
// variables with the CISAUDIT_ prefix override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			_, statErr := os.Stat(path)
			if explicit || !os.IsNotExist(statErr) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, fmt.Errorf("log.format: %q must be json or console", c.Log.Format))
	}
	if c.Audit.BucketConcurrency < 1 {
		errs = append(errs, fmt.Errorf("audit.bucket_concurrency: must be >= 1, got %d", c.Audit.BucketConcurrency))
	}
	if c.Cleanup.Retain < 1 {
		errs = append(errs, fmt.Errorf("cleanup.retain: must be >= 1, got %d", c.Cleanup.Retain))
	}
	if c.Cleanup.VolumeDays < 1 {
		errs = append(errs, fmt.Errorf("cleanup.volume_days: must be >= 1, got %d", c.Cleanup.VolumeDays))
	}
	if c.Cleanup.KeepWindowDays < 0 || c.Cleanup.SnapshotOrphanDays < 0 {
		errs = append(errs, errors.New("cleanup: day windows must not be negative"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrInvalidConfig, errors.Join(errs...))
}
