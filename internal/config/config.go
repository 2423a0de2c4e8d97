// Package config provides configuration management for Waymark.
// Settings come from three layers: built-in defaults, an optional YAML file,
// and environment variables with the WAYMARK_ prefix. Later layers win, so
// an env var always overrides the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the Waymark application.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Media   MediaConfig   `yaml:"media"`
	Remote  RemoteConfig  `yaml:"remote"`
	Backup  BackupConfig  `yaml:"backup"`
	Map     MapConfig     `yaml:"map"`
}

// StorageConfig contains database and data directory configuration.
type StorageConfig struct {
	// DataPath is the directory holding the database and the device id file
	// (default: ./data).
	DataPath string `yaml:"data_path"`
}

// MediaConfig describes where local media files live.
type MediaConfig struct {
	// Dirs are the directories indexed for restore re-linking.
	Dirs []string `yaml:"dirs"`

	// Watch enables filesystem watching so the index follows changes
	// without rescans (default: true).
	Watch bool `yaml:"watch"`
}

// RemoteConfig points at the drive that stores backup archives.
type RemoteConfig struct {
	// Root is the mount point of the remote drive (default: ./remote).
	Root string `yaml:"root"`

	// BreakerMaxFailures trips the drive circuit after this many
	// consecutive failures (default: 3).
	BreakerMaxFailures int `yaml:"breaker_max_failures"`

	// BreakerTimeout is how long the circuit stays open (default: 30s).
	BreakerTimeout time.Duration `yaml:"breaker_timeout"`
}

// BackupConfig contains backup configuration.
type BackupConfig struct {
	// Enabled turns on automatic backups after data mutations
	// (default: true).
	Enabled bool `yaml:"enabled"`

	// AutoInterval is the minimum spacing between automatic backups
	// (default: 6h).
	AutoInterval time.Duration `yaml:"auto_interval"`

	// WorkDir is the local staging directory for archives
	// (default: <data_path>/backup-staging).
	WorkDir string `yaml:"work_dir"`
}

// MapConfig contains marker rendering settings.
type MapConfig struct {
	// DisplayDensity scales marker rasterization (default: 2.0).
	DisplayDensity float64 `yaml:"display_density"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			DataPath: "./data",
		},
		Media: MediaConfig{
			Watch: true,
		},
		Remote: RemoteConfig{
			Root:               "./remote",
			BreakerMaxFailures: 3,
			BreakerTimeout:     30 * time.Second,
		},
		Backup: BackupConfig{
			Enabled:      true,
			AutoInterval: 6 * time.Hour,
		},
		Map: MapConfig{
			DisplayDensity: 2.0,
		},
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file
// at path (skipped when path is empty or the file does not exist) and
// WAYMARK_ environment variables, in that order of precedence.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)

	if cfg.Backup.WorkDir == "" {
		cfg.Backup.WorkDir = cfg.Storage.DataPath + "/backup-staging"
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Storage.DataPath = getEnv("WAYMARK_DATA_PATH", cfg.Storage.DataPath)
	if dirs := os.Getenv("WAYMARK_MEDIA_DIRS"); dirs != "" {
		cfg.Media.Dirs = splitList(dirs)
	}
	cfg.Media.Watch = getEnvBool("WAYMARK_MEDIA_WATCH", cfg.Media.Watch)
	cfg.Remote.Root = getEnv("WAYMARK_REMOTE_ROOT", cfg.Remote.Root)
	cfg.Remote.BreakerMaxFailures = getEnvInt("WAYMARK_REMOTE_BREAKER_MAX_FAILURES", cfg.Remote.BreakerMaxFailures)
	cfg.Remote.BreakerTimeout = getEnvDuration("WAYMARK_REMOTE_BREAKER_TIMEOUT", cfg.Remote.BreakerTimeout)
	cfg.Backup.Enabled = getEnvBool("WAYMARK_BACKUP_ENABLED", cfg.Backup.Enabled)
	cfg.Backup.AutoInterval = getEnvDuration("WAYMARK_BACKUP_AUTO_INTERVAL", cfg.Backup.AutoInterval)
	cfg.Backup.WorkDir = getEnv("WAYMARK_BACKUP_WORK_DIR", cfg.Backup.WorkDir)
	cfg.Map.DisplayDensity = getEnvFloat("WAYMARK_DISPLAY_DENSITY", cfg.Map.DisplayDensity)
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. Unparseable values fall back to the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default
// value. Unparseable values fall back to the default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default
// value. It recognizes "true", "1", "yes" and "false", "0", "no".
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns a
// default value. Unparseable values fall back to the default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
