// Package config loads, validates, and persists filewardend's configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/filewarden/filewarden/internal/bytesize"
)

// Config is the daemon's static configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (FILEWARDEN_*)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Storage configures the baseline database and the backup/quarantine roots.
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Protect lists the paths under integrity protection and how they're hashed.
	Protect ProtectConfig `mapstructure:"protect" yaml:"protect"`

	// Ransomware carries the thresholds used by the burst detector.
	Ransomware RansomwareConfig `mapstructure:"ransomware" yaml:"ransomware"`

	// Monitoring configures the watcher's fallback poll and kernel-event source.
	Monitoring MonitoringConfig `mapstructure:"monitoring" yaml:"monitoring"`

	// ControlSocket configures the management control channel.
	ControlSocket ControlSocketConfig `mapstructure:"control_socket" yaml:"control_socket"`

	// Mode configures who may act as an administrator of the mode state machine.
	Mode ModeConfig `mapstructure:"mode" yaml:"mode"`

	// ShutdownTimeout bounds how long the daemon waits for workers to stop.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format is the log encoding: "text" (colorized, for a terminal) or "json".
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output is "stdout", "stderr", or a file path.
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig specifies the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and the HTTP server are active.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint.
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// StorageConfig locates the baseline database and the backup/quarantine roots.
type StorageConfig struct {
	// Root is the base directory holding hashes.db, backups/, and quarantine/.
	// Must be mode 0700, owned by the privileged user.
	Root string `mapstructure:"root" validate:"required" yaml:"root"`
}

// DatabasePath returns the path to the embedded baseline store.
func (c StorageConfig) DatabasePath() string {
	return filepath.Join(c.Root, "hashes.db")
}

// BackupRoot returns the directory holding trusted backup copies.
func (c StorageConfig) BackupRoot() string {
	return filepath.Join(c.Root, "backups")
}

// QuarantineRoot returns the directory holding quarantined files.
func (c StorageConfig) QuarantineRoot() string {
	return filepath.Join(c.Root, "quarantine")
}

// ProtectConfig lists the paths under protection and how they're chunked.
type ProtectConfig struct {
	// Paths are the files and directory subtrees to protect.
	Paths []string `mapstructure:"paths" validate:"required,min=1" yaml:"paths"`

	// BlockSize is the chunk size used for block hashing.
	// Supports human-readable sizes: "64Ki", "1Mi".
	// Default: 65536 (64 KiB).
	BlockSize bytesize.ByteSize `mapstructure:"block_size" yaml:"block_size"`

	// HashAlgorithm is the per-block digest algorithm. Only "sha256" is supported.
	HashAlgorithm string `mapstructure:"hash_algorithm" validate:"required,oneof=sha256" yaml:"hash_algorithm"`
}

// RansomwareConfig carries the burst-detector thresholds.
type RansomwareConfig struct {
	// FilesCountThreshold is the minimum number of recent events within
	// TimeWindow before a burst can be declared.
	FilesCountThreshold int `mapstructure:"files_count_threshold" validate:"required,min=1" yaml:"files_count_threshold"`

	// TimeWindowSeconds is the sliding window the burst detector queries over.
	TimeWindowSeconds int `mapstructure:"time_window_sec" validate:"required,min=1" yaml:"time_window_sec"`

	// BlockChangePercent is the mean-change-percent threshold, in [0, 100].
	BlockChangePercent float64 `mapstructure:"block_change_percent" validate:"min=0,max=100" yaml:"block_change_percent"`

	// EntropyThreshold is the per-file entropy threshold, in bits/byte, in [0, 8].
	EntropyThreshold float64 `mapstructure:"entropy_threshold" validate:"min=0,max=8" yaml:"entropy_threshold"`
}

// MonitoringConfig configures the watcher's event sources.
type MonitoringConfig struct {
	// FallbackIntervalSeconds is the periodic-scan interval.
	// Default: 60.
	FallbackIntervalSeconds int `mapstructure:"fallback_interval_sec" validate:"required,min=1" yaml:"fallback_interval_sec"`

	// UseKernelNotifications enables the fsnotify recursive subscription source.
	// The periodic scan always runs regardless of this setting.
	UseKernelNotifications bool `mapstructure:"use_kernel_notifications" yaml:"use_kernel_notifications"`
}

// ControlSocketConfig configures the management control channel.
type ControlSocketConfig struct {
	// Path is the filesystem path of the Unix domain socket.
	Path string `mapstructure:"path" validate:"required" yaml:"path"`
}

// ModeConfig configures mode-manager administration.
type ModeConfig struct {
	// AllowedAdmins is the set of OS usernames permitted to act as mode
	// administrators, in addition to the process's own privileged identity.
	AllowedAdmins []string `mapstructure:"allowed_admins" yaml:"allowed_admins"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (FILEWARDEN_*)
//  2. Configuration file
//  3. Default values
//
// When no configuration file is found, Load returns GetDefaultConfig() as
// is; environment variables are not consulted in that case.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration, returning a user-friendly error with setup
// instructions when no configuration file exists.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  filewardend init\n\n"+
				"Or specify a custom config file:\n"+
				"  filewardend <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  filewardend init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes the configuration to path in YAML, mode 0600 (it may
// carry the control-socket path and admin usernames).
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper's environment and config-file search behavior.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("FILEWARDEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. Returns
// (fileFound, error); a missing file is not itself an error.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks combines the ByteSize and time.Duration decode hooks.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and integers to bytesize.ByteSize,
// enabling config values like "64Ki" or "1Mi" as well as plain numbers.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings to time.Duration, enabling config
// values like "30s" or "5m".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory: $XDG_CONFIG_HOME/filewarden
// or ~/.config/filewarden, falling back to the current directory.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "filewarden")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "filewarden")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir exposes the configuration directory for the init command.
func GetConfigDir() string {
	return getConfigDir()
}

// validate is a package-level validator instance; struct-tag validation
// rules never change at runtime so a single shared instance is safe.
var validate = validator.New()

// Validate checks cfg against its `validate` struct tags, returning a
// combined error describing every failing field.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q validation", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%s", strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}
