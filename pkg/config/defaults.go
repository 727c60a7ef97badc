package config

import (
	"strings"
	"time"

	"github.com/filewarden/filewarden/internal/bytesize"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
// Zero values are replaced with defaults; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyMetricsDefaults(&cfg.Metrics)
	applyProtectDefaults(&cfg.Protect)
	applyRansomwareDefaults(&cfg.Ransomware)
	applyMonitoringDefaults(&cfg.Monitoring)
	applyControlSocketDefaults(&cfg.ControlSocket)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	// No defaults for Storage.Root or Mode.AllowedAdmins: the operator
	// must choose where the baseline store lives and who may administer it.
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyProtectDefaults(cfg *ProtectConfig) {
	if cfg.BlockSize == 0 {
		cfg.BlockSize = bytesize.ByteSize(65536)
	}
	if cfg.HashAlgorithm == "" {
		cfg.HashAlgorithm = "sha256"
	}
}

func applyRansomwareDefaults(cfg *RansomwareConfig) {
	if cfg.FilesCountThreshold == 0 {
		cfg.FilesCountThreshold = 5
	}
	if cfg.TimeWindowSeconds == 0 {
		cfg.TimeWindowSeconds = 10
	}
	if cfg.BlockChangePercent == 0 {
		cfg.BlockChangePercent = 70
	}
	if cfg.EntropyThreshold == 0 {
		cfg.EntropyThreshold = 7.5
	}
}

func applyMonitoringDefaults(cfg *MonitoringConfig) {
	if cfg.FallbackIntervalSeconds == 0 {
		cfg.FallbackIntervalSeconds = 60
	}
}

func applyControlSocketDefaults(cfg *ControlSocketConfig) {
	if cfg.Path == "" {
		cfg.Path = "/var/run/filewardend.sock"
	}
}

// GetDefaultConfig returns a Config with all default values applied.
// Useful for generating sample configuration files and for tests.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Protect: ProtectConfig{
			Paths: []string{},
		},
		Storage: StorageConfig{
			Root: "/var/lib/filewardend",
		},
		Mode: ModeConfig{
			AllowedAdmins: []string{},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
