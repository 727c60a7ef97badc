package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/filewarden/filewarden/internal/logger"
	"github.com/filewarden/filewarden/pkg/config"
	"github.com/filewarden/filewarden/pkg/control"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// GetDefaultStateDir returns the default state directory path.
func GetDefaultStateDir() string {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "/tmp"
		}
		stateDir = filepath.Join(homeDir, ".local", "state")
	}
	return filepath.Join(stateDir, "filewarden")
}

// GetDefaultPidFile returns the default PID file path.
func GetDefaultPidFile() string {
	return filepath.Join(GetDefaultStateDir(), "filewardend.pid")
}

// loadConfigOrDefault loads the configured file, falling back to built-in
// defaults (e.g. for the control-socket path) when none exists yet - the
// admin subcommands need a socket path even before `filewardend init` has
// been run against a custom location.
func loadConfigOrDefault() *config.Config {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return config.GetDefaultConfig()
	}
	return cfg
}

// dialControl connects to the running daemon's control socket.
func dialControl() (*control.Client, error) {
	cfg := loadConfigOrDefault()
	client, err := control.Dial(cfg.ControlSocket.Path, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon at %s: %w\n\nIs filewardend running? Start it with: filewardend start", cfg.ControlSocket.Path, err)
	}
	return client, nil
}

// currentAdmin identifies the OS user issuing an administrative command,
// passed through to the Mode Manager for its allowlist check.
func currentAdmin() string {
	if u := os.Getenv("SUDO_USER"); u != "" {
		return u
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}

// callControl dials the daemon, issues one command, and reports a non-zero
// response as an error.
func callControl(command string, params any) (control.Response, error) {
	client, err := dialControl()
	if err != nil {
		return control.Response{}, err
	}
	defer func() { _ = client.Close() }()

	resp, err := client.Call(command, params)
	if err != nil {
		return control.Response{}, err
	}
	if !resp.Success {
		return resp, fmt.Errorf("%s", resp.Error)
	}
	return resp, nil
}
