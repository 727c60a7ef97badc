package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// sampleConfigTemplate is the commented YAML written by InitConfig /
// InitConfigToPath. It intentionally isn't produced by marshaling a
// Config value: a hand-written template lets every section carry an
// explanatory comment, something a round-tripped struct can't.
const sampleConfigTemplate = `# filewardend Configuration File
#
# Configuration precedence (highest to lowest):
#   1. Environment variables (FILEWARDEN_<SECTION>_<KEY>)
#   2. This file
#   3. Built-in defaults

logging:
  level: INFO       # DEBUG, INFO, WARN, ERROR
  format: text       # text or json
  output: stdout     # stdout, stderr, or a file path

metrics:
  enabled: true
  port: 9090

storage:
  # Root must be mode 0700, owned by the user the daemon runs as. Holds
  # hashes.db, backups/, and quarantine/.
  root: /var/lib/filewardend

protect:
  paths:             # files and directory subtrees to protect
    - /srv/protected
  block_size: 64Ki   # per-block hash chunk size
  hash_algorithm: sha256

ransomware:
  files_count_threshold: 5
  time_window_sec: 10
  block_change_percent: 70
  entropy_threshold: 7.5

monitoring:
  fallback_interval_sec: 60
  use_kernel_notifications: true

control_socket:
  path: /var/run/filewardend.sock

mode:
  allowed_admins: []  # OS usernames, in addition to the privileged process identity

shutdown_timeout: 10s
`

// InitConfig writes a sample configuration file to the default location,
// refusing to overwrite an existing file unless force is set. Returns the
// path written.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration file to path, refusing to
// overwrite an existing file unless force is set.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(sampleConfigTemplate), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
