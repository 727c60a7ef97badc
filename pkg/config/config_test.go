package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filewarden/filewarden/internal/bytesize"
)

func TestLoad_DefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"

protect:
  paths:
    - "/etc/passwd"
  block_size: 64Ki

storage:
  root: "` + filepath.ToSlash(tmpDir) + `/store"

control_socket:
  path: "` + filepath.ToSlash(tmpDir) + `/control.sock"
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "sha256", cfg.Protect.HashAlgorithm)
	assert.Equal(t, 64*bytesize.KiB, cfg.Protect.BlockSize)
	assert.Equal(t, 5, cfg.Ransomware.FilesCountThreshold)
	assert.Equal(t, 70.0, cfg.Ransomware.BlockChangePercent)
	assert.Equal(t, 60, cfg.Monitoring.FallbackIntervalSeconds)
}

func TestLoad_NoConfigFileUsesDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	cfg, err := Load(filepath.Join(tmpDir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "INFO", cfg.Logging.Level)
}

func TestValidate_RejectsEmptyProtectPaths(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Storage.Root = "/tmp/filewardend"
	cfg.ShutdownTimeout = time.Second

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Protect.Paths")
}

func TestValidate_AcceptsWellFormedConfig(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Storage.Root = "/tmp/filewardend"
	cfg.Protect.Paths = []string{"/etc/passwd"}
	cfg.ControlSocket.Path = "/tmp/filewardend.sock"
	cfg.ShutdownTimeout = time.Second

	assert.NoError(t, Validate(cfg))
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Storage.Root = tmpDir
	cfg.Protect.Paths = []string{"/etc/passwd"}

	require.NoError(t, SaveConfig(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Protect.Paths, loaded.Protect.Paths)
	assert.Equal(t, cfg.Storage.Root, loaded.Storage.Root)
}

func TestStorageConfig_DerivedPaths(t *testing.T) {
	sc := StorageConfig{Root: "/var/lib/filewardend"}
	assert.Equal(t, "/var/lib/filewardend/hashes.db", sc.DatabasePath())
	assert.Equal(t, "/var/lib/filewardend/backups", sc.BackupRoot())
	assert.Equal(t, "/var/lib/filewardend/quarantine", sc.QuarantineRoot())
}
