package recovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filewarden/filewarden/pkg/baseline"
)

// fakeLedger is an in-memory QuarantineLedger for tests that don't need a
// real embedded store.
type fakeLedger struct {
	entries map[string]*baseline.QuarantineEntry // keyed by quarantine path
	seq     int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: make(map[string]*baseline.QuarantineEntry)}
}

func (f *fakeLedger) RecordQuarantine(_ context.Context, originalPath, quarantinePath string) (string, error) {
	f.seq++
	id := filepath.Base(quarantinePath)
	f.entries[quarantinePath] = &baseline.QuarantineEntry{ID: id, OriginalPath: originalPath, QuarantinePath: quarantinePath}
	return id, nil
}

func (f *fakeLedger) GetQuarantineEntryByPath(_ context.Context, quarantinePath string) (*baseline.QuarantineEntry, error) {
	e, ok := f.entries[quarantinePath]
	if !ok {
		return nil, baseline.ErrQuarantineNotFound
	}
	return e, nil
}

func (f *fakeLedger) DeleteQuarantineEntry(_ context.Context, id string) error {
	for k, e := range f.entries {
		if e.ID == id {
			delete(f.entries, k)
		}
	}
	return nil
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	e, err := New(Config{
		BackupDir:     filepath.Join(dir, "backups"),
		QuarantineDir: filepath.Join(dir, "quarantine"),
		BlockSize:     16,
		Ledger:        newFakeLedger(),
	})
	require.NoError(t, err)
	return e
}

func TestEngine_CreateBackup_RestoreFromBackup(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "protected.txt")
	require.NoError(t, os.WriteFile(target, []byte("trusted content"), 0644))

	e := newTestEngine(t)
	backupPath, err := e.CreateBackup(target)
	require.NoError(t, err)
	assert.FileExists(t, backupPath)

	info, err := os.Stat(backupPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	require.NoError(t, os.WriteFile(target, []byte("tampered!!!!!!!"), 0644))

	require.NoError(t, e.RestoreFromBackup(target, backupPath))

	restored, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "trusted content", string(restored))
}

func TestEngine_RestoreFromBackup_MissingBackup(t *testing.T) {
	e := newTestEngine(t)
	err := e.RestoreFromBackup("/tmp/whatever", filepath.Join(t.TempDir(), "nope.backup"))
	assert.ErrorIs(t, err, ErrBackupNotFound)
}

func TestEngine_RestoreBlocks(t *testing.T) {
	dir := t.TempDir()
	backup := filepath.Join(dir, "b.backup")
	target := filepath.Join(dir, "t.txt")

	// Block size 16: backup is 3 blocks of "AAAAAAAAAAAAAAAA" (A*16) x3 = 48 bytes.
	backupContent := make([]byte, 48)
	for i := range backupContent {
		backupContent[i] = 'A'
	}
	require.NoError(t, os.WriteFile(backup, backupContent, 0644))

	targetContent := make([]byte, 48)
	for i := range targetContent {
		targetContent[i] = 'Z'
	}
	require.NoError(t, os.WriteFile(target, targetContent, 0644))

	e := newTestEngine(t)
	require.NoError(t, e.RestoreBlocks(target, backup, []int{1}))

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, backupContent[16:32], got[16:32], "restored block must equal backup's bytes")
	assert.Equal(t, byte('Z'), got[0], "untouched block must be unchanged")
	assert.Equal(t, byte('Z'), got[32], "untouched block must be unchanged")
}

func TestEngine_RestoreBlocks_TruncatesToBackupLength(t *testing.T) {
	dir := t.TempDir()
	backup := filepath.Join(dir, "b.backup")
	target := filepath.Join(dir, "t.txt")

	require.NoError(t, os.WriteFile(backup, make([]byte, 16), 0644))
	// target is longer than backup — restoring any block must still shrink it.
	require.NoError(t, os.WriteFile(target, make([]byte, 64), 0644))

	e := newTestEngine(t)
	require.NoError(t, e.RestoreBlocks(target, backup, []int{0}))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.EqualValues(t, 16, info.Size())
}

func TestEngine_RestoreBlocks_MissingTargetDegradesToFullRestore(t *testing.T) {
	dir := t.TempDir()
	backup := filepath.Join(dir, "b.backup")
	target := filepath.Join(dir, "t.txt")
	require.NoError(t, os.WriteFile(backup, []byte("backup-bytes"), 0644))

	e := newTestEngine(t)
	require.NoError(t, e.RestoreBlocks(target, backup, []int{0}))

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "backup-bytes", string(got))
}

func TestEngine_BlockFile_UnblockFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "t.txt")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0644))

	e := newTestEngine(t)
	require.NoError(t, e.BlockFile(target, false))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Zero(t, info.Mode().Perm()&0o222, "write bits must be cleared")

	require.NoError(t, e.UnblockFile(target))
	info, err = os.Stat(target)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0o200, "owner write bit must be restored")
}

func TestEngine_Quarantine_RestoreFromQuarantine(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "t.txt")
	require.NoError(t, os.WriteFile(target, []byte("payload"), 0644))

	e := newTestEngine(t)
	qPath, err := e.Quarantine(context.Background(), target)
	require.NoError(t, err)

	assert.NoFileExists(t, target)
	assert.FileExists(t, qPath)

	ledger := e.ledger.(*fakeLedger)
	assert.Len(t, ledger.entries, 1)

	require.NoError(t, e.RestoreFromQuarantine(context.Background(), qPath, target))
	assert.FileExists(t, target)
	assert.NoFileExists(t, qPath)
	assert.Empty(t, ledger.entries, "sidecar entry should be cleaned up on restore")

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(content))
}

func TestEngine_EmergencyBlockAll(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 3; i++ {
		p := filepath.Join(dir, string(rune('a'+i))+".txt")
		require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
		paths = append(paths, p)
	}
	paths = append(paths, filepath.Join(dir, "missing.txt"))

	e := newTestEngine(t)
	blocked, failed := e.EmergencyBlockAll(paths)
	assert.Equal(t, 3, blocked)
	assert.Equal(t, 1, failed)

	for _, p := range paths[:3] {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Zero(t, info.Mode().Perm()&0o222)
	}
}

func TestEngine_RestoreFromBackup_ConcurrentCallsSerialize(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "t.txt")
	backup := filepath.Join(dir, "b.backup")
	require.NoError(t, os.WriteFile(target, []byte("original"), 0644))
	require.NoError(t, os.WriteFile(backup, []byte("from-backup"), 0644))

	e := newTestEngine(t)

	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() { done <- e.RestoreFromBackup(target, backup) }()
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, <-done)
	}

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "from-backup", string(content))
}
