package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filewarden/filewarden/pkg/baseline"
	"github.com/filewarden/filewarden/pkg/integrity"
	"github.com/filewarden/filewarden/pkg/modemgr"
	"github.com/filewarden/filewarden/pkg/recovery"
	"github.com/filewarden/filewarden/pkg/watcher"
)

const testBlockSize = 16

// fakeStore is an in-memory Store for tests that don't need a real embedded
// database behind the Orchestrator's dispatch logic.
type fakeStore struct {
	records map[string]*baseline.FileRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*baseline.FileRecord)}
}

func (s *fakeStore) put(path string, hashes []string, backupPath string) {
	blocks := make([]baseline.BlockHash, len(hashes))
	for i, h := range hashes {
		blocks[i] = baseline.BlockHash{BlockIndex: i, HashValue: h}
	}
	s.records[path] = &baseline.FileRecord{
		FilePath:    path,
		BlockSize:   testBlockSize,
		BlocksCount: len(hashes),
		BackupPath:  backupPath,
		BlockHashes: blocks,
	}
}

func (s *fakeStore) Get(_ context.Context, path string) (*baseline.FileRecord, error) {
	r, ok := s.records[path]
	if !ok {
		return nil, baseline.ErrNotFound
	}
	return r, nil
}

func (s *fakeStore) Update(_ context.Context, path string, newSize int64, newHashes []string, newBackup string) error {
	r, ok := s.records[path]
	if !ok {
		return baseline.ErrNotFound
	}
	s.put(path, newHashes, pick(newBackup, r.BackupPath))
	return nil
}

func pick(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}

func (s *fakeStore) ListPaths(_ context.Context) ([]string, error) {
	paths := make([]string, 0, len(s.records))
	for p := range s.records {
		paths = append(paths, p)
	}
	return paths, nil
}

type testRig struct {
	store  *fakeStore
	mode   *modemgr.Manager
	engine *recovery.Engine
	detect *integrity.Detector
	orch   *Orchestrator
	dir    string
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	dir := t.TempDir()

	engine, err := recovery.New(recovery.Config{
		BackupDir:     filepath.Join(dir, "backups"),
		QuarantineDir: filepath.Join(dir, "quarantine"),
		BlockSize:     testBlockSize,
	})
	require.NoError(t, err)

	mode := modemgr.New(modemgr.Config{
		AllowedAdmins:   []string{"root"},
		PrivilegedCheck: func() bool { return true },
	})

	thresholds := integrity.Thresholds{BlockChangePercent: 50, EntropyThreshold: 7}
	detector := integrity.NewDetector(thresholds)
	store := newFakeStore()

	orch := New(Config{
		Store:                         store,
		ModeMgr:                       mode,
		Detector:                      detector,
		Recovery:                      engine,
		Thresholds:                    thresholds,
		RansomwareFilesCountThreshold: 3,
		RansomwareTimeWindowSeconds:   60,
	})

	return &testRig{store: store, mode: mode, engine: engine, detect: detector, orch: orch, dir: dir}
}

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, content, 0644))
}

func baselineFile(t *testing.T, r *testRig, path string, content []byte) {
	t.Helper()
	writeFile(t, path, content)
	hashes, _, err := integrity.HashVector(path, testBlockSize)
	require.NoError(t, err)
	backup, err := r.engine.CreateBackup(path)
	require.NoError(t, err)
	r.store.put(path, hashes, backup)
}

func TestOrchestrator_NoChange_EmitsVerified(t *testing.T) {
	r := newTestRig(t)
	path := filepath.Join(r.dir, "a.txt")
	baselineFile(t, r, path, []byte("stable content, unchanged"))

	r.orch.Handle(watcher.WatchEvent{Type: watcher.Modify, FilePath: path})

	assert.EqualValues(t, 1, r.orch.Stats().FilesVerified)
}

func TestOrchestrator_IgnoresUnprotectedPath(t *testing.T) {
	r := newTestRig(t)
	path := filepath.Join(r.dir, "untracked.txt")
	writeFile(t, path, []byte("not baselined"))

	r.orch.Handle(watcher.WatchEvent{Type: watcher.Modify, FilePath: path})

	assert.EqualValues(t, 0, r.orch.Stats().FilesVerified)
}

func TestOrchestrator_UpdateMode_AcceptsAndRebaselines(t *testing.T) {
	r := newTestRig(t)
	path := filepath.Join(r.dir, "b.txt")
	baselineFile(t, r, path, []byte("original content of the file"))

	_, err := r.mode.EnterUpdate("root", 120)
	require.NoError(t, err)

	writeFile(t, path, []byte("edited by an authorized admin session"))
	r.orch.Handle(watcher.WatchEvent{Type: watcher.Modify, FilePath: path})

	assert.EqualValues(t, 1, r.orch.Stats().FilesModifiedAllowed)

	rec, err := r.store.Get(context.Background(), path)
	require.NoError(t, err)
	current, _, err := integrity.HashVector(path, testBlockSize)
	require.NoError(t, err)
	assert.Equal(t, current, rec.HashVector())
}

func TestOrchestrator_MonitorMode_UnauthorizedEdit_RestoresBlocks(t *testing.T) {
	r := newTestRig(t)
	path := filepath.Join(r.dir, "c.txt")
	original := []byte("0123456789abcdef0123456789abcdef") // two 16-byte blocks
	baselineFile(t, r, path, original)

	// Flip one block only (50% changed, meeting the block gate), keep low
	// entropy so this lands as SuspiciousChange rather than CriticalChange.
	edited := []byte("0123456789abcdefXXXXXXXXXXXXXXXX")
	writeFile(t, path, edited)

	r.orch.Handle(watcher.WatchEvent{Type: watcher.Modify, FilePath: path})

	assert.EqualValues(t, 1, r.orch.Stats().FilesRestored)
	restored, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestOrchestrator_MonitorMode_Delete_RestoresFromBackup(t *testing.T) {
	r := newTestRig(t)
	path := filepath.Join(r.dir, "d.txt")
	baselineFile(t, r, path, []byte("will be deleted and restored"))

	require.NoError(t, os.Remove(path))
	r.orch.Handle(watcher.WatchEvent{Type: watcher.Delete, FilePath: path})

	assert.EqualValues(t, 1, r.orch.Stats().FilesRestored)
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestOrchestrator_UpdateMode_Delete_Accepted(t *testing.T) {
	r := newTestRig(t)
	path := filepath.Join(r.dir, "e.txt")
	baselineFile(t, r, path, []byte("will be deleted deliberately"))

	_, err := r.mode.EnterUpdate("root", 120)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	r.orch.Handle(watcher.WatchEvent{Type: watcher.Delete, FilePath: path})

	assert.EqualValues(t, 0, r.orch.Stats().FilesRestored)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestOrchestrator_ModifyOnVanishedFile_DegradesToDeleteHandling(t *testing.T) {
	r := newTestRig(t)
	path := filepath.Join(r.dir, "f.txt")
	baselineFile(t, r, path, []byte("present at baseline time"))

	require.NoError(t, os.Remove(path))
	r.orch.Handle(watcher.WatchEvent{Type: watcher.Modify, FilePath: path})

	assert.EqualValues(t, 1, r.orch.Stats().FilesRestored)
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestOrchestrator_RansomwareBurst_TriggersEmergency(t *testing.T) {
	r := newTestRig(t)

	// High-entropy, full-replacement changes across enough distinct files
	// within the window to clear the three-part burst gate: a full byte
	// permutation (256 distinct values, one each) has maximal Shannon
	// entropy, and replacing an all-zero baseline changes every block.
	highEntropy := make([]byte, 256)
	for i := range highEntropy {
		highEntropy[i] = byte(i)
	}

	var paths []string
	for i := 0; i < 3; i++ {
		path := filepath.Join(r.dir, "burst", string(rune('a'+i))+".bin")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
		baselineFile(t, r, path, make([]byte, 256))
		writeFile(t, path, highEntropy)
		paths = append(paths, path)
	}

	for _, p := range paths {
		r.orch.Handle(watcher.WatchEvent{Type: watcher.Modify, FilePath: p})
	}

	assert.Equal(t, modemgr.Emergency, r.mode.GetMode())
	assert.EqualValues(t, 1, r.orch.Stats().EmergencyActivations)
}
