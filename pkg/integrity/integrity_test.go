package integrity

import (
	"bytes"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestHashVector_ExactBlockBoundaries(t *testing.T) {
	dir := t.TempDir()
	data := bytes.Repeat([]byte{0x41}, 3000)
	path := writeFile(t, dir, "a", data)

	hashes, size, err := HashVector(path, 1024)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), size)
	require.Len(t, hashes, 3)
	assert.Equal(t, hashes[0], hashes[1]) // both full 1024-byte 0x41 blocks
	assert.NotEqual(t, hashes[1], hashes[2])
}

func TestHashVector_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "empty", nil)

	hashes, size, err := HashVector(path, 1024)
	require.NoError(t, err)
	assert.Zero(t, size)
	assert.Empty(t, hashes)
}

func TestHashVector_MissingFile(t *testing.T) {
	_, _, err := HashVector("/nonexistent/path", 1024)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestDiff_NoChange(t *testing.T) {
	v := []string{"a", "b", "c"}
	changed, pct := Diff(v, v)
	assert.Empty(t, changed)
	assert.Zero(t, pct)
}

func TestDiff_PartialChange(t *testing.T) {
	current := []string{"a", "x", "c"}
	reference := []string{"a", "b", "c"}
	changed, pct := Diff(current, reference)
	assert.Equal(t, []int{1}, changed)
	assert.InDelta(t, 33.33, pct, 0.01)
}

func TestDiff_AppendedBlocks(t *testing.T) {
	current := []string{"a", "b", "c"}
	reference := []string{"a", "b"}
	changed, pct := Diff(current, reference)
	assert.Equal(t, []int{2}, changed)
	assert.InDelta(t, 33.33, pct, 0.01)
}

func TestDiff_BothEmpty(t *testing.T) {
	changed, pct := Diff(nil, nil)
	assert.Empty(t, changed)
	assert.Zero(t, pct)
}

func TestEntropy_LowForRepeatedByte(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "flat", bytes.Repeat([]byte{0x00}, 4096))
	assert.Zero(t, Entropy(path))
}

func TestEntropy_HighForRandomBytes(t *testing.T) {
	dir := t.TempDir()
	data := make([]byte, 1<<20)
	_, err := rand.Read(data)
	require.NoError(t, err)
	path := writeFile(t, dir, "random", data)

	e := Entropy(path)
	assert.GreaterOrEqual(t, e, 7.5)
	assert.LessOrEqual(t, e, 8.0)
}

func TestEntropy_MissingFileReturnsZero(t *testing.T) {
	assert.Zero(t, Entropy("/nonexistent/path"))
}

func TestClassify_NoChange(t *testing.T) {
	c := Classify(0, 0, 0, false, Thresholds{BlockChangePercent: 50, EntropyThreshold: 7})
	assert.Equal(t, NoChange, c)
}

func TestClassify_AllowedChangeInUpdateMode(t *testing.T) {
	c := Classify(5, 90, 7.9, true, Thresholds{BlockChangePercent: 50, EntropyThreshold: 7})
	assert.Equal(t, AllowedChange, c)
}

func TestClassify_CriticalChange(t *testing.T) {
	c := Classify(5, 90, 7.9, false, Thresholds{BlockChangePercent: 50, EntropyThreshold: 7})
	assert.Equal(t, CriticalChange, c)
}

func TestClassify_SuspiciousChangeOnlyBlockThresholdMet(t *testing.T) {
	c := Classify(5, 90, 1.0, false, Thresholds{BlockChangePercent: 50, EntropyThreshold: 7})
	assert.Equal(t, SuspiciousChange, c)
}

func TestClassify_SuspiciousChangeOnlyEntropyThresholdMet(t *testing.T) {
	c := Classify(5, 10, 7.9, false, Thresholds{BlockChangePercent: 50, EntropyThreshold: 7})
	assert.Equal(t, SuspiciousChange, c)
}

func TestClassify_UnauthorizedChange(t *testing.T) {
	c := Classify(5, 10, 1.0, false, Thresholds{BlockChangePercent: 50, EntropyThreshold: 7})
	assert.Equal(t, UnauthorizedChange, c)
}

func TestDetector_PositiveOnBurstMeetingAllThreeGates(t *testing.T) {
	d := NewDetector(Thresholds{BlockChangePercent: 70, EntropyThreshold: 7.5})
	now := time.Now()
	for i := 0; i < 6; i++ {
		d.Record(ModificationEvent{
			FilePath:      filepath.Join("/tmp", string(rune('a'+i))),
			Timestamp:     now,
			ChangePercent: 100,
			Entropy:       7.9,
		})
	}

	positive, detection := d.Detect(5, 10)
	assert.True(t, positive)
	assert.Equal(t, 6, detection.FilesAffected)
	assert.Equal(t, 6, detection.CriticalCount)
}

func TestDetector_NegativeBelowFilesCountThreshold(t *testing.T) {
	d := NewDetector(Thresholds{BlockChangePercent: 70, EntropyThreshold: 7.5})
	d.Record(ModificationEvent{FilePath: "/tmp/a", Timestamp: time.Now(), ChangePercent: 100, Entropy: 7.9})

	positive, _ := d.Detect(5, 10)
	assert.False(t, positive)
}

func TestDetector_NegativeWhenCriticalRatioBelow70Percent(t *testing.T) {
	d := NewDetector(Thresholds{BlockChangePercent: 70, EntropyThreshold: 7.5})
	now := time.Now()
	// 5 events meet both thresholds, 5 do not -> 50% critical ratio, fails the 0.7 gate
	// even though mean change percent alone might clear 70.
	for i := 0; i < 5; i++ {
		d.Record(ModificationEvent{FilePath: "/tmp/hi", Timestamp: now, ChangePercent: 100, Entropy: 7.9})
	}
	for i := 0; i < 5; i++ {
		d.Record(ModificationEvent{FilePath: "/tmp/lo", Timestamp: now, ChangePercent: 71, Entropy: 1})
	}

	positive, _ := d.Detect(5, 10)
	assert.False(t, positive)
}

func TestDetector_IgnoresEventsOutsideWindow(t *testing.T) {
	d := NewDetector(Thresholds{BlockChangePercent: 70, EntropyThreshold: 7.5})
	old := time.Now().Add(-time.Hour)
	for i := 0; i < 6; i++ {
		d.Record(ModificationEvent{FilePath: "/tmp/old", Timestamp: old, ChangePercent: 100, Entropy: 7.9})
	}

	positive, detection := d.Detect(5, 10)
	assert.False(t, positive)
	assert.Zero(t, detection.FilesAffected)
}

func TestReadChangedBlocks_ReturnsRequestedIndices(t *testing.T) {
	dir := t.TempDir()
	data := bytes.Repeat([]byte{0x41}, 1024)
	data = append(data, bytes.Repeat([]byte{0x42}, 1024)...)
	path := writeFile(t, dir, "a", data)

	blocks, err := ReadChangedBlocks(path, 1024, []int{1})
	require.NoError(t, err)
	require.Contains(t, blocks, 1)
	assert.Equal(t, bytes.Repeat([]byte{0x42}, 1024), blocks[1])
}

func TestReadChangedBlocks_MissingFileReturnsEmptyMap(t *testing.T) {
	blocks, err := ReadChangedBlocks("/nonexistent/path", 1024, []int{0})
	require.NoError(t, err)
	assert.Empty(t, blocks)
}
