package events

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filewarden/filewarden/internal/logger"
)

func TestLoggerEmitter_Emit(t *testing.T) {
	buf := new(bytes.Buffer)
	logger.InitWithWriter(buf, "DEBUG", "json", false)

	emitter := NewLoggerEmitter()
	emitter.Emit(New(TypeFileVerified, SeverityInfo, "/etc/passwd", map[string]any{
		"blocks_total": 3,
	}))

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "FileVerified", entry["event_type"])
	assert.Equal(t, "/etc/passwd", entry["path"])
	assert.Equal(t, float64(3), entry["blocks_total"])
}

func TestLoggerEmitter_SeverityMapsToLevel(t *testing.T) {
	buf := new(bytes.Buffer)
	logger.InitWithWriter(buf, "DEBUG", "json", false)

	emitter := NewLoggerEmitter()
	emitter.Emit(New(TypeRansomwareDetected, SeverityEmergency, "", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "ERROR", entry["level"])
}

func TestRing_SnapshotOrderBeforeWrap(t *testing.T) {
	r := NewRing(3)
	r.Emit(New(TypeFileAdded, SeverityInfo, "/a", nil))
	r.Emit(New(TypeFileAdded, SeverityInfo, "/b", nil))

	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "/a", snap[0].Path)
	assert.Equal(t, "/b", snap[1].Path)
}

func TestRing_EvictsOldestOnWrap(t *testing.T) {
	r := NewRing(2)
	r.Emit(New(TypeFileAdded, SeverityInfo, "/a", nil))
	r.Emit(New(TypeFileAdded, SeverityInfo, "/b", nil))
	r.Emit(New(TypeFileAdded, SeverityInfo, "/c", nil))

	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "/b", snap[0].Path)
	assert.Equal(t, "/c", snap[1].Path)
	assert.Equal(t, 2, r.Len())
}

func TestMultiEmitter_FansOutToAll(t *testing.T) {
	r1 := NewRing(10)
	r2 := NewRing(10)
	multi := MultiEmitter{r1, r2}

	multi.Emit(New(TypeFileAdded, SeverityInfo, "/a", nil))

	assert.Equal(t, 1, r1.Len())
	assert.Equal(t, 1, r2.Len())
}
