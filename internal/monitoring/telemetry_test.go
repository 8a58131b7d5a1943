package monitoring

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_WritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace", "requests.jsonl")
	tr, err := NewTracker(TraceConfig{Enabled: true, LogPath: path})
	require.NoError(t, err)

	tr.RecordRequest(&RequestEvent{RequestID: "a", Method: "GET", URL: "/_api/projects", StatusCode: 200, Attempt: AttemptInitial, Success: true, Timestamp: time.Now()})
	tr.RecordRequest(&RequestEvent{RequestID: "b", Method: "GET", URL: "/_api/projects", StatusCode: 401, Attempt: AttemptAfterRefresh})
	require.NoError(t, tr.Close())
	assert.Equal(t, 2, tr.Count())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var events []RequestEvent
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev RequestEvent
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		events = append(events, ev)
	}
	require.Len(t, events, 2)
	assert.Equal(t, AttemptAfterRefresh, events[1].Attempt)
	assert.Equal(t, 401, events[1].StatusCode)
}

func TestTracker_DisabledAndNil(t *testing.T) {
	tr, err := NewTracker(TraceConfig{Enabled: false, LogPath: filepath.Join(t.TempDir(), "x.jsonl")})
	require.NoError(t, err)
	tr.RecordRequest(&RequestEvent{RequestID: "a"})
	assert.Equal(t, 0, tr.Count())

	var none *Tracker
	none.RecordRequest(&RequestEvent{RequestID: "a"})
	assert.NoError(t, none.Close())
}

func TestMetricsCollector_Snapshot(t *testing.T) {
	mc := NewMetricsCollector()
	mc.RecordRequest(true)
	mc.RecordRequest(false)
	mc.RecordRefresh()
	mc.RecordReplay()

	s := mc.Snapshot()
	assert.Equal(t, int64(2), s.Requests)
	assert.Equal(t, int64(1), s.Successes)
	assert.Equal(t, int64(1), s.Failures)
	assert.Equal(t, int64(1), s.Refreshes)
	assert.Equal(t, int64(1), s.Replays)
	assert.Contains(t, s.String(), "refreshes=1")
}
