package stats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordInferenceUpdatesRollingStats(t *testing.T) {
	c := New()
	for _, ms := range []float64{10, 20, 30} {
		c.RecordInference(1, ms)
	}

	snap := c.Snapshot(1)
	require.Equal(t, uint64(3), snap.FramesInferred)
	require.Equal(t, 30.0, snap.LastMS)
	require.Equal(t, 20.0, snap.AvgMS)
	require.Equal(t, 10.0, snap.MinMS)
	require.Equal(t, 30.0, snap.MaxMS)
}

func TestRollingWindowEvictsOldestSample(t *testing.T) {
	c := New()
	for i := 0; i < rollingWindowSize; i++ {
		c.RecordInference(2, 100) // fill window with 100s
	}
	c.RecordInference(2, 0) // push one 0 in, evicting one 100

	snap := c.Snapshot(2)
	require.Equal(t, 0.0, snap.MinMS)
	require.Less(t, snap.AvgMS, 100.0)
}

func TestSnapshotOfUnknownCameraIsZeroValue(t *testing.T) {
	c := New()
	snap := c.Snapshot(99)
	require.Equal(t, uint64(0), snap.FramesInferred)
	require.Equal(t, 0.0, snap.AvgMS)
}

func TestSummaryAggregatesAcrossCameras(t *testing.T) {
	c := New()
	c.RecordInference(1, 10)
	c.RecordInference(2, 20)

	summary := c.Summary()
	require.Equal(t, 2, summary.ActiveCameras)
	require.Equal(t, uint64(2), summary.TotalInferences)
}

func TestRecordReconnectAndFailureCounters(t *testing.T) {
	c := New()
	c.RecordReconnect(1)
	c.RecordReconnect(1)
	c.RecordFailure(1)

	snap := c.Snapshot(1)
	require.Equal(t, uint64(2), snap.Reconnects)
	require.Equal(t, uint64(1), snap.Failures)
}
