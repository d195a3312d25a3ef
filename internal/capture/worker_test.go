package capture

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"coalguard/internal/frame"
)

type fakeCaptureStats struct {
	mu         sync.Mutex
	captured   map[int]int
	reconnects map[int]int
	failures   map[int]int
}

func newFakeCaptureStats() *fakeCaptureStats {
	return &fakeCaptureStats{
		captured:   make(map[int]int),
		reconnects: make(map[int]int),
		failures:   make(map[int]int),
	}
}

func (s *fakeCaptureStats) RecordFrameCaptured(cameraID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captured[cameraID]++
}

func (s *fakeCaptureStats) RecordReconnect(cameraID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects[cameraID]++
}

func (s *fakeCaptureStats) RecordFailure(cameraID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[cameraID]++
}

func (s *fakeCaptureStats) capturedCount(cameraID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captured[cameraID]
}

func TestWorkerCapturesFramesFromLocalFile(t *testing.T) {
	path := writeTestJPEGFile(t, 3)
	q := frame.NewQueue(4)
	stats := newFakeCaptureStats()

	w := New(zap.NewNop(), Config{
		CameraID:  7,
		SourcePath: path,
		TargetFPS: 60,
	}, q, frame.NewSlot(), stats)

	w.Start()
	defer w.Stop()

	require.Eventually(t, func() bool {
		return q.Len() > 0
	}, 2*time.Second, 10*time.Millisecond)

	f := q.Poll()
	require.NotNil(t, f)
	require.Equal(t, 7, f.CameraID)
	require.Equal(t, 4, f.Width)
	require.Equal(t, 4, f.Height)

	require.Eventually(t, func() bool {
		return stats.capturedCount(7) > 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorkerPopulatesLatestSlotIndependentlyOfQueue(t *testing.T) {
	path := writeTestJPEGFile(t, 1)
	q := frame.NewQueue(2)
	latest := frame.NewSlot()

	w := New(zap.NewNop(), Config{CameraID: 3, SourcePath: path, TargetFPS: 60}, q, latest, nil)
	w.Start()
	defer w.Stop()

	require.Eventually(t, func() bool {
		return latest.PeekCopy() != nil
	}, 2*time.Second, 10*time.Millisecond)

	f := latest.PeekCopy()
	require.Equal(t, 3, f.CameraID)
}

func TestWorkerReachesConnectedState(t *testing.T) {
	path := writeTestJPEGFile(t, 1)
	q := frame.NewQueue(2)

	w := New(zap.NewNop(), Config{CameraID: 1, SourcePath: path, TargetFPS: 30}, q, nil, nil)
	w.Start()
	defer w.Stop()

	require.Eventually(t, func() bool {
		return w.State() == StateConnected
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorkerStopIsTimely(t *testing.T) {
	path := writeTestJPEGFile(t, 1)
	q := frame.NewQueue(2)

	w := New(zap.NewNop(), Config{CameraID: 1, SourcePath: path, TargetFPS: 30}, q, nil, nil)
	w.Start()

	require.Eventually(t, func() bool { return w.State() == StateConnected }, 2*time.Second, 10*time.Millisecond)

	start := time.Now()
	w.Stop()
	require.Less(t, time.Since(start), 3*time.Second)
}
