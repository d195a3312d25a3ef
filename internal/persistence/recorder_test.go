package persistence

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"coalguard/internal/events"
)

func TestRecorderWritesSnapshotOnArm(t *testing.T) {
	dir := t.TempDir()
	sw := NewSnapshotWriter(zap.NewNop(), dir, time.Hour, 0)
	el := NewEventLog(zap.NewNop(), t.TempDir(), time.Hour)
	defer el.Close()

	rec := NewRecorder(el, sw, map[int]CameraZones{1: {}})
	rec.WriteSnapshot(1, testFrame(), true, false)

	var count int
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			count++
		}
		return nil
	})
	require.Equal(t, 1, count)
}

func TestRecorderLogsEventsFromStream(t *testing.T) {
	el := NewEventLog(zap.NewNop(), t.TempDir(), time.Hour)
	defer el.Close()
	rec := NewRecorder(el, NewSnapshotWriter(zap.NewNop(), t.TempDir(), time.Hour, 0), nil)

	stream := events.NewStream()
	stopCh := make(chan struct{})
	done := make(chan struct{})
	go func() {
		rec.Run(stream, stopCh)
		close(done)
	}()

	stream.Publish(events.Event{Kind: events.KindAlarmArmed, CameraID: 5, Message: "person in zone", Timestamp: time.Now()})
	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(el.baseDir, time.Now().Format("20060102"), "camera_5.log"))
		return err == nil
	}, time.Second, 10*time.Millisecond)

	close(stopCh)
	<-done
}
