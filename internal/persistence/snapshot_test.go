package persistence

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"coalguard/internal/frame"
)

func testFrame() *frame.Frame {
	w, h := 8, 8
	pix := make([]byte, w*h*4)
	for i := range pix {
		pix[i] = 0x80
	}
	return &frame.Frame{CameraID: 1, ID: 1, Width: w, Height: h, Stride: w * 4, Pix: pix, CapturedAt: time.Now()}
}

func TestSnapshotWriterWritesFileAndThrottles(t *testing.T) {
	dir := t.TempDir()
	sw := NewSnapshotWriter(zap.NewNop(), dir, time.Hour, 0)

	sw.Write(Snapshot{CameraID: 1, Frame: testFrame(), AlertType: "person_detection", Timestamp: time.Now()})
	sw.Write(Snapshot{CameraID: 1, Frame: testFrame(), AlertType: "person_detection", Timestamp: time.Now()})

	var count int
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			count++
		}
		return nil
	})
	require.Equal(t, 1, count)
}

func TestSnapshotWriterEnforcesQuota(t *testing.T) {
	dir := t.TempDir()
	sw := NewSnapshotWriter(zap.NewNop(), dir, time.Nanosecond, 1) // quota of 1 byte, effectively unthrottled

	for i := 0; i < 3; i++ {
		sw.Write(Snapshot{CameraID: 1, Frame: testFrame(), AlertType: "person_detection", Timestamp: time.Now().Add(time.Duration(i) * time.Second)})
	}

	var total int64
	var count int
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			total += info.Size()
			count++
		}
		return nil
	})
	require.LessOrEqual(t, count, 1)
}
