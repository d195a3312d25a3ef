package persistence

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEventLogWritesAndThrottles(t *testing.T) {
	dir := t.TempDir()
	el := NewEventLog(zap.NewNop(), dir, time.Hour)
	defer el.Close()

	now := time.Now()
	el.Record(AlertRecord{Timestamp: now, AlertType: "person_detection", CameraID: 1, Severity: "HIGH", Description: "a"}, false)
	el.Record(AlertRecord{Timestamp: now, AlertType: "person_detection", CameraID: 1, Severity: "HIGH", Description: "b"}, false)

	path := filepath.Join(dir, now.Format("20060102"), "camera_1.log")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "description=\"a\"")
	require.NotContains(t, string(data), "description=\"b\"")
}

func TestEventLogForceBypassesThrottle(t *testing.T) {
	dir := t.TempDir()
	el := NewEventLog(zap.NewNop(), dir, time.Hour)
	defer el.Close()

	now := time.Now()
	el.Record(AlertRecord{Timestamp: now, AlertType: "system_start", CameraID: 0, Description: "start"}, true)
	el.Record(AlertRecord{Timestamp: now, AlertType: "system_start", CameraID: 0, Description: "start again"}, true)

	path := filepath.Join(dir, now.Format("20060102"), "camera_0.log")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "start again")
}

func TestEventLogSeparatesCamerasAndDays(t *testing.T) {
	dir := t.TempDir()
	el := NewEventLog(zap.NewNop(), dir, time.Hour)
	defer el.Close()

	now := time.Now()
	el.Record(AlertRecord{Timestamp: now, AlertType: "person_detection", CameraID: 1, Description: "cam1"}, false)
	el.Record(AlertRecord{Timestamp: now, AlertType: "person_detection", CameraID: 2, Description: "cam2"}, false)

	_, err1 := os.Stat(filepath.Join(dir, now.Format("20060102"), "camera_1.log"))
	_, err2 := os.Stat(filepath.Join(dir, now.Format("20060102"), "camera_2.log"))
	require.NoError(t, err1)
	require.NoError(t, err2)
}
