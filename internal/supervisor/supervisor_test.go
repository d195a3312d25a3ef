package supervisor

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"coalguard/internal/actuator"
	"coalguard/internal/capture"
	"coalguard/internal/plc"
	"coalguard/internal/predictor"
	"coalguard/internal/roi"
)

type fakeModel struct {
	detections []predictor.Detection
	calls      atomic.Int64
}

func (m *fakeModel) Infer(pix []byte, width, height int, confidenceThreshold float64) (predictor.Prediction, error) {
	m.calls.Add(1)
	return predictor.Prediction{Detections: m.detections}, nil
}
func (m *fakeModel) ClassNames() map[int]string { return map[int]string{0: "person", 1: "coal"} }
func (m *fakeModel) Close() error               { return nil }

type fakePLCClient struct {
	mem map[int]byte
}

func newFakePLCClient() *fakePLCClient { return &fakePLCClient{mem: make(map[int]byte)} }

func (f *fakePLCClient) Connect() error                        { return nil }
func (f *fakePLCClient) Disconnect() error                     { return nil }
func (f *fakePLCClient) IsConnected() bool                     { return true }
func (f *fakePLCClient) ReadByte(db, offset int) (byte, error) { return f.mem[offset], nil }
func (f *fakePLCClient) WriteByte(db, offset int, v byte) error {
	f.mem[offset] = v
	return nil
}

func writeJPEGFrames(t *testing.T, n int) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "sup-frames-*.mjpeg")
	require.NoError(t, err)
	defer f.Close()

	for i := 0; i < n; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 4, 4))
		img.Set(0, 0, color.RGBA{uint8(i), 0, 0, 255})
		var buf bytes.Buffer
		require.NoError(t, jpeg.Encode(&buf, img, nil))
		_, err := f.Write(buf.Bytes())
		require.NoError(t, err)
	}
	return f.Name()
}

func buildSupervisor(t *testing.T, sourcePath string, personInZone bool) (*Supervisor, *fakePLCClient) {
	t.Helper()

	pool := predictor.NewPool(zap.NewNop(), nil)
	det := &fakeModel{}
	if personInZone {
		det.detections = []predictor.Detection{
			{ClassID: 0, Box: image.Rect(0, 0, 4, 4), Confidence: 0.9},
		}
	}
	pool.Load([]predictor.ModelSpec{{ID: "m1", Path: "fake", Cameras: []int{1}}}, func(string) (predictor.Model, error) {
		return det, nil
	})

	fc := newFakePLCClient()
	link := plc.NewLink(zap.NewNop(), fc, 0)
	require.NoError(t, link.Connect())
	act := actuator.New(zap.NewNop(), link,
		actuator.Address{DataBlock: 1, ByteOffset: 0, BitOffset: 0},
		actuator.Address{DataBlock: 1, ByteOffset: 1, BitOffset: 0})

	personPoly := roi.Polygon{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}}
	personZone := roi.NewCache(personPoly, 4, 4)
	coalZone := roi.NewCache(roi.Polygon{}, 4, 4)

	sup, err := New(zap.NewNop(), Config{
		CameraID: 1,
		Capture: capture.Config{
			CameraID:   1,
			SourcePath: sourcePath,
			TargetFPS:  60,
		},
		ConfidenceThreshold: 0.5,
		PersonZone:          personZone,
		CoalZone:            coalZone,
		PollInterval:        5 * time.Millisecond,
		DetectionPeriod:     5 * time.Millisecond,
	}, pool, act, nil, nil, nil)
	require.NoError(t, err)
	return sup, fc
}

func TestSupervisorArmsActuatorOnPersonInZone(t *testing.T) {
	path := writeJPEGFrames(t, 1)
	sup, fc := buildSupervisor(t, path, true)

	sup.Start()
	defer sup.Stop()

	require.Eventually(t, func() bool {
		return sup.PersonArmed()
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, byte(1), fc.mem[0])
}

func TestSupervisorNeverArmsWhenNoDetections(t *testing.T) {
	path := writeJPEGFrames(t, 1)
	sup, fc := buildSupervisor(t, path, false)

	sup.Start()
	defer sup.Stop()

	time.Sleep(200 * time.Millisecond)
	require.False(t, sup.PersonArmed())
	require.Equal(t, byte(0), fc.mem[0])
}

func TestSupervisorStateTransitions(t *testing.T) {
	path := writeJPEGFrames(t, 1)
	sup, _ := buildSupervisor(t, path, false)

	require.Equal(t, StateStopped, sup.State())
	sup.Start()
	require.Equal(t, StateRunning, sup.State())
	sup.Stop()
	require.Equal(t, StateStopped, sup.State())
}

// TestSupervisorDetectionPacesToDetectionPeriod asserts detectionLoop paces
// to Config.DetectionPeriod (§4.8 "target detection period") rather than
// running once per captured/queued frame. The capture side is deliberately
// fast (many frames, 5ms poll interval) so that an unpaced loop would drive
// the model far more often than the period allows.
func TestSupervisorDetectionPacesToDetectionPeriod(t *testing.T) {
	path := writeJPEGFrames(t, 200)

	pool := predictor.NewPool(zap.NewNop(), nil)
	det := &fakeModel{}
	pool.Load([]predictor.ModelSpec{{ID: "m1", Path: "fake", Cameras: []int{1}}}, func(string) (predictor.Model, error) {
		return det, nil
	})

	fc := newFakePLCClient()
	link := plc.NewLink(zap.NewNop(), fc, 0)
	require.NoError(t, link.Connect())
	act := actuator.New(zap.NewNop(), link,
		actuator.Address{DataBlock: 1, ByteOffset: 0, BitOffset: 0},
		actuator.Address{DataBlock: 1, ByteOffset: 1, BitOffset: 0})

	zone := roi.NewCache(roi.Polygon{}, 4, 4)

	const period = 150 * time.Millisecond
	sup, err := New(zap.NewNop(), Config{
		CameraID: 1,
		Capture: capture.Config{
			CameraID:   1,
			SourcePath: path,
			TargetFPS:  200,
		},
		ConfidenceThreshold: 0.5,
		PersonZone:          zone,
		CoalZone:            zone,
		PollInterval:        5 * time.Millisecond,
		DetectionPeriod:     period,
	}, pool, act, nil, nil, nil)
	require.NoError(t, err)

	sup.Start()
	const window = 650 * time.Millisecond
	time.Sleep(window)
	sup.Stop()

	calls := det.calls.Load()
	maxExpected := int64(window/period) + 2 // generous slack for scheduling jitter
	require.Greater(t, calls, int64(0), "expected at least one detection cycle")
	require.LessOrEqual(t, calls, maxExpected,
		"detection ran %d times in %s, faster than the %s period allows", calls, window, period)
}
