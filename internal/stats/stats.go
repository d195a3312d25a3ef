// Package stats implements the Stats Collector (§4.11): per-camera
// rolling inference timing, a system summary, Prometheus metrics
// (grounded on asicamera2's jpeg pool), and an advisory host probe
// (grounded on cam-bus's supervisor, which holds its own gopsutil
// process.Process handle).
package stats

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// rollingWindowSize is the sample count for the rolling avg/min/max
// (§4.11 "last 100 samples"), a fixed-size ring replacing the Python
// original's list-based buffer (SPEC_FULL.md supplement #3).
const rollingWindowSize = 100

var (
	inferenceLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coalguard_inference_latency_ms",
			Help:    "Inference latency per camera, in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"camera"},
	)
	inferenceTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coalguard_inferences_total",
			Help: "Total inferences run per camera",
		},
		[]string{"camera"},
	)
	reconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coalguard_capture_reconnects_total",
			Help: "Total capture reconnects per camera",
		},
		[]string{"camera"},
	)
)

// CameraStats is one camera's current snapshot (§3 "Statistics record").
type CameraStats struct {
	CameraID        int
	FramesCaptured  uint64
	FramesInferred  uint64
	LastMS          float64
	AvgMS           float64
	MinMS           float64
	MaxMS           float64
	Reconnects      uint64
	Failures        uint64
	InferenceFPS    float64
}

// SystemSummary aggregates every camera's stats (§4.11).
type SystemSummary struct {
	ActiveCameras    int
	TotalInferences  uint64
	MeanInferenceMS  float64
	AggregateFPS     float64
}

type cameraState struct {
	mu             sync.Mutex
	ring           [rollingWindowSize]float64
	count          int
	next           int
	framesCaptured uint64
	framesInferred uint64
	reconnects     uint64
	failures       uint64
	windowStart    time.Time
	windowFrames   int
}

// Collector is the global, concurrent-safe stats registry (§4.11). It
// satisfies both internal/predictor.Reporter and internal/supervisor's
// StatsSink interfaces structurally.
type Collector struct {
	mu    sync.Mutex
	byCam map[int]*cameraState
}

// New constructs an empty Collector.
func New() *Collector {
	return &Collector{byCam: make(map[int]*cameraState)}
}

func (c *Collector) stateFor(cameraID int) *cameraState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.byCam[cameraID]
	if !ok {
		st = &cameraState{windowStart: time.Now()}
		c.byCam[cameraID] = st
	}
	return st
}

// ReportInference implements internal/predictor.Reporter.
func (c *Collector) ReportInference(cameraID int, modelID string, elapsedMS float64) {
	c.RecordInference(cameraID, elapsedMS)
}

// RecordInference implements internal/supervisor.StatsSink: records one
// inference's latency into the rolling window and Prometheus metrics.
func (c *Collector) RecordInference(cameraID int, elapsedMS float64) {
	label := camLabel(cameraID)
	inferenceLatency.WithLabelValues(label).Observe(elapsedMS)
	inferenceTotal.WithLabelValues(label).Inc()

	st := c.stateFor(cameraID)
	st.mu.Lock()
	defer st.mu.Unlock()

	st.ring[st.next] = elapsedMS
	st.next = (st.next + 1) % rollingWindowSize
	if st.count < rollingWindowSize {
		st.count++
	}
	st.framesInferred++
	st.windowFrames++
}

// RecordFrameCaptured increments a camera's captured-frame counter.
func (c *Collector) RecordFrameCaptured(cameraID int) {
	st := c.stateFor(cameraID)
	st.mu.Lock()
	st.framesCaptured++
	st.mu.Unlock()
}

// RecordReconnect increments a camera's reconnect counter.
func (c *Collector) RecordReconnect(cameraID int) {
	reconnectsTotal.WithLabelValues(camLabel(cameraID)).Inc()
	st := c.stateFor(cameraID)
	st.mu.Lock()
	st.reconnects++
	st.mu.Unlock()
}

// RecordFailure increments a camera's failure counter.
func (c *Collector) RecordFailure(cameraID int) {
	st := c.stateFor(cameraID)
	st.mu.Lock()
	st.failures++
	st.mu.Unlock()
}

// Snapshot returns cameraID's current stats record.
func (c *Collector) Snapshot(cameraID int) CameraStats {
	st := c.stateFor(cameraID)
	st.mu.Lock()
	defer st.mu.Unlock()

	out := CameraStats{
		CameraID:       cameraID,
		FramesCaptured: st.framesCaptured,
		FramesInferred: st.framesInferred,
		Reconnects:     st.reconnects,
		Failures:       st.failures,
	}
	if st.count == 0 {
		return out
	}

	var sum, min, max float64
	min = st.ring[0]
	for i := 0; i < st.count; i++ {
		v := st.ring[i]
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	lastIdx := (st.next - 1 + rollingWindowSize) % rollingWindowSize
	out.LastMS = st.ring[lastIdx]
	out.AvgMS = sum / float64(st.count)
	out.MinMS = min
	out.MaxMS = max

	elapsed := time.Since(st.windowStart).Seconds()
	if elapsed > 0 {
		out.InferenceFPS = float64(st.windowFrames) / elapsed
	}
	return out
}

// Summary aggregates every known camera's current stats (§4.11).
func (c *Collector) Summary() SystemSummary {
	c.mu.Lock()
	ids := make([]int, 0, len(c.byCam))
	for id := range c.byCam {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	var summary SystemSummary
	var msSum float64
	var msCount int
	for _, id := range ids {
		snap := c.Snapshot(id)
		summary.ActiveCameras++
		summary.TotalInferences += snap.FramesInferred
		summary.AggregateFPS += snap.InferenceFPS
		if snap.FramesInferred > 0 {
			msSum += snap.AvgMS
			msCount++
		}
	}
	if msCount > 0 {
		summary.MeanInferenceMS = msSum / float64(msCount)
	}
	return summary
}

func camLabel(cameraID int) string {
	return "camera_" + strconv.Itoa(cameraID)
}
