package capture

import (
	"bytes"
	"context"
	"image"
	"image/draw"
	"image/jpeg"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"coalguard/internal/frame"
)

// DefaultGrabSkip is GRAB_SKIP from §4.2: the grab buffer holds this many
// cheap, undecoded frames and only the newest is decoded, so up to
// GrabSkip-1 of them may be discarded per decode.
const DefaultGrabSkip = 2

// DefaultFailureThreshold is the number of consecutive read failures
// before the worker declares the connection lost and enters Reconnecting
// (§4.2).
const DefaultFailureThreshold = 3

// Config parameterizes one camera's capture worker.
type Config struct {
	CameraID         int
	SourcePath       string
	TargetFPS        float64
	GrabSkip         int
	FailureThreshold int
}

// StatsSink receives capture-side counters, decoupling the worker from the
// concrete stats collector (§3 "frames captured, ..., reconnects,
// failures"). Satisfied structurally by internal/stats.Collector.
type StatsSink interface {
	RecordFrameCaptured(cameraID int)
	RecordReconnect(cameraID int)
	RecordFailure(cameraID int)
}

// Worker owns one camera's capture goroutine: connect, grab-skip, decode,
// pace, hand off to the queue; reconnect with backoff on failure (§4.2).
type Worker struct {
	log    *zap.Logger
	cfg    Config
	out    *frame.Queue
	latest *frame.Slot
	stats  StatsSink

	state  atomic.Int32
	nextID atomic.Uint64

	stopCh chan struct{}
	doneCh chan struct{}
}

// New constructs a capture worker writing decoded frames into out and the
// most recent frame into latest (§4.2 step 2 "on success: publish frame to
// latest-slot and offer to handoff queue"). latest and stats may be nil.
func New(log *zap.Logger, cfg Config, out *frame.Queue, latest *frame.Slot, stats StatsSink) *Worker {
	if cfg.GrabSkip <= 0 {
		cfg.GrabSkip = DefaultGrabSkip
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	w := &Worker{
		log:    log,
		cfg:    cfg,
		out:    out,
		latest: latest,
		stats:  stats,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	w.state.Store(int32(StateIdle))
	return w
}

func (w *Worker) State() State { return State(w.state.Load()) }

// Start launches the capture loop in its own goroutine.
func (w *Worker) Start() {
	go w.run()
}

// Stop requests the capture loop exit, waiting up to 2s for a clean exit
// before returning regardless. When the deadline passes, Stop only logs a
// warning: it does not close the source itself; the capture goroutine
// closes it when it eventually exits.
func (w *Worker) Stop() {
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	select {
	case <-w.doneCh:
	case <-time.After(2 * time.Second):
		w.log.Warn("capture worker did not stop within deadline", zap.Int("camera_id", w.cfg.CameraID))
	}
}

func (w *Worker) newSource() Source {
	if ResolveSourceKind(w.cfg.SourcePath) == SourceRTSP {
		return newRTSPSource(w.cfg.SourcePath, w.cfg.GrabSkip)
	}
	return newFileSource(w.cfg.SourcePath, w.cfg.GrabSkip)
}

func (w *Worker) run() {
	defer close(w.doneCh)
	defer w.state.Store(int32(StateStopped))

	backoff := NewBackoff()

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		w.state.Store(int32(StateConnecting))
		src := w.newSource()
		ctx, cancel := context.WithCancel(context.Background())

		if err := src.Open(ctx); err != nil {
			w.log.Warn("capture: failed to open source", zap.Int("camera_id", w.cfg.CameraID), zap.Error(err))
			cancel()
			w.state.Store(int32(StateReconnecting))
			w.recordReconnect()
			if !w.sleepOrStop(backoff.Next()) {
				return
			}
			continue
		}

		w.state.Store(int32(StateConnected))
		if w.latest != nil {
			w.latest.Reset()
		}
		backoff.Reset()
		stillGood := w.captureUntilFailure(ctx, src)
		cancel()
		_ = src.Close()

		if !stillGood {
			return // stop was requested mid-capture
		}

		w.state.Store(int32(StateReconnecting))
		w.recordReconnect()
		if !w.sleepOrStop(backoff.Next()) {
			return
		}
	}
}

// captureUntilFailure reads frames until FailureThreshold consecutive
// reads fail or Stop is requested. Returns false if Stop was requested.
func (w *Worker) captureUntilFailure(ctx context.Context, src Source) bool {
	failures := 0
	minInterval := targetInterval(w.cfg.TargetFPS)

	for {
		select {
		case <-w.stopCh:
			return false
		default:
		}

		readCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		data, capturedAt, err := src.ReadLatest(readCtx)
		cancel()

		if err != nil {
			failures++
			w.recordFailure()
			if failures >= w.cfg.FailureThreshold {
				w.log.Warn("capture: consecutive read failures, reconnecting",
					zap.Int("camera_id", w.cfg.CameraID), zap.Int("failures", failures))
				return true
			}
			continue
		}
		failures = 0

		f, err := w.decode(data, capturedAt)
		if err != nil {
			continue // corrupt frame: skip, don't count as a connection failure
		}
		if w.latest != nil {
			w.latest.Put(f.Clone())
		}
		w.recordFrameCaptured()
		w.out.Offer(f)

		if !w.sleepOrStop(minInterval) {
			return false
		}
	}
}

func (w *Worker) recordFrameCaptured() {
	if w.stats != nil {
		w.stats.RecordFrameCaptured(w.cfg.CameraID)
	}
}

func (w *Worker) recordReconnect() {
	if w.stats != nil {
		w.stats.RecordReconnect(w.cfg.CameraID)
	}
}

func (w *Worker) recordFailure() {
	if w.stats != nil {
		w.stats.RecordFailure(w.cfg.CameraID)
	}
}

// targetInterval converts a target FPS into a pacing sleep, with a 10ms
// floor (§4.2 "pacing sleep to 1/target_fps, minimum 10ms granularity").
func targetInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = 15
	}
	d := time.Duration(float64(time.Second) / fps)
	if d < 10*time.Millisecond {
		d = 10 * time.Millisecond
	}
	return d
}

// sleepOrStop sleeps for d, returning false early if Stop is requested.
func (w *Worker) sleepOrStop(d time.Duration) bool {
	select {
	case <-w.stopCh:
		return false
	case <-time.After(d):
		return true
	}
}

func (w *Worker) decode(data []byte, capturedAt time.Time) (*frame.Frame, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	return &frame.Frame{
		CameraID:   w.cfg.CameraID,
		ID:         w.nextID.Add(1),
		Width:      width,
		Height:     height,
		Stride:     rgba.Stride,
		Pix:        rgba.Pix,
		CapturedAt: capturedAt,
	}, nil
}
