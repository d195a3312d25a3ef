package supervisor

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"coalguard/internal/actuator"
	"coalguard/internal/capture"
	"coalguard/internal/detect"
	"coalguard/internal/events"
	"coalguard/internal/frame"
	"coalguard/internal/predictor"
	"coalguard/internal/roi"
)

// StatsSink receives per-frame inference timing plus the capture-side
// counters (§4.11/§3), decoupling supervisor from the concrete stats
// collector. It is also passed straight through to the capture worker,
// which only needs the capture.StatsSink subset — Go's structural typing
// lets one concrete Collector satisfy both.
type StatsSink interface {
	RecordInference(cameraID int, elapsedMS float64)
	RecordFrameCaptured(cameraID int)
	RecordReconnect(cameraID int)
	RecordFailure(cameraID int)
}

// SnapshotSink receives frames worth persisting on an alarm edge (§4.10).
type SnapshotSink interface {
	WriteSnapshot(cameraID int, f *frame.Frame, personArmed, coalArmed bool)
}

// DefaultDetectionPeriod is the target detection cycle period (§4.8
// "target detection period, default 500 ms"): the detection loop paces
// itself to this period independent of capture rate, the way
// camera_monitor.py's _detection_loop() sleeps out the remainder of
// detection_interval after each cycle.
const DefaultDetectionPeriod = 500 * time.Millisecond

// Config parameterizes one camera's supervisor. Threshold fields left at
// zero fall back to internal/detect's spec.md §4.5/§4.6 defaults.
type Config struct {
	CameraID            int
	Capture             capture.Config
	ConfidenceThreshold float64
	PersonZone          *roi.Cache
	CoalZone            *roi.Cache
	PollInterval        time.Duration // how often the detection loop checks the queue when empty
	DetectionPeriod     time.Duration // target detection cycle period (§4.8), default 500ms

	PersonOnThreshold  int
	PersonOffThreshold int
	CoalOnThreshold    int
	CoalOffThreshold   int
	CoalRatioThreshold float64
	CoalDisabled       bool
}

// Supervisor owns one camera's capture worker plus its detection loop:
// drain the handoff queue to the newest frame, run the shared predictor
// pool, run both hysteresis detectors against their cached ROI masks, and
// on an arm/disarm edge drive the alarm actuator and persistence (§4.8).
type Supervisor struct {
	log    *zap.Logger
	cfg    Config
	pool   *predictor.Pool
	act    *actuator.Actuator
	stream *events.Stream
	stats  StatsSink
	snaps  SnapshotSink

	queue   *frame.Queue
	latest  *frame.Slot
	worker  *capture.Worker
	person  *detect.PersonDetector
	coal    *detect.CoalDetector

	state  atomic.Int32
	stopCh chan struct{}
	doneCh chan struct{}
}

// New constructs a Supervisor. pool and act are shared across cameras
// (pool) or owned one-per-camera (act); stats/snaps/stream may be nil in
// tests that don't care about side channels.
func New(log *zap.Logger, cfg Config, pool *predictor.Pool, act *actuator.Actuator, stream *events.Stream, stats StatsSink, snaps SnapshotSink) (*Supervisor, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 20 * time.Millisecond
	}
	if cfg.DetectionPeriod <= 0 {
		cfg.DetectionPeriod = DefaultDetectionPeriod
	}
	personOn, personOff := orDefault(cfg.PersonOnThreshold, detect.DefaultPersonOnThreshold), orDefault(cfg.PersonOffThreshold, detect.DefaultPersonOffThreshold)
	coalOn, coalOff := orDefault(cfg.CoalOnThreshold, detect.DefaultCoalOnThreshold), orDefault(cfg.CoalOffThreshold, detect.DefaultCoalOffThreshold)
	coalRatio := cfg.CoalRatioThreshold
	if coalRatio <= 0 {
		coalRatio = detect.DefaultCoalRatioThreshold
	}

	personID, coalID, err := pool.ClassIDs(cfg.CameraID)
	if err != nil {
		return nil, err
	}

	coalDetector := detect.NewCoalDetector(coalID, coalRatio, coalOn, coalOff)
	coalDetector.Enabled = !cfg.CoalDisabled

	s := &Supervisor{
		log:    log,
		cfg:    cfg,
		pool:   pool,
		act:    act,
		stream: stream,
		stats:  stats,
		snaps:  snaps,
		queue:  frame.NewQueue(frame.DefaultQueueCapacity),
		latest: frame.NewSlot(),
		person: detect.NewPersonDetector(personID, personOn, personOff),
		coal:   coalDetector,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	s.state.Store(int32(StateStopped))
	return s, nil
}

func (s *Supervisor) State() State { return State(s.state.Load()) }

// Latest returns the most recently captured frame (a deep copy), for the
// UI's tiled live view (§4.12).
func (s *Supervisor) Latest() *frame.Frame { return s.latest.PeekCopy() }

func (s *Supervisor) PersonArmed() bool { return s.person.Armed() }
func (s *Supervisor) CoalArmed() bool   { return s.coal.Armed() }

// Start brings the supervisor from stopped to running: launch the capture
// worker and the detection loop.
func (s *Supervisor) Start() {
	s.state.Store(int32(StateStarting))
	s.worker = capture.New(s.log, s.cfg.Capture, s.queue, s.latest, s.stats)
	s.worker.Start()
	go s.detectionLoop()
	s.state.Store(int32(StateRunning))
}

// Stop halts the capture worker and detection loop, then clears every
// alarm bit this camera owns (§4.8, §4.7 Shutdown).
func (s *Supervisor) Stop() {
	s.state.Store(int32(StateStopping))
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	<-s.doneCh
	if s.worker != nil {
		s.worker.Stop()
	}
	s.person.Reset()
	s.coal.Reset()
	if s.act != nil {
		s.act.Shutdown()
	}
	s.state.Store(int32(StateStopped))
}

func (s *Supervisor) detectionLoop() {
	defer close(s.doneCh)

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		f := s.queue.DrainToLatest()
		if f == nil {
			select {
			case <-s.stopCh:
				return
			case <-time.After(s.cfg.PollInterval):
				continue
			}
		}

		cycleStart := time.Now()
		s.processFrame(f)

		remaining := s.cfg.DetectionPeriod - time.Since(cycleStart)
		if remaining > 0 {
			select {
			case <-s.stopCh:
				return
			case <-time.After(remaining):
			}
		}
	}
}

func (s *Supervisor) processFrame(f *frame.Frame) {
	pred, err := s.pool.Predict(f.CameraID, f.Pix, f.Width, f.Height, s.cfg.ConfidenceThreshold)
	if err != nil {
		s.publish(events.KindSystemError, "inference failed: "+err.Error())
		return
	}

	personMask := s.cfg.PersonZone.MaskFor(f.Width, f.Height)
	coalMask := s.cfg.CoalZone.MaskFor(f.Width, f.Height)

	personResult := s.person.Update(pred, personMask, f.Width, f.Height)
	coalResult := s.coal.Update(pred, coalMask, f.Width, f.Height)

	s.applyEdge(detect.Edge(personResult.Edge), actuator.Person, "person")
	s.applyEdge(detect.Edge(coalResult.Edge), actuator.Coal, "coal")

	if (personResult.Edge == detect.ArmEdge || coalResult.Edge == detect.ArmEdge) && s.snaps != nil {
		s.snaps.WriteSnapshot(f.CameraID, f, s.person.Armed(), s.coal.Armed())
	}
}

func (s *Supervisor) applyEdge(edge detect.Edge, kind actuator.Kind, label string) {
	switch edge {
	case detect.ArmEdge:
		if s.act != nil {
			if err := s.act.Set(kind, true); err != nil {
				s.log.Warn("actuator set failed", zap.String("kind", label), zap.Error(err))
			}
		}
		s.publish(events.KindAlarmArmed, label+" alarm armed")
	case detect.DisarmEdge:
		if s.act != nil {
			if err := s.act.Set(kind, false); err != nil {
				s.log.Warn("actuator clear failed", zap.String("kind", label), zap.Error(err))
			}
		}
		s.publish(events.KindAlarmDisarmed, label+" alarm disarmed")
	}
}

func (s *Supervisor) publish(kind events.Kind, msg string) {
	if s.stream == nil {
		return
	}
	s.stream.Publish(events.Event{
		Kind:      kind,
		CameraID:  s.cfg.CameraID,
		Message:   msg,
		Timestamp: time.Now(),
	})
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
