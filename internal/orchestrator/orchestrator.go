package orchestrator

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"coalguard/internal/actuator"
	"coalguard/internal/capture"
	"coalguard/internal/events"
	"coalguard/internal/plc"
	"coalguard/internal/predictor"
	"coalguard/internal/roi"
	"coalguard/internal/supervisor"
)

// captureConfig builds a capture.Config from a camera's wiring, leaving
// GrabSkip/FailureThreshold at zero so capture.New applies its own
// defaults (§4.2).
func captureConfig(cam CameraConfig) capture.Config {
	return capture.Config{
		CameraID:   cam.ID,
		SourcePath: cam.Source,
		TargetFPS:  cam.TargetFPS,
	}
}

// DefaultShutdownDeadline is the per-supervisor stop deadline when a
// Config leaves ShutdownDeadline unset (§4.9, §5).
const DefaultShutdownDeadline = 2 * time.Second

// cameraUnit is everything one enabled camera owns: its supervisor plus
// the PLC link the supervisor's actuator was built around, so Stop can
// tear them down in the right order (supervisor first, then the link).
type cameraUnit struct {
	id  int
	sup *supervisor.Supervisor
	link *plc.Link
}

// Orchestrator owns the shared predictor pool, one Camera Supervisor per
// enabled camera, and the event stream they all publish to (§4.9). It is
// the top-level lifecycle object cmd/coalguard constructs.
type Orchestrator struct {
	log    *zap.Logger
	pool   *predictor.Pool
	stream *events.Stream
	stats  supervisor.StatsSink
	snaps  supervisor.SnapshotSink

	shutdownDeadline time.Duration

	mu       sync.Mutex
	units    []cameraUnit
	camErrs  map[int]error // config-validation or model-load failures, by camera id
}

// New validates cfg, loads models into a Predictor Pool through loader,
// builds each camera's PLC client with newClient, and constructs (but does
// not start) one Supervisor per
// camera that survives validation and model routing. Cameras that fail
// either step are recorded in CameraErrors and excluded; construction
// continues with the rest (§4.9, §7 "Configuration error ... marked error
// and excluded; other cameras proceed").
//
// newClient builds the plc.Client for a camera's ConnIdentity — callers
// pass plc.NewGOS7Client in production and a fake in tests, keeping this
// package free of a direct gos7 dependency.
func New(log *zap.Logger, cfg Config, load predictor.Loader, newClient func(plc.ConnIdentity) plc.Client, stream *events.Stream, stats supervisor.StatsSink, snaps supervisor.SnapshotSink) *Orchestrator {
	deadline := cfg.ShutdownDeadline
	if deadline <= 0 {
		deadline = DefaultShutdownDeadline
	}

	o := &Orchestrator{
		log:              log,
		stream:           stream,
		stats:            stats,
		snaps:            snaps,
		shutdownDeadline: deadline,
		camErrs:          make(map[int]error),
	}

	valid, errs := validateCameras(cfg.Cameras)
	for id, err := range errs {
		o.camErrs[id] = err
		o.log.Error("camera excluded by configuration error", zap.Int("camera_id", id), zap.Error(err))
		o.publish(id, events.KindSystemError, "configuration error: "+err.Error())
	}

	o.pool = predictor.NewPool(log, reporterAdapter{stats})
	o.pool.Load(cfg.Models, load)

	for _, cam := range valid {
		if !cam.Enabled {
			continue
		}
		if err := o.pool.FailureFor(cam.ID); err != nil {
			o.camErrs[cam.ID] = err
			o.publish(cam.ID, events.KindModelLoadFailure, "model load failed: "+err.Error())
			continue
		}

		unit, err := o.buildCamera(cam, newClient)
		if err != nil {
			o.camErrs[cam.ID] = err
			o.log.Error("camera construction failed", zap.Int("camera_id", cam.ID), zap.Error(err))
			o.publish(cam.ID, events.KindSystemError, "camera construction failed: "+err.Error())
			continue
		}
		o.units = append(o.units, unit)
	}

	return o
}

func (o *Orchestrator) buildCamera(cam CameraConfig, newClient func(plc.ConnIdentity) plc.Client) (cameraUnit, error) {
	link := plc.NewLink(o.log, newClient(cam.PLC), cam.PLCHealthCheckPeriod)
	if err := link.Connect(); err != nil {
		o.log.Warn("initial plc connect failed, will retry via health check",
			zap.Int("camera_id", cam.ID), zap.Error(err))
	}
	go link.RunHealthCheck()

	act := actuator.New(o.log, link, cam.PersonAddr, cam.CoalAddr)

	personZone := roi.NewCache(cam.PersonZone, cam.ReferenceWidth, cam.ReferenceHeight)
	coalZone := roi.NewCache(cam.CoalZone, cam.ReferenceWidth, cam.ReferenceHeight)

	sup, err := supervisor.New(o.log, supervisor.Config{
		CameraID: cam.ID,
		Capture: captureConfig(cam),
		ConfidenceThreshold: cam.ConfidenceThreshold,
		DetectionPeriod:     cam.DetectionPeriod,
		PersonZone:          personZone,
		CoalZone:            coalZone,
		PersonOnThreshold:   cam.PersonOnThreshold,
		PersonOffThreshold:  cam.PersonOffThreshold,
		CoalOnThreshold:     cam.CoalOnThreshold,
		CoalOffThreshold:    cam.CoalOffThreshold,
		CoalRatioThreshold:  cam.CoalRatioThreshold,
		CoalDisabled:        cam.CoalDisabled,
	}, o.pool, act, o.stream, o.stats, o.snaps)
	if err != nil {
		link.Stop()
		return cameraUnit{}, err
	}

	return cameraUnit{id: cam.ID, sup: sup, link: link}, nil
}

// Start launches every constructed camera's supervisor.
func (o *Orchestrator) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, u := range o.units {
		u.sup.Start()
		o.publish(u.id, events.KindCameraStateChange, "camera started")
	}
}

// Stop stops every supervisor in parallel, each bounded by the configured
// per-supervisor deadline, then tears down the shared predictor pool
// (§4.9: "stop all supervisors in parallel with a per-supervisor deadline
// ... then tear down the predictor pool"). A supervisor that doesn't stop
// within the deadline is logged and abandoned rather than blocking the
// rest of the fleet.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	units := append([]cameraUnit(nil), o.units...)
	o.mu.Unlock()

	var wg sync.WaitGroup
	for _, u := range units {
		wg.Add(1)
		go func(u cameraUnit) {
			defer wg.Done()
			o.stopOne(u)
		}(u)
	}
	wg.Wait()

	o.pool.Close()
}

func (o *Orchestrator) stopOne(u cameraUnit) {
	done := make(chan struct{})
	go func() {
		u.sup.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(o.shutdownDeadline):
		o.log.Warn("supervisor stop exceeded deadline, abandoning", zap.Int("camera_id", u.id))
	}
	u.link.Stop()
	o.publish(u.id, events.KindCameraStateChange, "camera stopped")
}

// CameraErrors returns the configuration or model-load errors recorded
// for excluded cameras, keyed by camera id.
func (o *Orchestrator) CameraErrors() map[int]error {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[int]error, len(o.camErrs))
	for k, v := range o.camErrs {
		out[k] = v
	}
	return out
}

// Cameras returns the camera ids running under this orchestrator.
func (o *Orchestrator) Cameras() []int {
	o.mu.Lock()
	defer o.mu.Unlock()
	ids := make([]int, len(o.units))
	for i, u := range o.units {
		ids[i] = u.id
	}
	return ids
}

// Supervisor returns the supervisor for cameraID, or nil if it isn't
// running (excluded at construction, or an unknown id) — used by the UI's
// tiled live view (§4.12) and --headless status line.
func (o *Orchestrator) Supervisor(cameraID int) *supervisor.Supervisor {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, u := range o.units {
		if u.id == cameraID {
			return u.sup
		}
	}
	return nil
}

func (o *Orchestrator) publish(cameraID int, kind events.Kind, msg string) {
	if o.stream == nil {
		return
	}
	o.stream.Publish(events.Event{Kind: kind, CameraID: cameraID, Message: msg, Timestamp: time.Now()})
}

// reporterAdapter lets supervisor.StatsSink (RecordInference) also satisfy
// predictor.Reporter (ReportInference), without internal/stats knowing
// about predictor's model-id parameter.
type reporterAdapter struct {
	sink supervisor.StatsSink
}

func (r reporterAdapter) ReportInference(cameraID int, modelID string, elapsedMS float64) {
	if r.sink == nil {
		return
	}
	r.sink.RecordInference(cameraID, elapsedMS)
}
