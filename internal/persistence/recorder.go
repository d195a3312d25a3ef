package persistence

import (
	"time"

	"coalguard/internal/events"
	"coalguard/internal/frame"
	"coalguard/internal/roi"
)

// CameraZones is the pair of ROI polygons drawn onto a camera's snapshots.
type CameraZones struct {
	Person roi.Polygon
	Coal   roi.Polygon
}

// Recorder bridges the orchestrator's event stream and camera supervisors'
// frame output to the two persistence sinks. It implements the Camera
// Supervisor's SnapshotSink interface structurally (WriteSnapshot) so
// internal/supervisor never imports internal/persistence.
type Recorder struct {
	eventLog  *EventLog
	snapshots *SnapshotWriter
	zones     map[int]CameraZones
}

// NewRecorder constructs a Recorder over both sinks and each camera's ROI
// polygons (used only for the snapshot overlay).
func NewRecorder(eventLog *EventLog, snapshots *SnapshotWriter, zones map[int]CameraZones) *Recorder {
	return &Recorder{eventLog: eventLog, snapshots: snapshots, zones: zones}
}

// WriteSnapshot persists one alarm-triggered still (§4.10).
func (r *Recorder) WriteSnapshot(cameraID int, f *frame.Frame, personArmed, coalArmed bool) {
	alertType := "person_detection"
	if coalArmed {
		alertType = "coal_blockage"
	}
	zones := r.zones[cameraID]
	r.snapshots.Write(Snapshot{
		CameraID:    cameraID,
		Frame:       f,
		PersonZone:  zones.Person,
		CoalZone:    zones.Coal,
		PersonArmed: personArmed,
		CoalArmed:   coalArmed,
		AlertType:   alertType,
		Timestamp:   f.CapturedAt,
	})
}

// Run subscribes to stream and appends one event-log record per alarm edge
// until stopCh closes. System events (model-load failure, PLC link state
// changes) bypass the throttle (force=true, §4.10).
func (r *Recorder) Run(stream *events.Stream, stopCh <-chan struct{}) {
	ch, unsub := stream.Subscribe()
	defer unsub()

	for {
		select {
		case <-stopCh:
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			r.handle(e)
		}
	}
}

func (r *Recorder) handle(e events.Event) {
	severity := "INFO"
	force := false
	switch e.Kind {
	case events.KindAlarmArmed:
		severity = "HIGH"
	case events.KindAlarmDisarmed:
		severity = "INFO"
	case events.KindModelLoadFailure, events.KindSystemError:
		severity = "ERROR"
		force = true
	case events.KindCameraStateChange, events.KindPLCStateChange:
		severity = "WARNING"
		force = true
	}

	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	r.eventLog.Record(AlertRecord{
		Timestamp:   ts,
		AlertType:   string(e.Kind),
		CameraID:    e.CameraID,
		Severity:    severity,
		Description: e.Message,
		Fields:      e.Fields,
	}, force)
}
