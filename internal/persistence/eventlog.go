// Package persistence implements the two persistence sinks (§4.10): an
// append-only structured event log and a snapshot image writer, both
// throttled independently per (camera, alert kind) using
// golang.org/x/time/rate, grounded on 99souls-ariadne's engine.
package persistence

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultThrottle is the default per-(camera, alert-kind) throttle window
// for both sinks (§4.10, §6 alert_display_interval/image_save_interval).
const DefaultThrottle = 5 * time.Second

// AlertRecord is one event-log line (§6 "Event log format").
type AlertRecord struct {
	Timestamp   time.Time
	AlertType   string // "person_detection" | "coal_blockage" | system event name
	CameraID    int
	Severity    string // INFO|WARNING|ERROR|HIGH
	Description string
	Location    string
	CameraIP    string
	ActionTaken string
	Fields      map[string]any // frames_detected, threshold, coal_ratio, ...
}

type throttleKey struct {
	cameraID  int
	alertType string
}

// EventLog appends structured alert records to one file per (day, camera),
// throttled per (camera, alert type) unless force=true (§4.10).
type EventLog struct {
	log      *zap.Logger
	baseDir  string
	throttle time.Duration

	mu       sync.Mutex
	limiters map[throttleKey]*rate.Limiter
	files    map[string]*os.File
}

// NewEventLog constructs an event log rooted at baseDir (spec.md's
// artifacts_dir/logs split — callers pass the logs directory here).
func NewEventLog(log *zap.Logger, baseDir string, throttle time.Duration) *EventLog {
	if throttle <= 0 {
		throttle = DefaultThrottle
	}
	return &EventLog{
		log:      log,
		baseDir:  baseDir,
		throttle: throttle,
		limiters: make(map[throttleKey]*rate.Limiter),
		files:    make(map[string]*os.File),
	}
}

// Record appends rec to today's (day, camera) file, subject to the
// per-(camera, alert type) throttle unless force is true (system events,
// §4.10 "force=true bypass"). Write failures are logged, never propagated
// (§7 "Persistence errors: logged, not propagated").
func (e *EventLog) Record(rec AlertRecord, force bool) {
	if !force && !e.allow(rec.CameraID, rec.AlertType) {
		return
	}

	line := formatLine(rec)

	e.mu.Lock()
	defer e.mu.Unlock()

	f, err := e.fileFor(rec.Timestamp, rec.CameraID)
	if err != nil {
		e.log.Warn("persistence: event log open failed", zap.Error(err))
		return
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		e.log.Warn("persistence: event log write failed", zap.Error(err))
	}
}

func (e *EventLog) allow(cameraID int, alertType string) bool {
	e.mu.Lock()
	key := throttleKey{cameraID, alertType}
	lim, ok := e.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(e.throttle), 1)
		e.limiters[key] = lim
	}
	e.mu.Unlock()
	return lim.Allow()
}

// fileFor returns (opening and caching if needed) the append handle for
// ts's day and the given camera. Caller holds e.mu.
func (e *EventLog) fileFor(ts time.Time, cameraID int) (*os.File, error) {
	day := ts.Format("20060102")
	key := fmt.Sprintf("%s/%d", day, cameraID)
	if f, ok := e.files[key]; ok {
		return f, nil
	}

	dir := filepath.Join(e.baseDir, day)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, fmt.Sprintf("camera_%d.log", cameraID))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	e.files[key] = f
	return f, nil
}

// Close releases every open file handle.
func (e *EventLog) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, f := range e.files {
		_ = f.Close()
	}
	e.files = make(map[string]*os.File)
}

// formatLine renders one structured key-value line (§6 "Event log format").
func formatLine(rec AlertRecord) string {
	line := fmt.Sprintf(
		"timestamp=%q alert_type=%q camera_id=%d severity=%q description=%q location=%q camera_ip=%q action_taken=%q",
		rec.Timestamp.Format("2006-01-02 15:04:05"), rec.AlertType, rec.CameraID,
		rec.Severity, rec.Description, rec.Location, rec.CameraIP, rec.ActionTaken,
	)
	for k, v := range rec.Fields {
		line += fmt.Sprintf(" %s=%v", k, v)
	}
	return line
}
