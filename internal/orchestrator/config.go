// Package orchestrator implements the Orchestrator (§4.9): validates
// configuration, loads models through the Predictor Pool, and owns one
// Camera Supervisor per enabled camera.
package orchestrator

import (
	"fmt"
	"time"

	"coalguard/internal/actuator"
	"coalguard/internal/plc"
	"coalguard/internal/predictor"
	"coalguard/internal/roi"
)

// CameraConfig is one camera's full wiring: capture source, ROI zones,
// PLC identity and alarm addresses, and detector threshold overrides.
type CameraConfig struct {
	ID                  int
	Name                string
	Source              string
	TargetFPS           float64
	Enabled             bool
	ConfidenceThreshold float64
	DetectionPeriod     time.Duration // target detection cycle period (§4.8), default 500ms

	ReferenceWidth  int
	ReferenceHeight int
	PersonZone      roi.Polygon
	CoalZone        roi.Polygon

	PLC                 plc.ConnIdentity
	PersonAddr           actuator.Address
	CoalAddr             actuator.Address
	PLCHealthCheckPeriod time.Duration

	PersonOnThreshold  int
	PersonOffThreshold int
	CoalOnThreshold    int
	CoalOffThreshold   int
	CoalRatioThreshold float64
	CoalDisabled       bool
}

// Config is the orchestrator's full input (§4.9, §6).
type Config struct {
	Cameras          []CameraConfig
	Models           []predictor.ModelSpec
	ShutdownDeadline time.Duration // per-supervisor stop deadline, default 2s (§4.9, §5)
}

// validateCameras checks the invariants §4.9 names: unique camera ids,
// non-empty source per enabled camera, confidence in [0,1], thresholds
// >= 1. It returns the cameras that passed plus a per-camera-id error map
// for the ones that didn't — a configuration error is fatal only for its
// own camera, never the whole fleet (§7 "Configuration error ... the
// offending camera is marked error and excluded; other cameras proceed").
func validateCameras(cameras []CameraConfig) ([]CameraConfig, map[int]error) {
	errsByID := make(map[int]error)
	seen := make(map[int]bool)
	dup := make(map[int]bool)

	for _, cam := range cameras {
		if seen[cam.ID] {
			dup[cam.ID] = true
		}
		seen[cam.ID] = true
	}

	var valid []CameraConfig
	for _, cam := range cameras {
		if err := validateCamera(cam, dup[cam.ID]); err != nil {
			errsByID[cam.ID] = err
			continue
		}
		valid = append(valid, cam)
	}
	return valid, errsByID
}

func validateCamera(cam CameraConfig, isDuplicate bool) error {
	if isDuplicate {
		return fmt.Errorf("orchestrator: duplicate camera id %d", cam.ID)
	}
	if !cam.Enabled {
		return nil
	}
	if cam.Source == "" {
		return fmt.Errorf("orchestrator: camera %d: empty source", cam.ID)
	}
	if cam.ConfidenceThreshold < 0 || cam.ConfidenceThreshold > 1 {
		return fmt.Errorf("orchestrator: camera %d: confidence_threshold %.2f out of [0,1]", cam.ID, cam.ConfidenceThreshold)
	}
	for _, th := range []struct {
		name string
		v    int
	}{
		{"person_on_threshold", cam.PersonOnThreshold},
		{"person_off_threshold", cam.PersonOffThreshold},
		{"coal_on_threshold", cam.CoalOnThreshold},
		{"coal_off_threshold", cam.CoalOffThreshold},
	} {
		if th.v != 0 && th.v < 1 {
			return fmt.Errorf("orchestrator: camera %d: %s must be >= 1", cam.ID, th.name)
		}
	}
	return nil
}
