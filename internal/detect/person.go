package detect

import (
	"coalguard/internal/predictor"
	"coalguard/internal/roi"
)

// PersonResult is one frame's person-in-zone decision (§4.5).
type PersonResult struct {
	InZone    bool
	ShouldArm bool   // true only on the frame an arm edge fires
	Edge      Edge
	OnStreak  int
	OffStreak int
}

// DefaultPersonOnThreshold and DefaultPersonOffThreshold are spec.md §4.5's
// defaults.
const (
	DefaultPersonOnThreshold  = 3
	DefaultPersonOffThreshold = 5
)

// PersonDetector decides whether a person is present in the configured
// danger zone, with hysteresis to avoid flicker (§4.5).
type PersonDetector struct {
	PersonClassID int
	hysteresis    *Hysteresis
}

// NewPersonDetector constructs a detector with the given hysteresis
// thresholds and the class id that means "person" for the routed model.
func NewPersonDetector(personClassID, onThreshold, offThreshold int) *PersonDetector {
	return &PersonDetector{
		PersonClassID: personClassID,
		hysteresis:    NewHysteresis(onThreshold, offThreshold),
	}
}

// Update runs one frame through the person-in-zone algorithm (§4.5 steps
// 1-4): collect person detections, test each against the ROI mask, OR the
// results into in_zone, then feed the hysteresis.
func (d *PersonDetector) Update(pred predictor.Prediction, roiMask *roi.Mask, frameW, frameH int) PersonResult {
	inZone := false

	for _, det := range pred.Detections {
		if det.ClassID != d.PersonClassID {
			continue
		}
		if detectionIntersectsROI(det, roiMask, frameW, frameH) {
			inZone = true
			break
		}
	}

	edge := d.hysteresis.Update(inZone)
	return PersonResult{
		InZone:    inZone,
		ShouldArm: edge == ArmEdge,
		Edge:      edge,
		OnStreak:  d.hysteresis.OnStreak(),
		OffStreak: d.hysteresis.OffStreak(),
	}
}

// Armed reports whether the person alarm is currently asserted.
func (d *PersonDetector) Armed() bool { return d.hysteresis.Armed() }

// Reset clears hysteresis state (supervisor stop, §3 Lifecycles).
func (d *PersonDetector) Reset() { d.hysteresis.Reset() }

// detectionIntersectsROI implements §4.5 step 2: prefer the detection's own
// instance mask when present, resampled to frame resolution; otherwise
// fall back to a rasterized bounding-box rectangle (§8 boundary case:
// "Predictor returns detections but masks field absent").
func detectionIntersectsROI(det predictor.Detection, roiMask *roi.Mask, frameW, frameH int) bool {
	if roiMask == nil || roiMask.Area == 0 {
		return false
	}

	if det.Mask != nil {
		resampled := resampleInstanceMask(det.Mask, frameW, frameH)
		return roi.Intersects(resampled, roiMask)
	}

	box := roi.RectMask(det.Box.Min.X, det.Box.Min.Y, det.Box.Max.X, det.Box.Max.Y, frameW, frameH)
	return roi.Intersects(box, roiMask)
}
