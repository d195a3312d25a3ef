package detect

import (
	"coalguard/internal/predictor"
	"coalguard/internal/roi"
)

// CoalResult is one frame's coal-blockage decision (§4.6).
type CoalResult struct {
	Ratio     float64 // percentage in [0, 100]
	IsBlocked bool
	ShouldArm bool
	Edge      Edge
	OnStreak  int
	OffStreak int
}

// Defaults from spec.md §4.6.
const (
	DefaultCoalOnThreshold    = 5
	DefaultCoalOffThreshold   = 5
	DefaultCoalRatioThreshold = 73.0
)

// CoalDetector computes the fraction of the coal-zone ROI covered by
// "coal" instance masks and hysteresizes the ratio against a threshold
// (§4.6).
type CoalDetector struct {
	CoalClassID    int
	RatioThreshold float64
	Enabled        bool

	hysteresis *Hysteresis
	unionBuf   *roi.Mask // reused across frames to avoid per-frame allocation (§9)
}

// NewCoalDetector constructs a detector with the given thresholds and the
// class id that means "coal" for the routed model.
func NewCoalDetector(coalClassID int, ratioThreshold float64, onThreshold, offThreshold int) *CoalDetector {
	return &CoalDetector{
		CoalClassID:    coalClassID,
		RatioThreshold: ratioThreshold,
		Enabled:        true,
		hysteresis:     NewHysteresis(onThreshold, offThreshold),
	}
}

// Update runs one frame through the coal-ratio algorithm (§4.6 steps 1-4).
// When the detector is administratively disabled, steps 1-3 are bypassed
// and the off-streak still advances so a stale armed state decays to off.
func (d *CoalDetector) Update(pred predictor.Prediction, roiMask *roi.Mask, frameW, frameH int) CoalResult {
	if !d.Enabled {
		edge := d.hysteresis.Update(false)
		return CoalResult{
			Ratio: 0, IsBlocked: false, ShouldArm: edge == ArmEdge, Edge: edge,
			OnStreak: d.hysteresis.OnStreak(), OffStreak: d.hysteresis.OffStreak(),
		}
	}

	d.ensureUnionBuf(frameW, frameH)
	resetMask(d.unionBuf)

	for _, det := range pred.Detections {
		if det.ClassID != d.CoalClassID || det.Mask == nil {
			continue
		}
		unionMasks(d.unionBuf, resampleInstanceMask(det.Mask, frameW, frameH))
	}

	ratio := 0.0
	if roiMask != nil && roiMask.Area > 0 {
		coalInROI := roi.PopcountAnd(d.unionBuf, roiMask)
		ratio = 100 * float64(coalInROI) / float64(roiMask.Area)
	}

	blocked := ratio >= d.RatioThreshold
	edge := d.hysteresis.Update(blocked)

	return CoalResult{
		Ratio: ratio, IsBlocked: blocked, ShouldArm: edge == ArmEdge, Edge: edge,
		OnStreak: d.hysteresis.OnStreak(), OffStreak: d.hysteresis.OffStreak(),
	}
}

// Armed reports whether the coal alarm is currently asserted.
func (d *CoalDetector) Armed() bool { return d.hysteresis.Armed() }

// Reset clears hysteresis state (supervisor stop, §3 Lifecycles).
func (d *CoalDetector) Reset() { d.hysteresis.Reset() }

func (d *CoalDetector) ensureUnionBuf(w, h int) {
	if d.unionBuf != nil && d.unionBuf.Width == w && d.unionBuf.Height == h {
		return
	}
	d.unionBuf = &roi.Mask{Width: w, Height: h, Pix: make([]byte, w*h)}
}
