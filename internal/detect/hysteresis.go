// Package detect implements the ROI-aware person and coal alarm decisions
// (§4.5, §4.6), sharing one hysteresis component between them per spec.md
// §9's design note ("Hysteresis as a free-standing value").
package detect

// Edge records which transition, if any, a Hysteresis.Update call produced.
type Edge int

const (
	// NoEdge means armed state did not change this frame.
	NoEdge Edge = iota
	// ArmEdge means the alarm just transitioned off -> on.
	ArmEdge
	// DisarmEdge means the alarm just transitioned on -> off.
	DisarmEdge
)

// Hysteresis holds the small streak-counter state described in spec.md §3:
// on_streak, off_streak, armed, parameterized by an on/off threshold. Both
// Person Detector and Coal Detector embed one, differing only in what
// boolean metric they feed it each frame.
type Hysteresis struct {
	OnThreshold  int
	OffThreshold int

	onStreak  int
	offStreak int
	armed     bool
}

// NewHysteresis constructs a Hysteresis with the given thresholds. Both
// must be >= 1 (§4.9 validation: "thresholds >= 1").
func NewHysteresis(onThreshold, offThreshold int) *Hysteresis {
	return &Hysteresis{OnThreshold: onThreshold, OffThreshold: offThreshold}
}

// Update advances the streak counters for one frame's metric (true = the
// confirming condition held this frame) and returns any edge produced.
//
// Rules (§4.5 step 4, shared verbatim by §4.6):
//   - metric true: off_streak resets to 0, on_streak increments (it stops
//     counting at OnThreshold while armed). Once
//     on_streak reaches OnThreshold while not armed, arm and reset
//     on_streak to 0 (one edge per streak, §3 invariant).
//   - metric false: on_streak holds, off_streak increments. Once
//     off_streak reaches OffThreshold, disarm and reset on_streak to 0.
func (h *Hysteresis) Update(metric bool) Edge {
	if metric {
		h.offStreak = 0
		if h.onStreak < h.OnThreshold {
			h.onStreak++
		}
		if h.onStreak >= h.OnThreshold && !h.armed {
			h.armed = true
			h.onStreak = 0
			return ArmEdge
		}
		return NoEdge
	}

	h.offStreak++
	if h.offStreak >= h.OffThreshold {
		h.onStreak = 0
		if h.armed {
			h.armed = false
			return DisarmEdge
		}
	}
	return NoEdge
}

// Armed reports the current alarm state.
func (h *Hysteresis) Armed() bool { return h.armed }

// OnStreak returns the current consecutive-confirmation count. Always
// <= OnThreshold immediately after Update (§8 property #3).
func (h *Hysteresis) OnStreak() int { return h.onStreak }

// OffStreak returns the current consecutive-non-confirmation count.
func (h *Hysteresis) OffStreak() int { return h.offStreak }

// Reset clears streaks and forces the armed state to off — used when a
// supervisor stops (§3 Lifecycles: "Alarm state ... reset to off at stop").
func (h *Hysteresis) Reset() {
	h.onStreak = 0
	h.offStreak = 0
	h.armed = false
}
