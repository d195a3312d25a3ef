package detect

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestPersonArmsAndDisarms is spec.md §8 end-to-end scenario #1.
func TestPersonArmsAndDisarms(t *testing.T) {
	h := NewHysteresis(3, 5)
	metrics := []bool{false, false, true, true, true, true, false, false, false, false, false}

	var arms, disarms int
	var armFrame, disarmFrame int
	for i, m := range metrics {
		switch h.Update(m) {
		case ArmEdge:
			arms++
			armFrame = i + 1
		case DisarmEdge:
			disarms++
			disarmFrame = i + 1
		}
	}

	require.Equal(t, 1, arms)
	require.Equal(t, 1, disarms)
	require.Equal(t, 5, armFrame)   // 3rd consecutive "true" is at index 4 (frame 5)
	require.Equal(t, 11, disarmFrame) // 5th consecutive "false" is at index 10 (frame 11)
}

// TestCoalRatioCrossesThreshold is spec.md §8 end-to-end scenario #2.
func TestCoalRatioCrossesThreshold(t *testing.T) {
	ratios := []float64{70, 71, 73, 74, 75, 76, 77, 50, 50, 50, 50, 50}
	threshold := 73.0
	h := NewHysteresis(5, 5)

	var armFrame, disarmFrame int
	for i, r := range ratios {
		switch h.Update(r >= threshold) {
		case ArmEdge:
			armFrame = i + 1
		case DisarmEdge:
			disarmFrame = i + 1
		}
	}

	require.Equal(t, 7, armFrame)
	require.Equal(t, 12, disarmFrame)
}

func TestOffStreakAdvancesWithNoDetections(t *testing.T) {
	h := NewHysteresis(3, 2)
	h.Update(true)
	h.Update(true)
	h.Update(true)
	require.True(t, h.Armed())

	h.Update(false)
	require.True(t, h.Armed())
	h.Update(false)
	require.False(t, h.Armed())
}

// TestHysteresisInvariants is spec.md §8 universal invariants #1-#3.
func TestHysteresisInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	h := NewHysteresis(3, 4)

	var arms, disarms int
	var lastEdgeWasArm bool
	for i := 0; i < 2000; i++ {
		metric := rng.Intn(3) != 0 // biased toward true
		edge := h.Update(metric)

		require.LessOrEqual(t, h.OnStreak(), h.OnThreshold)

		switch edge {
		case ArmEdge:
			require.Equal(t, 0, h.OnStreak()) // resets on arm edge
			// Property #2: between two arm edges there must be a disarm edge.
			require.False(t, lastEdgeWasArm, "two arm edges in a row with no disarm between them")
			arms++
			lastEdgeWasArm = true
		case DisarmEdge:
			disarms++
			lastEdgeWasArm = false
		}
	}

	// Property #1: arm count equals disarm count, ±1 (may end armed).
	require.LessOrEqual(t, abs(arms-disarms), 1)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func TestResetClearsArmedState(t *testing.T) {
	h := NewHysteresis(1, 1)
	h.Update(true)
	require.True(t, h.Armed())
	h.Reset()
	require.False(t, h.Armed())
	require.Equal(t, 0, h.OnStreak())
	require.Equal(t, 0, h.OffStreak())
}
