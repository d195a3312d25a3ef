package detect

import (
	"testing"

	"github.com/stretchr/testify/require"

	"coalguard/internal/predictor"
	"coalguard/internal/roi"
)

func fullCoalMask(w, h, coveredRows int) *predictor.InstanceMask {
	pix := make([]byte, w*h)
	for y := 0; y < coveredRows; y++ {
		for x := 0; x < w; x++ {
			pix[y*w+x] = 255
		}
	}
	return &predictor.InstanceMask{Width: w, Height: h, Pix: pix}
}

func TestCoalDetectorRatioComputation(t *testing.T) {
	d := NewCoalDetector(1, 50.0, 1, 1)
	zone := roiMask(10, 10) // full frame ROI, area 100

	// Cover half the rows -> 50% ratio.
	pred := predictor.Prediction{Detections: []predictor.Detection{
		{ClassID: 1, Mask: fullCoalMask(10, 10, 5)},
	}}

	result := d.Update(pred, zone, 10, 10)
	require.InDelta(t, 50.0, result.Ratio, 0.01)
	require.True(t, result.IsBlocked)
}

func TestCoalDetectorZeroROIAreaIsZeroRatio(t *testing.T) {
	d := NewCoalDetector(1, 50.0, 1, 1)
	emptyPoly := roi.Polygon{{X: 0, Y: 0}, {X: 5, Y: 5}}
	mask := roi.Rasterize(emptyPoly, 10, 10)

	pred := predictor.Prediction{Detections: []predictor.Detection{
		{ClassID: 1, Mask: fullCoalMask(10, 10, 10)},
	}}
	result := d.Update(pred, mask, 10, 10)
	require.Equal(t, 0.0, result.Ratio)
	require.False(t, result.IsBlocked)
}

func TestCoalDetectorDisabledBypassesButAdvancesOffStreak(t *testing.T) {
	d := NewCoalDetector(1, 50.0, 1, 2)
	zone := roiMask(10, 10)

	pred := predictor.Prediction{Detections: []predictor.Detection{
		{ClassID: 1, Mask: fullCoalMask(10, 10, 10)},
	}}
	d.Update(pred, zone, 10, 10)
	require.True(t, d.Armed())

	d.Enabled = false
	d.Update(pred, zone, 10, 10)
	require.True(t, d.Armed()) // off_threshold=2, still armed after 1 disabled frame
	d.Update(pred, zone, 10, 10)
	require.False(t, d.Armed()) // decays to off after 2 disabled frames
}

func TestCoalDetectorUnionBufferReusedAcrossFrames(t *testing.T) {
	d := NewCoalDetector(1, 1000.0, 10, 10) // unreachable threshold: never arms
	zone := roiMask(10, 10)

	pred := predictor.Prediction{Detections: []predictor.Detection{
		{ClassID: 1, Mask: fullCoalMask(10, 10, 3)},
	}}

	r1 := d.Update(pred, zone, 10, 10)
	r2 := d.Update(pred, zone, 10, 10)
	// Each frame's ratio is recomputed fresh, not accumulated across frames.
	require.InDelta(t, r1.Ratio, r2.Ratio, 0.01)
}

func TestCoalDetectorIgnoresOtherClasses(t *testing.T) {
	d := NewCoalDetector(1, 10.0, 1, 1)
	zone := roiMask(10, 10)

	pred := predictor.Prediction{Detections: []predictor.Detection{
		{ClassID: 2, Mask: fullCoalMask(10, 10, 10)},
	}}
	result := d.Update(pred, zone, 10, 10)
	require.Equal(t, 0.0, result.Ratio)
}
