package detect

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"coalguard/internal/predictor"
	"coalguard/internal/roi"
)

// resampleInstanceMask scales a detection's instance mask (at whatever
// resolution the model emitted it) up or down to the frame's actual
// resolution, per spec.md §4.5 step 2 ("resample it to frame resolution").
// Uses x/image/draw's bilinear-free nearest scaler since a mask is binary —
// anything else would introduce fractional edge values that don't belong
// in a 0/255 raster.
func resampleInstanceMask(m *predictor.InstanceMask, targetW, targetH int) *roi.Mask {
	if m == nil {
		return nil
	}
	if m.Width == targetW && m.Height == targetH {
		return &roi.Mask{Width: m.Width, Height: m.Height, Pix: m.Pix, Area: popcount(m.Pix)}
	}

	src := &image.Gray{Pix: m.Pix, Stride: m.Width, Rect: image.Rect(0, 0, m.Width, m.Height)}
	dst := image.NewGray(image.Rect(0, 0, targetW, targetH))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	return &roi.Mask{Width: targetW, Height: targetH, Pix: dst.Pix, Area: popcount(dst.Pix)}
}

func popcount(pix []byte) int {
	n := 0
	for _, b := range pix {
		if b != 0 {
			n++
		}
	}
	return n
}

// unionMasks ORs src into dst in place, growing dst's area count as new
// pixels are covered. dst must already be sized to (w, h); callers reuse
// the same dst buffer across frames to avoid per-frame allocation (§9
// design note: "Mask union ... prefer fixed-size byte buffers reused
// across frames per camera").
func unionMasks(dst *roi.Mask, src *roi.Mask) {
	if src == nil || dst.Width != src.Width || dst.Height != src.Height {
		return
	}
	for i, b := range src.Pix {
		if b != 0 && dst.Pix[i] == 0 {
			dst.Pix[i] = 255
			dst.Area++
		}
	}
}

// resetMask clears a reusable mask buffer for the next frame.
func resetMask(m *roi.Mask) {
	for i := range m.Pix {
		m.Pix[i] = 0
	}
	m.Area = 0
}
