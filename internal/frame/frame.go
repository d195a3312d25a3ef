// Package frame defines the raw image type the capture pipeline moves
// between goroutines, plus the two hand-off primitives (latest-slot and
// bounded drop-oldest queue) described for the Frame Buffer component.
package frame

import (
	"image"
	"time"
)

// Frame is a raw three-channel image captured from one camera. A Frame is
// exclusively owned by whichever goroutine currently holds it; handing it to
// a Slot or Queue transfers ownership, and the previous owner must not touch
// Pix again.
type Frame struct {
	CameraID  int
	ID        uint64 // monotonic per camera, assigned at capture
	Width     int
	Height    int
	Stride    int // bytes per row; Width*4 for RGBA, as decoded by the capture worker
	Pix       []byte
	CapturedAt time.Time
}

// Clone returns a deep copy safe for an independent owner (used by the
// capture worker when it publishes to the latest slot, and by PeekCopy).
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	cp := *f
	cp.Pix = make([]byte, len(f.Pix))
	copy(cp.Pix, f.Pix)
	return &cp
}

// Image wraps Pix as a standard image.Image for display, without copying.
// Returns nil for a nil Frame.
func (f *Frame) Image() image.Image {
	if f == nil {
		return nil
	}
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Stride,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}
