// Package roi turns a configured region-of-interest polygon into a cached
// binary mask at whatever resolution the camera is actually capturing at
// (§4.4). Polygon editing and drawing tools are out of scope (§1); this
// package only consumes already-defined vertex lists.
package roi

// Point is one polygon vertex, in the reference resolution named by
// config's roi.reference_resolution.
type Point struct {
	X, Y float64
}

// Polygon is an ordered list of vertices. A polygon with fewer than 3
// vertices is treated as empty per spec.md §8 boundary cases: no detection
// is ever in-zone, and coal ratio is always 0.
type Polygon []Point

// Valid reports whether the polygon has enough vertices to enclose an area.
func (p Polygon) Valid() bool {
	return len(p) >= 3
}

// ScaleTo linearly rescales every vertex from a reference resolution
// (refW, refH) to a target resolution (w, h). Used when the camera's actual
// capture resolution differs from the resolution the ROI was authored
// against.
func (p Polygon) ScaleTo(refW, refH, w, h int) Polygon {
	if refW <= 0 || refH <= 0 {
		return p
	}
	sx := float64(w) / float64(refW)
	sy := float64(h) / float64(refH)

	out := make(Polygon, len(p))
	for i, v := range p {
		out[i] = Point{X: v.X * sx, Y: v.Y * sy}
	}
	return out
}

// ProjectBack is the inverse of ScaleTo: it maps vertices expressed at
// (w, h) back to the reference resolution (refW, refH). Round-tripping a
// polygon through ScaleTo then ProjectBack must not move any vertex by more
// than one pixel (spec.md §8 property #7).
func (p Polygon) ProjectBack(w, h, refW, refH int) Polygon {
	if w <= 0 || h <= 0 {
		return p
	}
	sx := float64(refW) / float64(w)
	sy := float64(refH) / float64(h)

	out := make(Polygon, len(p))
	for i, v := range p {
		out[i] = Point{X: v.X * sx, Y: v.Y * sy}
	}
	return out
}
