package roi

// Mask is a binary raster at a specific resolution: 255 where the polygon
// covers a pixel, 0 elsewhere. Area is the cached popcount, since both
// detectors (§4.5, §4.6) need it on every frame and it never changes once
// the mask is built.
type Mask struct {
	Width, Height int
	Pix           []byte
	Area          int
}

// At returns the mask byte at (x, y), or 0 if out of bounds.
func (m *Mask) At(x, y int) byte {
	if m == nil || x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return 0
	}
	return m.Pix[y*m.Width+x]
}

// Rasterize fills a (w x h) binary mask for polygon using an even-odd
// scanline fill — the standard point-in-polygon algorithm for a filled
// shape, applied one scanline at a time rather than per-pixel for speed.
// A polygon with fewer than 3 vertices produces an all-zero mask (empty
// ROI, per spec.md §8).
func Rasterize(poly Polygon, w, h int) *Mask {
	mask := &Mask{Width: w, Height: h, Pix: make([]byte, w*h)}
	if !poly.Valid() || w <= 0 || h <= 0 {
		return mask
	}

	n := len(poly)
	area := 0
	for y := 0; y < h; y++ {
		yf := float64(y) + 0.5 // sample at pixel center
		var xs []float64

		for i := 0; i < n; i++ {
			a := poly[i]
			b := poly[(i+1)%n]
			if (a.Y <= yf && b.Y > yf) || (b.Y <= yf && a.Y > yf) {
				t := (yf - a.Y) / (b.Y - a.Y)
				xs = append(xs, a.X+t*(b.X-a.X))
			}
		}
		if len(xs) < 2 {
			continue
		}
		insertionSort(xs)

		row := mask.Pix[y*w : y*w+w]
		for i := 0; i+1 < len(xs); i += 2 {
			x0 := clampInt(int(xs[i]+0.5), 0, w)
			x1 := clampInt(int(xs[i+1]+0.5), 0, w)
			for x := x0; x < x1; x++ {
				row[x] = 255
				area++
			}
		}
	}

	mask.Area = area
	return mask
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// insertionSort sorts a small float slice in place. Scanline crossing lists
// are tiny (one pair per edge crossing a row), so this beats pulling in
// sort.Float64s for a handful of elements.
func insertionSort(xs []float64) {
	for i := 1; i < len(xs); i++ {
		v := xs[i]
		j := i - 1
		for j >= 0 && xs[j] > v {
			xs[j+1] = xs[j]
			j--
		}
		xs[j+1] = v
	}
}

// PopcountAnd returns the number of pixels where both masks are set —
// used by the Coal Detector to intersect the unioned coal mask with the
// coal-zone ROI mask (§4.6 step 2).
func PopcountAnd(a, b *Mask) int {
	if a == nil || b == nil || a.Width != b.Width || a.Height != b.Height {
		return 0
	}
	count := 0
	for i := range a.Pix {
		if a.Pix[i] != 0 && b.Pix[i] != 0 {
			count++
		}
	}
	return count
}

// Intersects reports whether mask a has any pixel in common with mask b —
// used by the Person Detector's bounding-box/instance-mask intersection
// test (§4.5 step 2).
func Intersects(a, b *Mask) bool {
	if a == nil || b == nil || a.Width != b.Width || a.Height != b.Height {
		return false
	}
	for i := range a.Pix {
		if a.Pix[i] != 0 && b.Pix[i] != 0 {
			return true
		}
	}
	return false
}

// RectMask rasterizes an axis-aligned box (used as the Person Detector's
// fallback when a detection carries no instance mask, §4.5 step 2).
func RectMask(x0, y0, x1, y1, w, h int) *Mask {
	mask := &Mask{Width: w, Height: h, Pix: make([]byte, w*h)}
	x0, y0 = clampInt(x0, 0, w), clampInt(y0, 0, h)
	x1, y1 = clampInt(x1, 0, w), clampInt(y1, 0, h)

	area := 0
	for y := y0; y < y1; y++ {
		row := mask.Pix[y*w : y*w+w]
		for x := x0; x < x1; x++ {
			row[x] = 255
			area++
		}
	}
	mask.Area = area
	return mask
}
