package roi

import "sync"

type cacheKey struct {
	version int
	w, h    int
}

// Cache lazily rasterizes and memoizes a mask per (polygon, target
// resolution) pair, invalidating whenever the polygon changes or the
// camera's capture resolution changes (§4.4). Mutation is serialized
// through the owning Camera Supervisor's control channel (§5), so Cache
// itself only needs a plain mutex, not atomics.
type Cache struct {
	mu       sync.Mutex
	refW     int
	refH     int
	poly     Polygon
	version  int
	byTarget map[cacheKey]*Mask
}

// NewCache builds a mask cache for a polygon defined at (refW, refH).
func NewCache(poly Polygon, refW, refH int) *Cache {
	return &Cache{
		refW:     refW,
		refH:     refH,
		poly:     poly,
		byTarget: make(map[cacheKey]*Mask),
	}
}

// SetPolygon replaces the cached polygon and invalidates every memoized
// mask. Call this when configuration changes the ROI.
func (c *Cache) SetPolygon(poly Polygon, refW, refH int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.poly = poly
	c.refW = refW
	c.refH = refH
	c.version++
	c.byTarget = make(map[cacheKey]*Mask)
}

// MaskFor returns the binary mask for this polygon at resolution (w, h),
// rasterizing and caching it on first use. Returns the same *Mask on
// subsequent calls with the same resolution, until the polygon changes.
func (c *Cache) MaskFor(w, h int) *Mask {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{version: c.version, w: w, h: h}
	if m, ok := c.byTarget[key]; ok {
		return m
	}

	scaled := c.poly.ScaleTo(c.refW, c.refH, w, h)
	m := Rasterize(scaled, w, h)
	c.byTarget[key] = m
	return m
}
