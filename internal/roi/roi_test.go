package roi

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func square(x0, y0, x1, y1 float64) Polygon {
	return Polygon{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
}

func TestRasterizeSquare(t *testing.T) {
	poly := square(10, 10, 20, 20)
	m := Rasterize(poly, 100, 100)
	require.Equal(t, 100, m.Area) // 10x10 box

	require.Equal(t, byte(255), m.At(15, 15))
	require.Equal(t, byte(0), m.At(5, 5))
}

func TestRasterizeEmptyBelowThreeVertices(t *testing.T) {
	poly := Polygon{{X: 0, Y: 0}, {X: 10, Y: 10}}
	m := Rasterize(poly, 50, 50)
	require.Equal(t, 0, m.Area)
	require.False(t, poly.Valid())
}

// TestScaleRoundTrip is spec.md §8 property #7: scaling to a resolution and
// back must not move any vertex by more than one pixel.
func TestScaleRoundTrip(t *testing.T) {
	poly := Polygon{{X: 12, Y: 34}, {X: 567, Y: 8}, {X: 321, Y: 654}}
	refW, refH := 1920, 1080
	targetW, targetH := 640, 480

	scaled := poly.ScaleTo(refW, refH, targetW, targetH)
	back := scaled.ProjectBack(targetW, targetH, refW, refH)

	for i := range poly {
		require.LessOrEqual(t, math.Abs(poly[i].X-back[i].X), 1.0)
		require.LessOrEqual(t, math.Abs(poly[i].Y-back[i].Y), 1.0)
	}
}

func TestCacheInvalidatesOnPolygonChange(t *testing.T) {
	c := NewCache(square(0, 0, 10, 10), 100, 100)
	m1 := c.MaskFor(100, 100)
	m1Again := c.MaskFor(100, 100)
	require.Same(t, m1, m1Again)

	c.SetPolygon(square(0, 0, 20, 20), 100, 100)
	m2 := c.MaskFor(100, 100)
	require.NotSame(t, m1, m2)
	require.Greater(t, m2.Area, m1.Area)
}

func TestPopcountAndIntersects(t *testing.T) {
	a := Rasterize(square(0, 0, 10, 10), 20, 20)
	b := Rasterize(square(5, 5, 15, 15), 20, 20)

	require.True(t, Intersects(a, b))
	require.Greater(t, PopcountAnd(a, b), 0)

	c := Rasterize(square(15, 15, 19, 19), 20, 20)
	require.False(t, Intersects(a, c))
}
