package persistence

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"coalguard/internal/frame"
	"coalguard/internal/roi"
)

// alarmTintOpacity is how strongly the whole frame is tinted red when
// armed, layered under the sharp alarm border so the alert is visible
// even in a downsized thumbnail.
const alarmTintOpacity = 0.12

// DefaultDiskQuota bounds the total size of the snapshot directory tree
// (SPEC_FULL.md supplement #5, grounded on cam6bang's image_saver.py disk
// quota): the oldest files are evicted once the quota is exceeded.
const DefaultDiskQuota = 2 << 30 // 2 GiB

var (
	colorPersonZone = color.RGBA{0, 200, 0, 255}
	colorCoalZone   = color.RGBA{0, 120, 255, 255}
	colorAlarm      = color.RGBA{255, 0, 0, 255}
	colorInfoPanel  = color.RGBA{0, 0, 0, 200}
)

// Snapshot is one request to persist a still image (§4.10 Snapshot writer).
type Snapshot struct {
	CameraID    int
	Frame       *frame.Frame
	PersonZone  roi.Polygon
	CoalZone    roi.Polygon
	PersonArmed bool
	CoalArmed   bool
	AlertType   string
	Timestamp   time.Time
}

// SnapshotWriter writes throttled, overlayed JPEG stills under
// baseDir/<YYYYMMDD>/ and evicts the oldest files once the directory
// exceeds its disk quota.
type SnapshotWriter struct {
	log      *zap.Logger
	baseDir  string
	throttle time.Duration
	quota    int64

	mu       sync.Mutex
	limiters map[throttleKey]*rate.Limiter
}

// NewSnapshotWriter constructs a writer rooted at baseDir (spec.md's
// artifacts_dir).
func NewSnapshotWriter(log *zap.Logger, baseDir string, throttle time.Duration, quota int64) *SnapshotWriter {
	if throttle <= 0 {
		throttle = DefaultThrottle
	}
	if quota <= 0 {
		quota = DefaultDiskQuota
	}
	return &SnapshotWriter{
		log:      log,
		baseDir:  baseDir,
		throttle: throttle,
		quota:    quota,
		limiters: make(map[throttleKey]*rate.Limiter),
	}
}

// Write overlays and persists snap's frame, subject to the per-(camera,
// alert type) throttle. Failures are logged, never propagated (§7).
func (w *SnapshotWriter) Write(snap Snapshot) {
	if !w.allow(snap.CameraID, snap.AlertType) {
		return
	}

	img := overlay(snap)

	day := snap.Timestamp.Format("20060102")
	dir := filepath.Join(w.baseDir, day)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		w.log.Warn("persistence: snapshot mkdir failed", zap.Error(err))
		return
	}

	// Format's fractional-second directive must be preceded by a literal
	// "." (there is no "_ffffff" layout token), so render with a dot and
	// swap it for the underscore the filename format actually uses.
	stamp := strings.Replace(snap.Timestamp.Format("20060102_150405.000000"), ".", "_", 1)
	name := fmt.Sprintf("%s_%d_%s.jpg", snap.AlertType, snap.CameraID, stamp)
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		w.log.Warn("persistence: snapshot create failed", zap.Error(err))
		return
	}
	defer f.Close()

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 85}); err != nil {
		w.log.Warn("persistence: snapshot encode failed", zap.Error(err))
		return
	}

	w.enforceQuota()
}

func (w *SnapshotWriter) allow(cameraID int, alertType string) bool {
	w.mu.Lock()
	key := throttleKey{cameraID, alertType}
	lim, ok := w.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(w.throttle), 1)
		w.limiters[key] = lim
	}
	w.mu.Unlock()
	return lim.Allow()
}

// enforceQuota walks baseDir and deletes the oldest files until the total
// size is back under quota. Eviction failures are logged, not propagated.
func (w *SnapshotWriter) enforceQuota() {
	type entry struct {
		path    string
		size    int64
		modTime time.Time
	}
	var entries []entry
	var total int64

	_ = filepath.Walk(w.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		entries = append(entries, entry{path, info.Size(), info.ModTime()})
		total += info.Size()
		return nil
	})

	if total <= w.quota {
		return
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].modTime.Before(entries[j].modTime) })
	for _, e := range entries {
		if total <= w.quota {
			break
		}
		if err := os.Remove(e.path); err != nil {
			w.log.Warn("persistence: quota eviction failed", zap.String("path", e.path), zap.Error(err))
			continue
		}
		total -= e.size
	}
}

// overlay draws the ROI polygons, an alarm border, and a small info panel
// onto a copy of the captured frame (§4.10). Text rendering is out of this
// corpus's depth (no font-rendering library retrieved); the info panel is
// a solid color bar rather than literal text.
func overlay(snap Snapshot) image.Image {
	f := snap.Frame
	base := &image.RGBA{Pix: f.Pix, Stride: f.Stride, Rect: image.Rect(0, 0, f.Width, f.Height)}

	out := image.NewRGBA(base.Rect)
	draw.Draw(out, out.Rect, base, image.Point{}, draw.Src)

	drawPolygonOutline(out, snap.PersonZone, colorPersonZone)
	drawPolygonOutline(out, snap.CoalZone, colorCoalZone)

	if snap.PersonArmed || snap.CoalArmed {
		drawBorder(out, colorAlarm, 4)
		drawInfoPanel(out, colorInfoPanel)
		tint := image.NewUniform(colorAlarm)
		return imaging.Overlay(out, tint, image.Point{}, alarmTintOpacity)
	}

	drawInfoPanel(out, colorInfoPanel)
	return out
}

func drawPolygonOutline(img *image.RGBA, poly roi.Polygon, c color.Color) {
	n := len(poly)
	if n < 2 {
		return
	}
	for i := 0; i < n; i++ {
		a, b := poly[i], poly[(i+1)%n]
		drawLine(img, int(a.X), int(a.Y), int(b.X), int(b.Y), c)
	}
}

// drawLine is a standard Bresenham rasterizer.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		if (image.Point{x0, y0}).In(img.Rect) {
			img.Set(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func drawBorder(img *image.RGBA, c color.Color, thickness int) {
	b := img.Rect
	for t := 0; t < thickness; t++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.Set(x, b.Min.Y+t, c)
			img.Set(x, b.Max.Y-1-t, c)
		}
		for y := b.Min.Y; y < b.Max.Y; y++ {
			img.Set(b.Min.X+t, y, c)
			img.Set(b.Max.X-1-t, y, c)
		}
	}
}

func drawInfoPanel(img *image.RGBA, c color.Color) {
	b := img.Rect
	height := b.Dy() / 8
	if height < 1 {
		return
	}
	panel := image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+height)
	draw.Draw(img, panel, &image.Uniform{C: c}, image.Point{}, draw.Over)
}
