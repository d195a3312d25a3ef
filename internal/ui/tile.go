// Package ui implements the tiled live-view (§4.12): one pane per camera,
// refreshed from that camera's latest-frame slot, with a red border drawn
// around any pane currently armed for an alarm. Widget layout itself is
// explicitly out of scope (§1 Non-goals); this package only wires the
// dashboard's existing fyne widgets to the new per-camera data source.
package ui

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

var (
	colorNoAlarm = color.RGBA{40, 40, 40, 255}
	colorArmed   = color.RGBA{220, 30, 30, 255}
	borderWidth  = float32(4)
)

// CameraTile shows one camera's latest frame plus a status label and an
// alarm border that turns red when either detector is armed.
type CameraTile struct {
	cameraID int

	image  *canvas.Image
	border *canvas.Rectangle
	status *widget.Label

	container *fyne.Container
}

// NewCameraTile builds a placeholder tile for cameraID; frames arrive
// later via SetFrame.
func NewCameraTile(cameraID int, name string) *CameraTile {
	t := &CameraTile{cameraID: cameraID}

	t.image = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 4, 4)))
	t.image.FillMode = canvas.ImageFillContain

	t.border = canvas.NewRectangle(color.Transparent)
	t.border.StrokeColor = colorNoAlarm
	t.border.StrokeWidth = borderWidth
	t.border.FillColor = color.Transparent

	t.status = widget.NewLabel(name + ": connecting")

	stack := container.NewStack(t.image, t.border)
	t.container = container.NewBorder(nil, t.status, nil, nil, stack)
	return t
}

// Container returns the fyne object to place in the grid.
func (t *CameraTile) Container() fyne.CanvasObject { return t.container }

// SetFrame updates the displayed image. img may be nil while a camera has
// not yet produced a frame.
func (t *CameraTile) SetFrame(img image.Image) {
	if img == nil {
		return
	}
	t.image.Image = img
	t.image.Refresh()
}

// SetAlarmState toggles the tile's border color and status text based on
// this camera's current person/coal armed state.
func (t *CameraTile) SetAlarmState(name string, connected, personArmed, coalArmed bool) {
	switch {
	case !connected:
		t.border.StrokeColor = colorNoAlarm
		t.status.SetText(name + ": disconnected")
	case personArmed || coalArmed:
		t.border.StrokeColor = colorArmed
		t.status.SetText(name + ": ALARM " + alarmLabel(personArmed, coalArmed))
	default:
		t.border.StrokeColor = colorNoAlarm
		t.status.SetText(name + ": ok")
	}
	t.border.Refresh()
}

func alarmLabel(person, coal bool) string {
	switch {
	case person && coal:
		return "person+coal"
	case person:
		return "person"
	case coal:
		return "coal"
	default:
		return ""
	}
}
