package ui

import (
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"

	"coalguard/internal/helpers"
	"coalguard/internal/orchestrator"
	"coalguard/internal/supervisor"
)

// refreshInterval is how often the tiled view samples each camera's
// latest-frame slot and alarm state (§4.12).
const refreshInterval = 200 * time.Millisecond

// CameraLabel names a tile; cameras without a configured name fall back
// to "camera <id>".
type CameraLabel struct {
	ID   int
	Name string
}

// App is the tiled live view: one CameraTile per configured camera,
// refreshed on a ticker from the orchestrator's running supervisors.
type App struct {
	fyneApp fyne.App
	window  fyne.Window
	orch    *orchestrator.Orchestrator
	labels  []CameraLabel
	tiles   map[int]*CameraTile
	stopCh  chan struct{}
}

// NewApp builds the window and one tile per label; cameraIDs with no
// running supervisor (excluded at orchestrator construction) still get a
// tile, shown as permanently disconnected.
func NewApp(orch *orchestrator.Orchestrator, labels []CameraLabel) *App {
	fyneApp := app.New()
	window := fyneApp.NewWindow("coalguard")
	window.Resize(fyne.NewSize(1024, 600))

	labels = append([]CameraLabel(nil), labels...)
	for i := range labels {
		if labels[i].Name == "" {
			labels[i].Name = fmt.Sprintf("camera %d", labels[i].ID)
		}
	}

	a := &App{
		fyneApp: fyneApp,
		window:  window,
		orch:    orch,
		labels:  labels,
		tiles:   make(map[int]*CameraTile, len(labels)),
		stopCh:  make(chan struct{}),
	}

	objects := make([]fyne.CanvasObject, 0, len(labels))
	for _, lbl := range labels {
		tile := NewCameraTile(lbl.ID, lbl.Name)
		a.tiles[lbl.ID] = tile
		objects = append(objects, tile.Container())
	}
	_, cols := helpers.GetSmartGrid(len(objects))
	if cols < 1 {
		cols = 1
	}
	window.SetContent(container.NewGridWithColumns(cols, objects...))

	return a
}

// Run shows the window and blocks until it's closed, refreshing tiles on
// refreshInterval in the background.
func (a *App) Run() {
	go a.refreshLoop()
	a.window.SetOnClosed(func() { close(a.stopCh) })
	a.window.ShowAndRun()
}

// Stop closes the window programmatically (used by --headless callers
// that never call Run, and by tests).
func (a *App) Stop() {
	select {
	case <-a.stopCh:
	default:
		close(a.stopCh)
	}
}

func (a *App) refreshLoop() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			a.refreshOnce()
		}
	}
}

func (a *App) refreshOnce() {
	for _, lbl := range a.labels {
		tile := a.tiles[lbl.ID]
		sup := a.orch.Supervisor(lbl.ID)
		if sup == nil {
			tile.SetAlarmState(lbl.Name, false, false, false)
			continue
		}
		connected := sup.State() == supervisor.StateRunning
		if f := sup.Latest(); f != nil {
			tile.SetFrame(f.Image())
		}
		tile.SetAlarmState(lbl.Name, connected, sup.PersonArmed(), sup.CoalArmed())
	}
}

// StatusLine renders the same information NewApp's tiles show, as one
// line of text — used by --headless (§6 CLI surface).
func StatusLine(orch *orchestrator.Orchestrator, labels []CameraLabel) string {
	line := ""
	for _, lbl := range labels {
		sup := orch.Supervisor(lbl.ID)
		if sup == nil {
			line += fmt.Sprintf("[cam %d: excluded] ", lbl.ID)
			continue
		}
		line += fmt.Sprintf("[cam %d %s person=%v coal=%v] ", lbl.ID, sup.State(), sup.PersonArmed(), sup.CoalArmed())
	}
	return line
}
