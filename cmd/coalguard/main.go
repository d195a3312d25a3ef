// Command coalguard runs the orchestrator described in spec.md: one
// Camera Supervisor per configured camera, wired to a shared predictor
// pool, per-camera PLC alarm actuators, and the two persistence sinks.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"coalguard/internal/config"
	"coalguard/internal/events"
	"coalguard/internal/orchestrator"
	"coalguard/internal/persistence"
	"coalguard/internal/plc"
	"coalguard/internal/predictor"
	"coalguard/internal/stats"
	"coalguard/internal/ui"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to the JSON configuration file")
	createConfig := flag.Int("create-config", 0, "write a sample config with N cameras to --config and exit")
	headless := flag.Bool("headless", false, "run without the UI, printing an aggregated status line once per second")
	flag.Parse()

	if *createConfig > 0 {
		path := *configPath
		if path == "" {
			path = "./config.json"
		}
		if err := config.Save(path, config.Sample(*createConfig)); err != nil {
			fmt.Fprintf(os.Stderr, "coalguard: create-config failed: %v\n", err)
			return 1
		}
		fmt.Printf("coalguard: wrote sample config for %d camera(s) to %s\n", *createConfig, path)
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "coalguard: config load failed: %v\n", err)
		return 1
	}

	log, logCleanup, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "coalguard: logger setup failed: %v\n", err)
		return 1
	}
	defer logCleanup()

	log.Info("coalguard starting", zap.String("version", cfg.Version))

	orchCfg := cfg.ToOrchestratorConfig()

	statsCollector := stats.New()
	eventLogDir := filepath.Join(cfg.LogsDir, "events")
	eventLog := persistence.NewEventLog(log, eventLogDir, durationFromSeconds(cfg.Throttles.AlertDisplayInterval))
	snapshots := persistence.NewSnapshotWriter(log, cfg.ArtifactsDir, durationFromSeconds(cfg.Throttles.ImageSaveInterval), persistence.DefaultDiskQuota)
	defer eventLog.Close()

	zones := make(map[int]persistence.CameraZones, len(orchCfg.Cameras))
	for _, cam := range orchCfg.Cameras {
		zones[cam.ID] = persistence.CameraZones{Person: cam.PersonZone, Coal: cam.CoalZone}
	}
	recorder := persistence.NewRecorder(eventLog, snapshots, zones)

	stream := events.NewStream()
	recorderStop := make(chan struct{})
	go recorder.Run(stream, recorderStop)

	orch := orchestrator.New(log, orchCfg, predictor.NewNullLoader(log),
		func(identity plc.ConnIdentity) plc.Client { return plc.NewGOS7Client(identity) },
		stream, statsCollector, recorder)

	for camID, cerr := range orch.CameraErrors() {
		log.Error("camera excluded at startup", zap.Int("camera_id", camID), zap.Error(cerr))
	}
	if len(orch.Cameras()) == 0 && len(orchCfg.Cameras) > 0 {
		fmt.Fprintln(os.Stderr, "coalguard: no camera survived configuration/model validation")
		return 1
	}

	orch.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	labels := make([]ui.CameraLabel, 0, len(orchCfg.Cameras))
	for _, cam := range orchCfg.Cameras {
		labels = append(labels, ui.CameraLabel{ID: cam.ID, Name: cam.Name})
	}

	if *headless {
		runHeadless(orch, labels, sigCh)
	} else {
		app := ui.NewApp(orch, labels)
		go func() {
			<-sigCh
			app.Stop()
		}()
		app.Run()
	}

	orch.Stop()
	close(recorderStop)
	log.Info("coalguard stopped cleanly")
	return 0
}

func runHeadless(orch *orchestrator.Orchestrator, labels []ui.CameraLabel, sigCh <-chan os.Signal) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			return
		case <-ticker.C:
			fmt.Println(ui.StatusLine(orch, labels))
		}
	}
}

func durationFromSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
