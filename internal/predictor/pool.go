package predictor

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// personClassNames and coalClassNames are the candidate labels a model's
// class table is probed against at load time (§4.3). The first match wins;
// if nothing matches, the defaults (person=0, coal=1) apply — the source's
// fallback, kept as an explicit default per spec.md §9 Open Question.
var (
	personClassNames = []string{"person", "human"}
	coalClassNames   = []string{"coal", "than", "coal_blockage"}
)

// Reporter receives per-frame inference timing. internal/stats.Collector
// implements this; the dependency runs one way (predictor -> reporter
// interface) so predictor never imports stats directly.
type Reporter interface {
	ReportInference(cameraID int, modelID string, elapsedMS float64)
}

// ModelSpec describes one configured model: where to load it from and
// which cameras it serves.
type ModelSpec struct {
	ID      string
	Path    string
	Name    string
	Cameras []int
}

// Loader constructs a Model from a path. Supplied by the caller so this
// package never imports a concrete inference runtime (§1 Non-goals).
type Loader func(path string) (Model, error)

type loadedModel struct {
	model      Model
	mu         sync.Mutex // serializes inference for this model only
	personCID  int
	coalCID    int
}

// Pool owns every loaded model and the camera -> model routing table. It is
// constructed once by the Orchestrator and passed by reference to each
// Camera Supervisor — no process-global registry (§9 design note:
// "Singleton predictor pool").
type Pool struct {
	log      *zap.Logger
	reporter Reporter

	mu          sync.RWMutex
	models      map[string]*loadedModel
	cameraModel map[int]string
	failures    map[int]error // cameras whose model failed to load
}

// NewPool constructs an empty Pool.
func NewPool(log *zap.Logger, reporter Reporter) *Pool {
	return &Pool{
		log:         log,
		reporter:    reporter,
		models:      make(map[string]*loadedModel),
		cameraModel: make(map[int]string),
		failures:    make(map[int]error),
	}
}

// Load loads every configured model via load and builds the camera -> model
// reverse map. A model that fails to load is fatal for the cameras bound to
// it; other models continue loading (§4.3 Failure, §4.9).
func (p *Pool) Load(specs []ModelSpec, load Loader) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, spec := range specs {
		m, err := load(spec.Path)
		if err != nil {
			err = errors.Wrapf(err, "predictor: load model %q from %q", spec.ID, spec.Path)
			p.log.Error("model load failed", zap.String("model_id", spec.ID), zap.Error(err))
			for _, camID := range spec.Cameras {
				p.failures[camID] = err
			}
			continue
		}

		personCID, coalCID := resolveClassIDs(m.ClassNames())
		p.models[spec.ID] = &loadedModel{model: m, personCID: personCID, coalCID: coalCID}

		for _, camID := range spec.Cameras {
			p.cameraModel[camID] = spec.ID
		}
		p.log.Info("model loaded",
			zap.String("model_id", spec.ID), zap.String("path", spec.Path),
			zap.Int("person_class_id", personCID), zap.Int("coal_class_id", coalCID),
			zap.Ints("cameras", spec.Cameras))
	}
}

// resolveClassIDs probes a model's class-name table for "person" and
// "coal/than" labels, defaulting to 0/1 when absent (§4.3, §9 Open
// Question).
func resolveClassIDs(names map[int]string) (personID, coalID int) {
	personID, coalID = 0, 1
	byName := make(map[string]int, len(names))
	for id, name := range names {
		byName[name] = id
	}
	for _, candidate := range personClassNames {
		if id, ok := byName[candidate]; ok {
			personID = id
			break
		}
	}
	for _, candidate := range coalClassNames {
		if id, ok := byName[candidate]; ok {
			coalID = id
			break
		}
	}
	return personID, coalID
}

// FailureFor returns the load error recorded for a camera, if its model
// failed to load.
func (p *Pool) FailureFor(cameraID int) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.failures[cameraID]
}

// ClassIDs returns the resolved person/coal class ids for the model serving
// cameraID.
func (p *Pool) ClassIDs(cameraID int) (personID, coalID int, err error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	modelID, ok := p.cameraModel[cameraID]
	if !ok {
		return 0, 0, fmt.Errorf("predictor: no model routed for camera %d", cameraID)
	}
	lm := p.models[modelID]
	return lm.personCID, lm.coalCID, nil
}

// Predict runs inference for cameraID's routed model under that model's
// exclusive lock. A model's lock is never held across frames from
// different cameras concurrently; distinct models may run in parallel
// (§4.3, §5).
func (p *Pool) Predict(cameraID int, pix []byte, width, height int, confidenceThreshold float64) (Prediction, error) {
	p.mu.RLock()
	modelID, ok := p.cameraModel[cameraID]
	if !ok {
		p.mu.RUnlock()
		return Prediction{}, fmt.Errorf("predictor: no model routed for camera %d", cameraID)
	}
	lm := p.models[modelID]
	p.mu.RUnlock()

	lm.mu.Lock()
	defer lm.mu.Unlock()

	start := time.Now()
	pred, err := lm.model.Infer(pix, width, height, confidenceThreshold)
	elapsed := float64(time.Since(start)) / float64(time.Millisecond)
	pred.ElapsedMS = elapsed

	if err != nil {
		p.log.Warn("inference failed, dropping frame",
			zap.Int("camera_id", cameraID), zap.String("model_id", modelID), zap.Error(err))
		return Prediction{}, err
	}

	if p.reporter != nil {
		p.reporter.ReportInference(cameraID, modelID, elapsed)
	}
	return pred, nil
}

// Close releases every loaded model.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, lm := range p.models {
		if err := lm.model.Close(); err != nil {
			p.log.Warn("model close failed", zap.String("model_id", id), zap.Error(err))
		}
	}
}
