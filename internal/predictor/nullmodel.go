package predictor

import "go.uber.org/zap"

// nullModel never detects anything. It exists so the core runs end to end
// out of the box, wiring through the real Predict/Pool scheduling, before
// a deployment plugs in an actual inference runtime — the concrete engine
// is the opaque collaborator §1 Non-goals names, so this package cannot
// ship one.
type nullModel struct {
	log *zap.Logger
}

func (m *nullModel) Infer(pix []byte, width, height int, confidenceThreshold float64) (Prediction, error) {
	return Prediction{}, nil
}

func (m *nullModel) ClassNames() map[int]string {
	return map[int]string{0: "person", 1: "coal"}
}

func (m *nullModel) Close() error { return nil }

// NewNullLoader returns a Loader that always succeeds with a model that
// never detects anything, logging a warning per load so a deployment
// running on stub inference is visible in the log stream.
func NewNullLoader(log *zap.Logger) Loader {
	return func(path string) (Model, error) {
		log.Warn("predictor: no inference engine wired, loading stub null model",
			zap.String("path", path))
		return &nullModel{log: log}, nil
	}
}
