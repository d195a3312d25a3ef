// Package capture implements the RTSP Capture Worker (§4.2): one goroutine
// per camera that pulls frames from either an RTSP source or a local file
// source, paces them to the configured target FPS, and hands the freshest
// decoded frame to the handoff queue.
package capture

// State is the capture worker's lifecycle (§4.2).
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateStopped
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateStopped:
		return "stopped"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
