package plc

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// State is the PLC link's connection lifecycle (§4.7).
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateError
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Link owns one PLC connection, exclusively used by one camera's Alarm
// Actuator (§4.7: "The PLC link is single-writer per camera ... one PLC
// per camera"). It tracks connection state and drives the reconnect
// schedule and periodic health check supplementing spec.md §6's
// health_check_interval config field.
type Link struct {
	log    *zap.Logger
	client Client

	state          atomic.Int32
	reconnects     atomic.Uint64
	stopCh         chan struct{}
	stopOnce       sync.Once
	healthInterval time.Duration
}

// NewLink wraps a Client with connection-state tracking.
func NewLink(log *zap.Logger, client Client, healthCheckInterval time.Duration) *Link {
	if healthCheckInterval <= 0 {
		healthCheckInterval = 30 * time.Second
	}
	return &Link{
		log:            log,
		client:         client,
		stopCh:         make(chan struct{}),
		healthInterval: healthCheckInterval,
	}
}

// State returns the current connection state.
func (l *Link) State() State { return State(l.state.Load()) }

// Reconnects returns the number of successful reconnects since start.
func (l *Link) Reconnects() uint64 { return l.reconnects.Load() }

// Connect establishes the initial connection.
func (l *Link) Connect() error {
	l.state.Store(int32(StateConnecting))
	if err := l.client.Connect(); err != nil {
		l.state.Store(int32(StateError))
		return err
	}
	l.state.Store(int32(StateConnected))
	return nil
}

// Reconnect tears down and re-establishes the connection once — called by
// the Alarm Actuator's fault-handling path (§4.7) and by the background
// health-check loop.
func (l *Link) Reconnect() error {
	l.state.Store(int32(StateReconnecting))
	_ = l.client.Disconnect()
	if err := l.client.Connect(); err != nil {
		l.state.Store(int32(StateError))
		l.log.Warn("plc reconnect failed", zap.Error(err))
		return err
	}
	l.reconnects.Add(1)
	l.state.Store(int32(StateConnected))
	return nil
}

// ReadByte and WriteByte delegate to the underlying Client.
func (l *Link) ReadByte(db, offset int) (byte, error)        { return l.client.ReadByte(db, offset) }
func (l *Link) WriteByte(db, offset int, v byte) error       { return l.client.WriteByte(db, offset, v) }
func (l *Link) IsConnected() bool                            { return l.client.IsConnected() }

// RunHealthCheck polls connection health on healthInterval until Stop is
// called. On every tick that finds the link down it logs a WARNING and
// attempts a reconnect; there is no separate reporting threshold.
func (l *Link) RunHealthCheck() {
	ticker := time.NewTicker(l.healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			if l.IsConnected() {
				continue
			}
			l.log.Warn("plc link down, attempting reconnect", zap.String("state", l.State().String()))
			if err := l.Reconnect(); err != nil {
				continue
			}
			l.log.Info("plc link restored")
		}
	}
}

// Stop halts RunHealthCheck and disconnects.
func (l *Link) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
	_ = l.client.Disconnect()
	l.state.Store(int32(StateDisconnected))
}
