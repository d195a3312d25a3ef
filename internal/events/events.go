// Package events implements the single typed event stream the orchestrator
// publishes to and the UI/persistence layers subscribe to (§9 design note
// "callback fan-out", restated here as a broadcast channel of typed
// records rather than per-consumer callbacks).
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes the event records the rest of the system emits.
type Kind string

const (
	KindAlarmArmed       Kind = "alarm_armed"
	KindAlarmDisarmed    Kind = "alarm_disarmed"
	KindCameraStateChange Kind = "camera_state_change"
	KindPLCStateChange   Kind = "plc_state_change"
	KindModelLoadFailure Kind = "model_load_failure"
	KindSystemError      Kind = "system_error"
)

// Event is one record on the stream. ID lets a subscriber deduplicate an
// event it may have observed twice across a reconnect (e.g. the UI and
// the persistence recorder both subscribing independently).
type Event struct {
	ID        string
	Kind      Kind
	CameraID  int
	Message   string
	Timestamp time.Time
	Fields    map[string]any
}

// newEventID generates a unique event identifier.
func newEventID() string { return uuid.NewString() }

// subscriberBuffer is each subscriber's mailbox size. A slow subscriber
// drops the oldest unread event rather than blocking the publisher.
const subscriberBuffer = 64

// Stream is a single publisher, many-subscriber fan-out of Events.
type Stream struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// NewStream constructs an empty event stream.
func NewStream() *Stream {
	return &Stream{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function.
func (s *Stream) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	ch := make(chan Event, subscriberBuffer)
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// Publish fans e out to every current subscriber, non-blocking: a full
// subscriber channel drops the oldest buffered event to make room.
func (s *Stream) Publish(e Event) {
	if e.ID == "" {
		e.ID = newEventID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- e:
			default:
			}
		}
	}
}

// Close shuts down every subscriber channel.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
