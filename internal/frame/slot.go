package frame

import "sync"

// Slot is a single-cell container holding at most one Frame. Put overwrites
// any existing value and never blocks. Take returns and removes the value.
// PeekCopy returns a deep copy without removing it, for readers (the UI)
// that must not race with a concurrent Take.
//
// Modeled on the dashboard's FrameBuffer, but without the double-buffer
// index swap: the spec requires an actual remove-on-Take so the invariant
// "never a stale capture from before the last successful reconnect" can be
// enforced by simply overwriting on every successful read (§3).
type Slot struct {
	mu      sync.Mutex
	current *Frame
}

// NewSlot returns an empty Slot.
func NewSlot() *Slot {
	return &Slot{}
}

// Put stores f, discarding whatever was there before. Never blocks.
func (s *Slot) Put(f *Frame) {
	s.mu.Lock()
	s.current = f
	s.mu.Unlock()
}

// Take returns and clears the current frame. Returns nil if the slot is
// empty.
func (s *Slot) Take() *Frame {
	s.mu.Lock()
	f := s.current
	s.current = nil
	s.mu.Unlock()
	return f
}

// PeekCopy returns a deep copy of the current frame without removing it.
// Returns nil if the slot is empty.
func (s *Slot) PeekCopy() *Frame {
	s.mu.Lock()
	f := s.current
	s.mu.Unlock()
	return f.Clone()
}

// Reset empties the slot. Used when a capture worker reconnects, so stale
// pre-reconnect frames can never be observed afterward.
func (s *Slot) Reset() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}
