package capture

import "time"

// Backoff implements the capture worker's exponential reconnect schedule
// (§4.2: "start at 0.5s, multiply by 1.5, cap at 10s, reset to the start
// value on a successful connect, retry indefinitely").
type Backoff struct {
	start   time.Duration
	factor  float64
	cap     time.Duration
	current time.Duration
}

func NewBackoff() *Backoff {
	return &Backoff{
		start:   500 * time.Millisecond,
		factor:  1.5,
		cap:     10 * time.Second,
		current: 500 * time.Millisecond,
	}
}

// Next returns the delay to wait before the next attempt and advances the
// schedule.
func (b *Backoff) Next() time.Duration {
	d := b.current
	next := time.Duration(float64(b.current) * b.factor)
	if next > b.cap {
		next = b.cap
	}
	b.current = next
	return d
}

// Reset restores the schedule to its starting delay, called after a
// successful connect.
func (b *Backoff) Reset() {
	b.current = b.start
}
