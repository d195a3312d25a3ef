// Package actuator performs the bit-level, edge-triggered PLC writes that
// assert or clear the person/coal alarms for one camera (§4.7).
package actuator

import (
	"sync"

	"go.uber.org/zap"

	"coalguard/internal/plc"
)

// Kind is which alarm an address belongs to.
type Kind int

const (
	Person Kind = iota
	Coal
)

func (k Kind) String() string {
	if k == Person {
		return "person"
	}
	return "coal"
}

// Address identifies a single PLC bit (§3 "Alarm address").
type Address struct {
	DataBlock  int
	ByteOffset int
	BitOffset  int
}

type addressState struct {
	addr        Address
	lastWritten bool
	hasWritten  bool // false until the first confirmed write
}

// Actuator holds the two alarm addresses for one camera and the PLC link
// they're written through. set() is idempotent: a request matching the
// last confirmed value never touches the wire (§4.7, §8 property #4/#8).
type Actuator struct {
	log  *zap.Logger
	link *plc.Link

	mu    sync.Mutex
	addrs map[Kind]*addressState
}

// New constructs an Actuator for one camera's person/coal addresses.
func New(log *zap.Logger, link *plc.Link, person, coal Address) *Actuator {
	return &Actuator{
		log:  log,
		link: link,
		addrs: map[Kind]*addressState{
			Person: {addr: person},
			Coal:   {addr: coal},
		},
	}
}

// Set asserts or clears the given alarm kind. Returns nil without touching
// the wire if state already matches the last confirmed write (§4.7
// Idempotence). On a wire failure, it asks the link to reconnect once and
// retries exactly one more time; if that also fails, the error is returned
// and the in-memory last-written value is left unchanged (only a confirmed
// write updates it).
func (a *Actuator) Set(kind Kind, state bool) error {
	a.mu.Lock()
	st := a.addrs[kind]
	if st.hasWritten && st.lastWritten == state {
		a.mu.Unlock()
		return nil
	}
	addr := st.addr
	a.mu.Unlock()

	if err := a.writeBit(addr, state); err != nil {
		a.log.Warn("plc alarm write failed, reconnecting and retrying once",
			zap.String("kind", kind.String()), zap.Error(err))
		if recErr := a.link.Reconnect(); recErr != nil {
			return recErr
		}
		if err := a.writeBit(addr, state); err != nil {
			a.log.Error("plc alarm write failed after retry, link unhealthy",
				zap.String("kind", kind.String()), zap.Error(err))
			return err
		}
	}

	a.mu.Lock()
	st.lastWritten = state
	st.hasWritten = true
	a.mu.Unlock()
	return nil
}

// writeBit performs the read-modify-write of the single byte containing
// the target bit (§4.7 Edge write, §6: "always read-modify-write of a
// single byte").
func (a *Actuator) writeBit(addr Address, state bool) error {
	current, err := a.link.ReadByte(addr.DataBlock, addr.ByteOffset)
	if err != nil {
		return err
	}

	var next byte
	if state {
		next = current | (1 << uint(addr.BitOffset))
	} else {
		next = current &^ (1 << uint(addr.BitOffset))
	}

	if next == current {
		return a.link.WriteByte(addr.DataBlock, addr.ByteOffset, current) // harmless no-op write, keeps write path exercised
	}
	return a.link.WriteByte(addr.DataBlock, addr.ByteOffset, next)
}

// Shutdown writes every alarm address to 0 before the caller releases the
// link (§4.7 Shutdown). Errors are logged, not propagated (§7
// Shutdown-path errors).
func (a *Actuator) Shutdown() {
	for kind := range a.addrs {
		if err := a.Set(kind, false); err != nil {
			a.log.Warn("shutdown: failed to clear alarm bit",
				zap.String("kind", kind.String()), zap.Error(err))
		}
	}
}
