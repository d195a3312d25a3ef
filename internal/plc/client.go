// Package plc wraps a Siemens S7 PLC connection behind the narrow interface
// spec.md §6 requires: connect/disconnect/read_byte/write_byte plus a
// connected predicate. The S7 wire encoding itself is an opaque transport
// (§1 Non-goals) — this package never touches ISO-on-TCP framing directly,
// it only drives github.com/robinson/gos7's client.
package plc

// Client is the narrow transport interface the core depends on. The real
// implementation (gos7Client, below) wraps github.com/robinson/gos7; tests
// substitute a fake.
type Client interface {
	Connect() error
	Disconnect() error
	IsConnected() bool
	ReadByte(db, offset int) (byte, error)
	WriteByte(db, offset int, value byte) error
}
