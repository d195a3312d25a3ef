package plc

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robinson/gos7"
)

// ConnIdentity identifies one PLC endpoint: (host, rack, slot) per spec.md
// §3 "PLC link."
type ConnIdentity struct {
	Host string
	Port int
	Rack int
	Slot int
}

// gos7Client is the production Client backed by github.com/robinson/gos7.
// gos7 itself is not concurrency-safe for overlapping calls, so every
// method takes the same mutex — matching spec.md §4.7's "PLC link is
// single-writer per camera."
type gos7Client struct {
	mu        sync.Mutex
	identity  ConnIdentity
	handler   *gos7.TCPClientHandler
	client    gos7.Client
	connected bool
}

// NewGOS7Client constructs a Client for one PLC endpoint. Dial happens in
// Connect, not here — construction never blocks on the network.
func NewGOS7Client(identity ConnIdentity) Client {
	if identity.Port == 0 {
		identity.Port = 102 // §6: "default port 102"
	}
	handler := gos7.NewTCPClientHandler(identity.Host, identity.Rack, identity.Slot)
	handler.Timeout = 5 * time.Second
	handler.IdleTimeout = 30 * time.Second

	return &gos7Client{
		identity: identity,
		handler:  handler,
	}
}

func (c *gos7Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.handler.Connect(); err != nil {
		c.connected = false
		return errors.Wrapf(err, "plc: connect to %s rack=%d slot=%d",
			c.identity.Host, c.identity.Rack, c.identity.Slot)
	}
	c.client = gos7.NewClient(c.handler)
	c.connected = true
	return nil
}

func (c *gos7Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connected = false
	c.handler.Close()
	return nil
}

func (c *gos7Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// ReadByte reads the single byte at (db, offset) containing the target
// bit, per spec.md §6: "Alarm writes are always read-modify-write of a
// single byte."
func (c *gos7Client) ReadByte(db, offset int) (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return 0, fmt.Errorf("plc: not connected")
	}
	buf := make([]byte, 1)
	if err := c.client.AGReadDB(db, offset, 1, buf); err != nil {
		return 0, errors.Wrapf(err, "plc: read DB%d.%d", db, offset)
	}
	return buf[0], nil
}

func (c *gos7Client) WriteByte(db, offset int, value byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return fmt.Errorf("plc: not connected")
	}
	if err := c.client.AGWriteDB(db, offset, 1, []byte{value}); err != nil {
		return errors.Wrapf(err, "plc: write DB%d.%d", db, offset)
	}
	return nil
}
