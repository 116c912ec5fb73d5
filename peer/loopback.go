package peer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/devicemesh-io/devicecore/address"
)

// LoopbackConnection is an in-process PeerConnection that delivers
// Send calls directly to a paired LoopbackConnection's Receive queue.
// It is the one concrete PeerConnection this module ships, standing in
// for the out-of-scope concrete network transports (§1): it lets tests
// and examples exercise driver lookup, address resolution and circuit
// breaking in-process, without requiring a real socket implementation.
// Envelopes pass through a channel as values; they are not encoded with
// the envelope framing.
type LoopbackConnection struct {
	mu        sync.Mutex
	connected bool
	inbox     chan Envelope
	peer      *LoopbackConnection
}

// NewLoopbackConnection creates a disconnected loopback endpoint.
func NewLoopbackConnection() *LoopbackConnection {
	return &LoopbackConnection{inbox: make(chan Envelope, 32)}
}

// Pair wires a and b so each one's Send delivers into the other's
// Receive queue.
func Pair(a, b *LoopbackConnection) {
	a.peer = b
	b.peer = a
}

func (c *LoopbackConnection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	return nil
}

func (c *LoopbackConnection) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return nil
}

func (c *LoopbackConnection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *LoopbackConnection) Send(ctx context.Context, addr address.Address, contentID string, body []byte, qos QoS, timeout time.Duration) error {
	c.mu.Lock()
	peer := c.peer
	connected := c.connected
	c.mu.Unlock()

	if !connected || peer == nil {
		return fmt.Errorf("peer: loopback connection not connected")
	}
	select {
	case peer.inbox <- Envelope{ContentID: contentID, Body: body}:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("peer: send to %s timed out after %s", addr, timeout)
	}
}

func (c *LoopbackConnection) Receive(ctx context.Context, addr address.Address, contentID string, timeout time.Duration) (*Envelope, error) {
	var after <-chan time.Time
	if timeout > 0 {
		after = time.After(timeout)
	}
	select {
	case env := <-c.inbox:
		return &env, nil
	case <-after:
		return nil, fmt.Errorf("peer: receive on %s timed out after %s", addr, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// LoopbackDriver resolves a physical address directly to a
// pre-registered LoopbackConnection, letting tests and examples wire a
// PeerDriver without a real network.
type LoopbackDriver struct {
	mu          sync.Mutex
	connections map[string]*LoopbackConnection
}

// NewLoopbackDriver creates an empty driver.
func NewLoopbackDriver() *LoopbackDriver {
	return &LoopbackDriver{connections: map[string]*LoopbackConnection{}}
}

// Register associates a physical address with a connection Dial will
// return.
func (d *LoopbackDriver) Register(physicalAddress string, conn *LoopbackConnection) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connections[physicalAddress] = conn
}

func (d *LoopbackDriver) Dial(ctx context.Context, physicalAddress string) (PeerConnection, error) {
	d.mu.Lock()
	conn, ok := d.connections[physicalAddress]
	d.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("peer: no loopback connection registered for %q", physicalAddress)
	}
	return conn, nil
}
