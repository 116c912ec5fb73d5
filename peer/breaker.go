package peer

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/devicemesh-io/devicecore/address"
)

// CircuitBreakingConnection wraps a PeerConnection with a
// github.com/sony/gobreaker circuit breaker, grounded on the
// jordigilh-kubernaut resilience package's Execute(ctx, fn)-style
// adapter. IsConnected reports false whenever the breaker is open,
// feeding the PeerConnection.isConnected contract from §6 without the
// caller needing to know about the breaker at all.
type CircuitBreakingConnection struct {
	inner   PeerConnection
	breaker *gobreaker.CircuitBreaker
}

// BreakerSettings configures the trip/reset behaviour of a
// CircuitBreakingConnection.
type BreakerSettings struct {
	Name                string
	MaxHalfOpenRequests  uint32
	OpenTimeout          time.Duration
	ConsecutiveFailures  uint32
}

// NewCircuitBreakingConnection wraps inner with a circuit breaker that
// trips after ConsecutiveFailures consecutive Send/Receive failures
// and stays open for OpenTimeout before allowing a half-open probe.
func NewCircuitBreakingConnection(inner PeerConnection, settings BreakerSettings) *CircuitBreakingConnection {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.MaxHalfOpenRequests,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
	})
	return &CircuitBreakingConnection{inner: inner, breaker: cb}
}

func (c *CircuitBreakingConnection) Connect(ctx context.Context) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.inner.Connect(ctx)
	})
	return err
}

func (c *CircuitBreakingConnection) Disconnect(ctx context.Context) error {
	return c.inner.Disconnect(ctx)
}

// IsConnected reports the inner connection's liveness, but only while
// the breaker is not open; an open breaker means calls are currently
// being short-circuited, which the hub should treat the same as
// "not connected" regardless of what the inner transport reports.
func (c *CircuitBreakingConnection) IsConnected() bool {
	if c.breaker.State() == gobreaker.StateOpen {
		return false
	}
	return c.inner.IsConnected()
}

func (c *CircuitBreakingConnection) Send(ctx context.Context, addr address.Address, contentID string, body []byte, qos QoS, timeout time.Duration) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.inner.Send(ctx, addr, contentID, body, qos, timeout)
	})
	return err
}

func (c *CircuitBreakingConnection) Receive(ctx context.Context, addr address.Address, contentID string, timeout time.Duration) (*Envelope, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		return c.inner.Receive(ctx, addr, contentID, timeout)
	})
	if err != nil {
		return nil, err
	}
	env, _ := result.(*Envelope)
	return env, nil
}
