package peer

import (
	"context"
	"time"

	"github.com/devicemesh-io/devicecore/address"
)

// QoS names the delivery guarantee requested for a Send call.
type QoS string

const (
	QoSAtMostOnce  QoS = "AT_MOST_ONCE"
	QoSAtLeastOnce QoS = "AT_LEAST_ONCE"
)

// PeerConnection is the transport surface a hub uses to reach a remote
// child hosted on another hub (§6). Connect/Disconnect manage the
// underlying session; IsConnected reports current liveness so callers
// (notably a CircuitBreakingConnection) can short-circuit calls while
// down.
type PeerConnection interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool

	Send(ctx context.Context, addr address.Address, contentID string, body []byte, qos QoS, timeout time.Duration) error
	Receive(ctx context.Context, addr address.Address, contentID string, timeout time.Duration) (*Envelope, error)
}
