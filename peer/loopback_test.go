package peer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/devicemesh-io/devicecore/address"
)

func TestLoopbackConnectionPairedRoundTrip(t *testing.T) {
	a := NewLoopbackConnection()
	b := NewLoopbackConnection()
	Pair(a, b)

	require.NoError(t, a.Connect(context.Background()))
	require.NoError(t, b.Connect(context.Background()))

	err := a.Send(context.Background(), address.Local("b"), "content-1", []byte("hello"), QoSAtLeastOnce, time.Second)
	require.NoError(t, err)

	env, err := b.Receive(context.Background(), address.Local("a"), "content-1", time.Second)
	require.NoError(t, err)
	require.Equal(t, "content-1", env.ContentID)
	require.Equal(t, []byte("hello"), env.Body)
}

func TestLoopbackConnectionSendWithoutConnectFails(t *testing.T) {
	a := NewLoopbackConnection()
	b := NewLoopbackConnection()
	Pair(a, b)

	err := a.Send(context.Background(), address.Local("b"), "c", []byte("x"), QoSAtMostOnce, time.Second)
	require.Error(t, err)
}

func TestLoopbackConnectionReceiveTimesOutWithNoMessage(t *testing.T) {
	a := NewLoopbackConnection()
	_, err := a.Receive(context.Background(), address.Local("a"), "c", 10*time.Millisecond)
	require.Error(t, err)
}

func TestLoopbackConnectionReceiveRespectsContextCancellation(t *testing.T) {
	a := NewLoopbackConnection()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Receive(ctx, address.Local("a"), "c", time.Second)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoopbackDriverDialsRegisteredConnection(t *testing.T) {
	conn := NewLoopbackConnection()
	driver := NewLoopbackDriver()
	driver.Register("loopback://hub-a", conn)

	dialed, err := driver.Dial(context.Background(), "loopback://hub-a")
	require.NoError(t, err)
	require.Same(t, conn, dialed)
}

func TestLoopbackDriverDialUnregisteredAddressFails(t *testing.T) {
	driver := NewLoopbackDriver()
	_, err := driver.Dial(context.Background(), "loopback://missing")
	require.Error(t, err)
}
