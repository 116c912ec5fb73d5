package device

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicemesh-io/devicecore/message"
)

func TestSubscribeReplaysLastLifecycleMessage(t *testing.T) {
	bus := NewMessageBus()
	bus.Publish(message.LifecycleStateChanged("boiler", "Stopped", "Starting"))
	bus.Publish(message.PropertyChanged("boiler", "setpoint", 21.0))

	sub, cancel := bus.Subscribe()
	defer cancel()

	select {
	case m := <-sub:
		assert.Equal(t, message.TypeLifecycleStateChanged, m.Type)
		assert.Equal(t, "Starting", m.Payload["to"])
	case <-time.After(time.Second):
		t.Fatal("expected replayed lifecycle message")
	}

	select {
	case <-sub:
		t.Fatal("property.changed message published before subscribe should not be replayed")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishDeliversInEmissionOrder(t *testing.T) {
	bus := NewMessageBus()
	sub, cancel := bus.Subscribe()
	defer cancel()

	for i := 0; i < 5; i++ {
		bus.Publish(message.PropertyChanged("boiler", "counter", i))
	}

	for i := 0; i < 5; i++ {
		select {
		case m := <-sub:
			require.Equal(t, i, m.Payload["value"])
		case <-time.After(time.Second):
			t.Fatalf("missing message %d", i)
		}
	}
}

func TestCancelUnsubscribesAndClosesChannel(t *testing.T) {
	bus := NewMessageBus()
	sub, cancel := bus.Subscribe()
	cancel()

	_, ok := <-sub
	assert.False(t, ok, "channel should be closed after cancel")
}
