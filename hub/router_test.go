package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicemesh-io/devicecore/message"
)

func TestRouterDeliversOnlyMatchingSubscribers(t *testing.T) {
	r := NewRouter()
	lifecycle, cancelLifecycle := r.Subscribe("lifecycle.stateChanged.**")
	props, cancelProps := r.Subscribe("property.changed.**")
	defer cancelLifecycle()
	defer cancelProps()

	msg := message.LifecycleStateChanged("boiler", "Stopped", "Starting")
	r.Publish(topicFor(msg), msg)

	select {
	case got := <-lifecycle:
		assert.Equal(t, message.TypeLifecycleStateChanged, got.Message.Type)
	case <-time.After(time.Second):
		t.Fatal("expected lifecycle subscriber to receive event")
	}

	select {
	case <-props:
		t.Fatal("property subscriber should not receive lifecycle event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRouterCancelClosesChannel(t *testing.T) {
	r := NewRouter()
	ch, cancel := r.Subscribe("a.**")
	cancel()

	_, open := <-ch
	assert.False(t, open)
}

func TestRouterPropertyTopicIncludesPropertyName(t *testing.T) {
	r := NewRouter()
	ch, cancel := r.Subscribe("property.changed.boiler.setpoint")
	defer cancel()

	msg := message.PropertyChanged("boiler", "setpoint", 21.0)
	r.Publish(topicFor(msg), msg)

	select {
	case got := <-ch:
		require.Equal(t, "setpoint", got.Message.Payload["propertyName"])
	case <-time.After(time.Second):
		t.Fatal("expected property-scoped subscriber to receive event")
	}
}
