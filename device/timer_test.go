package device

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/devicemesh-io/devicecore/core"
)

func TestPeriodicTimerTicksOnFakeClock(t *testing.T) {
	clock := core.NewFakeClock(time.Unix(0, 0))
	svc := NewTimerService(clock)
	defer svc.Stop()

	svc.RequestPeriodic("poll", time.Second)
	clock.Advance(time.Second)

	select {
	case tick := <-svc.Ticks():
		assert.Equal(t, "poll", tick.Name)
		assert.Equal(t, time.Second, tick.DT)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a timer tick")
	}
}

func TestCancelStopsPeriodicTimer(t *testing.T) {
	clock := core.NewFakeClock(time.Unix(0, 0))
	svc := NewTimerService(clock)
	defer svc.Stop()

	svc.RequestPeriodic("poll", time.Second)
	svc.Cancel("poll")
	clock.Advance(5 * time.Second)

	select {
	case <-svc.Ticks():
		t.Fatal("cancelled timer should not tick")
	case <-time.After(100 * time.Millisecond):
	}
}
