package device

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/devicemesh-io/devicecore/core"
)

// TimerTick is emitted each time a named timer fires (§4.2). DT is the
// actual elapsed interval since the previous tick (or since the timer
// was requested, for the first tick), which may vary from the nominal
// period under a fake clock or system load — this is deliberate, not
// a bug, since simulation determinism depends on observing the real
// elapsed interval (§4.2: "Essential for simulation determinism").
type TimerTick struct {
	Name string
	DT   time.Duration
}

// TimerService runs named, periodic or cron-scheduled timers for a
// device, delivering TimerTick events on a channel. Periodic timers
// are driven off core.Clock so tests can use a fake clock; cron
// timers run off wall-clock time via robfig/cron/v3, matching the
// teacher pack's scheduling library (celerity's apps/local-events,
// r3e-network-service_layer) for calendar-based schedules that a
// simple period cannot express.
type TimerService struct {
	clock core.Clock

	mu      sync.Mutex
	ticks   chan TimerTick
	periods map[string]chan struct{} // name -> stop channel
	cronJob *cron.Cron
	cronIDs map[string]cron.EntryID
}

// NewTimerService builds a TimerService. If clock is nil, the real
// clock is used.
func NewTimerService(clock core.Clock) *TimerService {
	if clock == nil {
		clock = core.NewRealClock()
	}
	return &TimerService{
		clock:   clock,
		ticks:   make(chan TimerTick, 32),
		periods: map[string]chan struct{}{},
		cronIDs: map[string]cron.EntryID{},
	}
}

// Ticks returns the channel timer events are delivered on.
func (s *TimerService) Ticks() <-chan TimerTick {
	return s.ticks
}

// RequestPeriodic starts a named timer that ticks every period until
// Cancel is called or the service is stopped.
func (s *TimerService) RequestPeriodic(name string, period time.Duration) {
	s.mu.Lock()
	if _, exists := s.periods[name]; exists {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.periods[name] = stop
	last := s.clock.Now()
	timer := s.clock.NewTimer(period)
	s.mu.Unlock()

	go func() {
		defer timer.Stop()
		for {
			select {
			case <-stop:
				return
			case now := <-timer.Chan():
				dt := now.Sub(last)
				last = now
				select {
				case s.ticks <- TimerTick{Name: name, DT: dt}:
				default:
				}
				timer.Reset(period)
			}
		}
	}()
}

// RequestCron starts a named timer on a cron schedule expression
// (standard 5-field robfig/cron syntax).
func (s *TimerService) RequestCron(name string, spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cronJob == nil {
		s.cronJob = cron.New()
		s.cronJob.Start()
	}
	if _, exists := s.cronIDs[name]; exists {
		return nil
	}

	last := s.clock.Now()
	id, err := s.cronJob.AddFunc(spec, func() {
		// robfig/cron schedules its own goroutine off the wall clock
		// internally, so it cannot be driven by s.clock; unlike the
		// periodic timer above, this DT is not fake-clock-injectable
		// in tests.
		now := time.Now()
		dt := now.Sub(last)
		last = now
		select {
		case s.ticks <- TimerTick{Name: name, DT: dt}:
		default:
		}
	})
	if err != nil {
		return err
	}
	s.cronIDs[name] = id
	return nil
}

// Cancel stops the named timer, periodic or cron.
func (s *TimerService) Cancel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stop, ok := s.periods[name]; ok {
		close(stop)
		delete(s.periods, name)
	}
	if id, ok := s.cronIDs[name]; ok {
		s.cronJob.Remove(id)
		delete(s.cronIDs, name)
	}
}

// Stop cancels every timer and releases resources. Cancellation is
// cooperative per §5: in-flight ticks already queued on the channel
// are not discarded, only future firings are stopped.
func (s *TimerService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, stop := range s.periods {
		close(stop)
		delete(s.periods, name)
	}
	if s.cronJob != nil {
		s.cronJob.Stop()
	}
}
