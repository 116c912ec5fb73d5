package device

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RestartStrategy names the delay formula applied between restart
// attempts after a device enters Failed (§4.2).
type RestartStrategy string

const (
	RestartLinear      RestartStrategy = "Linear"
	RestartExponential RestartStrategy = "Exponential"
	RestartFibonacci   RestartStrategy = "Fibonacci"
)

// RestartPolicy configures the runtime's response to a device entering
// Failed (§4.2). MaxAttempts<=0 means unbounded retries.
type RestartPolicy struct {
	MaxAttempts     int
	Strategy        RestartStrategy
	Base            time.Duration
	ResetOnSuccess  bool
}

// Unbounded reports whether this policy never stops retrying.
func (p RestartPolicy) Unbounded() bool {
	return p.MaxAttempts <= 0
}

// delayFor computes the backoff delay before the given 1-indexed
// restart attempt, per the configured strategy. Exponential reuses
// cenkalti/backoff's exponential curve (base as InitialInterval,
// doubling each attempt, matching the coordinator's own retry backoff
// in the transaction package); Linear and Fibonacci have no backoff/v4
// analogue and are computed directly per §4.2's "delay = strategy
// (attempt, base)".
func (p RestartPolicy) delayFor(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	switch p.Strategy {
	case RestartLinear:
		return time.Duration(attempt) * p.Base
	case RestartFibonacci:
		return fibonacci(attempt) * p.Base
	case RestartExponential:
		fallthrough
	default:
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = p.Base
		b.Multiplier = 2
		b.RandomizationFactor = 0
		b.MaxElapsedTime = 0
		delay := b.InitialInterval
		for i := 1; i < attempt; i++ {
			delay = time.Duration(float64(delay) * b.Multiplier)
			if delay > b.MaxInterval {
				delay = b.MaxInterval
				break
			}
		}
		return delay
	}
}

// fibonacci returns the nth (1-indexed) Fibonacci number as a
// multiplier on Base, with fib(1) = fib(2) = 1.
func fibonacci(n int) time.Duration {
	if n <= 2 {
		return 1
	}
	a, b := time.Duration(1), time.Duration(1)
	for i := 3; i <= n; i++ {
		a, b = b, a+b
	}
	return b
}

// RestartSupervisor drives the restart loop for a single device's
// Failed->Stopped recovery, tracking the attempt counter described in
// §4.2: it resets to 0 on a successful Running dwell when
// ResetOnSuccess is set.
type RestartSupervisor struct {
	policy  RestartPolicy
	attempt int
}

// NewRestartSupervisor builds a supervisor for policy.
func NewRestartSupervisor(policy RestartPolicy) *RestartSupervisor {
	return &RestartSupervisor{policy: policy}
}

// ShouldRestart reports whether another restart attempt is permitted,
// and the delay to wait before making it. When MaxAttempts is
// exhausted, the device remains in Failed indefinitely (§8 boundary
// behavior).
func (s *RestartSupervisor) ShouldRestart() (delay time.Duration, ok bool) {
	if !s.policy.Unbounded() && s.attempt >= s.policy.MaxAttempts {
		return 0, false
	}
	s.attempt++
	return s.policy.delayFor(s.attempt), true
}

// NotifyRunning records a successful Running dwell, resetting the
// attempt counter if the policy requests it.
func (s *RestartSupervisor) NotifyRunning() {
	if s.policy.ResetOnSuccess {
		s.attempt = 0
	}
}

// Attempts returns the number of restart attempts made so far.
func (s *RestartSupervisor) Attempts() int {
	return s.attempt
}
