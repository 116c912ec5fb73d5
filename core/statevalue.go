package core

import "time"

// Quality tags how trustworthy a StateValue is at the moment it was
// produced. Combining two StateValues keeps the "worst" quality, in the
// order ERROR > INVALID > STALE > OK, as required by §3.
type Quality int

const (
	QualityOK Quality = iota
	QualityStale
	QualityInvalid
	QualityError
)

func (q Quality) String() string {
	switch q {
	case QualityOK:
		return "OK"
	case QualityStale:
		return "STALE"
	case QualityInvalid:
		return "INVALID"
	case QualityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// worseThan reports whether q is a worse quality than other.
func (q Quality) worseThan(other Quality) bool {
	return q > other
}

// StateValue is the triple (value, timestamp, quality) that every
// observed property or driver reading carries (§3).
type StateValue[T any] struct {
	Value     T
	Timestamp time.Time
	Quality   Quality
}

// NewStateValue constructs an OK-quality state value timestamped now
// according to the given clock.
func NewStateValue[T any](clock Clock, value T) StateValue[T] {
	return StateValue[T]{
		Value:     value,
		Timestamp: clock.Now(),
		Quality:   QualityOK,
	}
}

// Combine merges two state values, keeping the maximum timestamp and
// the worse of the two qualities. The returned value is taken from
// whichever input has the later timestamp, ties favouring a.
func Combine[T any](a, b StateValue[T]) StateValue[T] {
	result := a
	if b.Timestamp.After(a.Timestamp) {
		result.Value = b.Value
		result.Timestamp = b.Timestamp
	}
	worst := a.Quality
	if b.Quality.worseThan(worst) {
		worst = b.Quality
	}
	result.Quality = worst
	return result
}
