package core

import (
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// NewCorrelationID generates an opaque id used to stamp related
// messages so a client can trace one logical operation across the
// hub, router and any peer hops (§6).
func NewCorrelationID() string {
	return uuid.NewString()
}

// NewJobID generates an id for a deferred execution result (§4.5).
func NewJobID() string {
	return uuid.NewString()
}

// NewInstanceSuffix generates a short, collision-resistant suffix used
// when a device instance name needs to be disambiguated, e.g. for
// hot-swapped replacement instances (§4.4).
func NewInstanceSuffix() string {
	id, err := gonanoid.New(8)
	if err != nil {
		// gonanoid only fails if the requested length is invalid,
		// which a fixed literal never triggers.
		return uuid.NewString()[:8]
	}
	return id
}
