// Package session holds what the registration and recognition controllers
// share: generation counters, state fan-out and the common errors.
package session

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

var (
	// ErrInvalidTransition is returned when an event is not allowed in the current phase.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrClosed is returned by controllers after Close.
	ErrClosed = errors.New("controller closed")
)

// InvalidTransition wraps ErrInvalidTransition with the rejected event and phase.
func InvalidTransition(event string, phase fmt.Stringer) error {
	return fmt.Errorf("%w: %s in phase %s", ErrInvalidTransition, event, phase)
}

// Counter hands out monotonically increasing session generations. Zero is
// never returned, so a zero generation always means "no session".
type Counter struct {
	n atomic.Uint64
}

// Next returns a fresh generation.
func (c *Counter) Next() uint64 {
	return c.n.Add(1)
}

// NewTraceID returns a random identifier used to correlate log lines and
// frames of one session.
func NewTraceID() string {
	return uuid.NewString()
}
