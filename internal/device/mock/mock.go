// Package mock provides a scriptable device.Driver for tests.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/device"
)

// Driver is a device.Driver that records every open and close.
type Driver struct {
	mu sync.Mutex

	// OpenErr, when set, is returned by the next Open calls.
	OpenErr error
	// SnapshotErr, when set, is returned by Snapshot on every stream.
	SnapshotErr error
	// Gate, when non-nil, blocks Open until a value is received or ctx ends.
	Gate chan struct{}
	// Frame is the payload returned by Snapshot.
	Frame []byte

	opens       int
	closes      int
	snapshots   int
	constraints []device.Constraints
}

// NewDriver creates a driver returning a small fixed frame.
func NewDriver() *Driver {
	return &Driver{Frame: []byte{0xff, 0xd8, 0xff, 0xd9}}
}

func (d *Driver) Open(ctx context.Context, c device.Constraints) (device.Stream, error) {
	d.mu.Lock()
	gate := d.Gate
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.constraints = append(d.constraints, c)
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	d.opens++
	return &stream{driver: d, info: device.Info{Label: "mock", Width: c.Width, Height: c.Height}}, nil
}

// SetOpenErr changes the error returned by Open.
func (d *Driver) SetOpenErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.OpenErr = err
}

// Opens returns the number of successful opens.
func (d *Driver) Opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

// Closes returns the number of closed streams.
func (d *Driver) Closes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}

// Snapshots returns the number of frames taken.
func (d *Driver) Snapshots() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshots
}

// Constraints returns the constraints of every Open call, in order.
func (d *Driver) Constraints() []device.Constraints {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]device.Constraints(nil), d.constraints...)
}

type stream struct {
	driver *Driver
	info   device.Info
	closed bool
}

func (s *stream) Info() device.Info {
	return s.info
}

func (s *stream) Snapshot() ([]byte, string, error) {
	s.driver.mu.Lock()
	defer s.driver.mu.Unlock()
	if s.closed {
		return nil, "", errors.New("mock stream closed")
	}
	if s.driver.SnapshotErr != nil {
		return nil, "", s.driver.SnapshotErr
	}
	s.driver.snapshots++
	return append([]byte(nil), s.driver.Frame...), "image/jpeg", nil
}

func (s *stream) Close() error {
	s.driver.mu.Lock()
	defer s.driver.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.driver.closes++
	}
	return nil
}
