// Package device manages exclusive access to the capture device. A Manager
// hands out at most one live Handle at a time; every Handle must be released
// and releasing is idempotent.
package device

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Constraints are the requested capture parameters.
type Constraints struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	FacingMode string `json:"facing_mode"`
}

// Info describes an open stream.
type Info struct {
	Label  string `json:"label"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Frame is a single still image captured from a handle. The service layer
// treats it as opaque bytes.
type Frame struct {
	Seq        uint64    `json:"seq"`
	Data       []byte    `json:"-"`
	MIME       string    `json:"mime"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	CapturedAt time.Time `json:"captured_at"`
	TraceID    string    `json:"trace_id,omitempty"`
}

// Driver opens the underlying capture hardware.
type Driver interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is an open capture stream.
type Stream interface {
	Info() Info
	// Snapshot encodes the current frame.
	Snapshot() (data []byte, mime string, err error)
	Close() error
}

// Stats are lifetime counters of a Manager.
type Stats struct {
	Acquires uint64 `json:"acquires"`
	Releases uint64 `json:"releases"`
	Live     bool   `json:"live"`
}

// Manager grants exclusive handles on a Driver.
type Manager struct {
	driver Driver
	now    func() time.Time

	mu     sync.Mutex
	live   *Handle
	nextID uint64

	acquires atomic.Uint64
	releases atomic.Uint64
}

// NewManager creates a manager for driver.
func NewManager(driver Driver) *Manager {
	return &Manager{driver: driver, now: time.Now}
}

// SetNow replaces the time source used to stamp frames.
func (m *Manager) SetNow(now func() time.Time) {
	m.now = now
}

// Acquire opens the device. While the returned handle is live every other
// Acquire fails with ErrInUse. Failures are always *Error.
func (m *Manager) Acquire(ctx context.Context, c Constraints) (*Handle, error) {
	m.mu.Lock()
	if m.live != nil {
		m.mu.Unlock()
		return nil, &Error{Kind: KindOther, Err: ErrInUse}
	}
	m.nextID++
	h := &Handle{manager: m, id: m.nextID}
	m.live = h
	m.mu.Unlock()

	stream, err := m.driver.Open(ctx, c)
	if err != nil {
		m.mu.Lock()
		if m.live == h {
			m.live = nil
		}
		m.mu.Unlock()
		return nil, Classify(err)
	}

	h.stream = stream
	h.info = stream.Info()
	m.acquires.Add(1)
	return h, nil
}

// Release releases h. Nil and already released handles are ignored.
func (m *Manager) Release(h *Handle) error {
	return h.Release()
}

func (m *Manager) released(h *Handle) {
	m.mu.Lock()
	if m.live == h {
		m.live = nil
	}
	m.mu.Unlock()
	m.releases.Add(1)
}

// Stats returns the lifetime counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	live := m.live != nil
	m.mu.Unlock()
	return Stats{
		Acquires: m.acquires.Load(),
		Releases: m.releases.Load(),
		Live:     live,
	}
}

// Handle is exclusive access to the device.
type Handle struct {
	manager *Manager
	id      uint64
	stream  Stream
	info    Info

	mu       sync.Mutex
	released bool
	seq      uint64
}

// ID identifies the handle within its manager.
func (h *Handle) ID() uint64 {
	return h.id
}

// Info describes the open stream.
func (h *Handle) Info() Info {
	return h.info
}

// Live reports whether the handle has not been released yet.
func (h *Handle) Live() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.released
}

// CaptureFrame takes a synchronous snapshot.
func (h *Handle) CaptureFrame() (Frame, error) {
	if h == nil {
		return Frame{}, ErrReleased
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return Frame{}, ErrReleased
	}

	data, mime, err := h.stream.Snapshot()
	if err != nil {
		return Frame{}, fmt.Errorf("capturing frame: %w", err)
	}
	h.seq++
	return Frame{
		Seq:        h.seq,
		Data:       data,
		MIME:       mime,
		Width:      h.info.Width,
		Height:     h.info.Height,
		CapturedAt: h.manager.now(),
	}, nil
}

// Release closes the stream and frees the device. Only the first call has
// an effect; it returns the stream close error, if any.
func (h *Handle) Release() error {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return nil
	}
	h.released = true
	stream := h.stream
	h.mu.Unlock()

	var err error
	if stream != nil {
		err = stream.Close()
	}
	h.manager.released(h)
	if err != nil {
		return fmt.Errorf("closing stream: %w", err)
	}
	return nil
}
