package handlers

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kozaktomas/face-attendance/internal/biometric"
	"github.com/kozaktomas/face-attendance/internal/clock"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/device"
	"github.com/kozaktomas/face-attendance/internal/logging"
)

// Screen is a controller hosted for one client screen.
type Screen interface {
	Close()
}

type screenEntry[T Screen] struct {
	screen   T
	lastSeen time.Time
	streams  int
}

// ScreenManager keeps the open screens of one kind by ID. Screens that no
// request has touched for the idle timeout, and that have no open event
// stream, are closed by a background sweep.
type ScreenManager[T Screen] struct {
	screens map[string]*screenEntry[T]
	mu      sync.Mutex
	clock   clock.Clock
	sweeps  *clock.Scheduler
	log     zerolog.Logger
}

// NewScreenManager creates an empty screen manager. A nil clock means the
// real clock.
func NewScreenManager[T Screen](c clock.Clock) *ScreenManager[T] {
	if c == nil {
		c = clock.Real()
	}
	return &ScreenManager[T]{
		screens: make(map[string]*screenEntry[T]),
		clock:   c,
		sweeps:  clock.NewScheduler(c),
		log:     logging.Component("screens"),
	}
}

// Create stores screen under a new ID.
func (m *ScreenManager[T]) Create(screen T) string {
	id := uuid.New().String()
	m.mu.Lock()
	m.screens[id] = &screenEntry[T]{screen: screen, lastSeen: m.clock.Now()}
	m.mu.Unlock()
	return id
}

// Get retrieves a screen by ID and marks it as seen.
func (m *ScreenManager[T]) Get(id string) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.screens[id]
	if !ok {
		var zero T
		return zero, false
	}
	e.lastSeen = m.clock.Now()
	return e.screen, true
}

// Attach retrieves a screen for an event stream. The screen does not expire
// until detach is called.
func (m *ScreenManager[T]) Attach(id string) (screen T, detach func(), ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.screens[id]
	if !ok {
		return screen, nil, false
	}
	e.streams++
	e.lastSeen = m.clock.Now()

	var once sync.Once
	detach = func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			e.streams--
			e.lastSeen = m.clock.Now()
		})
	}
	return e.screen, detach, true
}

// Remove deletes a screen and closes it.
func (m *ScreenManager[T]) Remove(id string) bool {
	m.mu.Lock()
	e, ok := m.screens[id]
	delete(m.screens, id)
	m.mu.Unlock()
	if ok {
		e.screen.Close()
	}
	return ok
}

// Len returns the number of open screens.
func (m *ScreenManager[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.screens)
}

// CloseIdle closes and removes every screen without an event stream that
// was last seen more than ttl ago. It returns the number of closed screens.
func (m *ScreenManager[T]) CloseIdle(ttl time.Duration) int {
	now := m.clock.Now()

	m.mu.Lock()
	var idle []T
	for id, e := range m.screens {
		if e.streams == 0 && now.Sub(e.lastSeen) > ttl {
			idle = append(idle, e.screen)
			delete(m.screens, id)
		}
	}
	m.mu.Unlock()

	for _, screen := range idle {
		screen.Close()
	}
	if len(idle) > 0 {
		m.log.Info().Int("closed", len(idle)).Dur("ttl", ttl).Msg("closed idle screens")
	}
	return len(idle)
}

// StartCleanup runs CloseIdle every interval until CloseAll. A non-positive
// ttl disables expiry.
func (m *ScreenManager[T]) StartCleanup(interval, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if interval <= 0 || interval > ttl {
		interval = ttl
	}
	m.sweeps.Every(interval, func() {
		m.CloseIdle(ttl)
	})
}

// CloseAll stops the cleanup loop, then closes and removes every screen.
func (m *ScreenManager[T]) CloseAll() {
	m.sweeps.Stop()

	m.mu.Lock()
	screens := m.screens
	m.screens = make(map[string]*screenEntry[T])
	m.mu.Unlock()
	for _, e := range screens {
		e.screen.Close()
	}
}

func newScreenManager[T Screen](cfg *config.Config, deps Deps) *ScreenManager[T] {
	m := NewScreenManager[T](deps.Clock)
	m.StartCleanup(constants.ScreenSweepInterval, cfg.Web.ScreenIdleTimeout)
	return m
}

// Deps are the collaborators shared by the screen handlers.
type Deps struct {
	Devices *device.Manager
	Client  biometric.Client
	// Clock drives the controller timers and screen expiry; nil means the
	// real clock.
	Clock clock.Clock
}

// DeviceConstraints are the capture constraints of registration screens.
func DeviceConstraints(cfg *config.Config) device.Constraints {
	return device.Constraints{
		Width:      cfg.Device.Width,
		Height:     cfg.Device.Height,
		FacingMode: cfg.Device.FacingMode,
	}
}

// ScanConstraints are the capture constraints of scan screens.
func ScanConstraints(cfg *config.Config) device.Constraints {
	return device.Constraints{
		Width:      cfg.Device.ScanWidth,
		Height:     cfg.Device.ScanHeight,
		FacingMode: cfg.Device.FacingMode,
	}
}
