// Package recognition drives the attendance scan screen. The capture device is
// acquired once when the screen opens and held until it closes; each scan is
// a session of detection and verification delays followed by one identify call.
package recognition

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kozaktomas/face-attendance/internal/biometric"
	"github.com/kozaktomas/face-attendance/internal/clock"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/device"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/kozaktomas/face-attendance/internal/session"
)

// Options configure a Controller.
type Options struct {
	Timing      Timing
	Constraints device.Constraints
	Clock       clock.Clock
	Recorder    AttendanceRecorder
	Logger      *zerolog.Logger
}

// Controller owns one scan screen.
type Controller struct {
	devices *device.Manager
	client  biometric.Client
	opts    Options
	clock   clock.Clock
	log     zerolog.Logger
	gens    session.Counter
	updates session.Broadcaster[State]

	// screen-wide resources, released by Close
	ctx         context.Context
	cancel      context.CancelFunc
	ticker      *clock.Scheduler
	handle      *device.Handle
	acquisition uint64

	mu     sync.Mutex
	state  State
	sess   *attempt
	closed bool
}

// attempt is one scan session.
type attempt struct {
	id          uint64
	trace       string
	ctx         context.Context
	cancel      context.CancelFunc
	sched       *clock.Scheduler
	log         zerolog.Logger
	identifying bool
}

func (a *attempt) close() {
	a.sched.Stop()
	a.cancel()
}

// New opens the scan screen and starts acquiring the device.
func New(devices *device.Manager, client biometric.Client, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Timing == (Timing{}) {
		opts.Timing = DefaultTiming()
	}
	if opts.Timing.ClockInterval <= 0 {
		opts.Timing.ClockInterval = constants.WallClockInterval
	}
	if opts.Constraints.Width == 0 {
		opts.Constraints = device.Constraints{
			Width:      constants.ScanFrameWidth,
			Height:     constants.ScanFrameHeight,
			FacingMode: "user",
		}
	}
	logger := logging.Component("recognition")
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		devices: devices,
		client:  client,
		opts:    opts,
		clock:   opts.Clock,
		log:     logger,
		ctx:     ctx,
		cancel:  cancel,
		ticker:  clock.NewScheduler(opts.Clock),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.beginAttempt()
	c.state = State{
		Session: c.sess.id,
		Phase:   PhaseIdle,
		Label:   PhaseIdle.Label(),
		Device:  DeviceAcquiring,
		Now:     c.clock.Now(),
	}
	c.publish()
	c.acquire()
	c.ticker.Every(opts.Timing.ClockInterval, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			return
		}
		c.dispatch(ClockTicked{Now: c.clock.Now()})
	})
	return c
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Now is the wall clock shown on the screen, refreshed every ClockInterval.
func (c *Controller) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Now
}

// Subscribe streams every published snapshot until Close.
func (c *Controller) Subscribe() (<-chan State, func()) {
	return c.updates.Subscribe()
}

// Scan starts a scan. It fails with ErrDeviceNotReady while the device is
// not ready and leaves the state unchanged.
func (c *Controller) Scan() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return session.ErrClosed
	}
	return c.apply(ScanRequested{})
}

// RetryDevice retries acquisition after a device error.
func (c *Controller) RetryDevice() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return session.ErrClosed
	}
	return c.apply(DeviceRetried{})
}

// Reset abandons the current scan and returns to idle. The device stays held.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return session.ErrClosed
	}
	c.beginAttempt()
	next, err := Transition(c.state, ResetRequested{})
	if err != nil {
		return err
	}
	next.Session = c.sess.id
	c.state = next
	c.publish()
	return nil
}

// Close leaves the screen and releases the device. Safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.sess.close()
	c.ticker.Stop()
	c.cancel()
	c.releaseDevice()
	c.log.Debug().Msg("scan screen closed")
	c.updates.Close()
}

func (c *Controller) releaseDevice() {
	if c.handle == nil {
		return
	}
	if err := c.devices.Release(c.handle); err != nil {
		c.log.Warn().Err(err).Msg("releasing capture device")
	}
	c.handle = nil
}

func (c *Controller) beginAttempt() {
	if c.sess != nil {
		c.sess.close()
	}
	ctx, cancel := context.WithCancel(c.ctx)
	id := c.gens.Next()
	trace := session.NewTraceID()
	c.sess = &attempt{
		id:     id,
		trace:  trace,
		ctx:    ctx,
		cancel: cancel,
		sched:  clock.NewScheduler(c.clock),
		log:    c.log.With().Uint64("session", id).Str("trace", trace).Logger(),
	}
}

func (c *Controller) publish() {
	c.updates.Publish(c.state.clone())
}

func (c *Controller) current(a *attempt) bool {
	return !c.closed && a.id == c.sess.id
}

func (c *Controller) guard(a *attempt, fn func()) func() {
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.current(a) {
			return
		}
		fn()
	}
}

// apply runs the transition and its entry effects. Callers hold c.mu. A
// panic in an entry effect closes the attempt and releases the device before
// it propagates.
func (c *Controller) apply(ev Event) error {
	defer func() {
		if r := recover(); r != nil {
			c.sess.close()
			c.releaseDevice()
			panic(r)
		}
	}()

	prev := c.state
	next, err := Transition(prev, ev)
	if err != nil {
		return err
	}
	c.state = next
	if prev.Phase != next.Phase || prev.Device != next.Device {
		c.sess.log.Debug().
			Str("event", ev.eventName()).
			Str("from", prev.Phase.String()+"/"+prev.Device.String()).
			Str("to", next.Phase.String()+"/"+next.Device.String()).
			Msg("transition")
	}
	c.publish()
	c.enter(ev)
	return nil
}

func (c *Controller) dispatch(ev Event) {
	if err := c.apply(ev); err != nil {
		c.sess.log.Warn().Err(err).Msg("dropping event")
	}
}

func (c *Controller) enter(ev Event) {
	a := c.sess
	switch ev.(type) {
	case DeviceRetried:
		c.acquire()
	case ScanRequested:
		a.sched.After(c.opts.Timing.DetectionDelay, c.guard(a, func() {
			c.dispatch(FaceDetected{})
		}))
	case FaceDetected:
		a.sched.After(c.opts.Timing.VerificationDelay, c.guard(a, func() {
			c.dispatch(VerificationStarted{})
		}))
	case VerificationStarted:
		c.identify()
	}
}

func (c *Controller) acquire() {
	c.acquisition++
	id := c.acquisition
	ctx, constraints := c.ctx, c.opts.Constraints
	go func() {
		h, err := c.devices.Acquire(ctx, constraints)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed || id != c.acquisition {
			if h != nil {
				c.log.Debug().Uint64("handle", h.ID()).Msg("releasing device acquired after screen closed")
				if err := c.devices.Release(h); err != nil {
					c.log.Warn().Err(err).Msg("releasing capture device")
				}
			}
			return
		}
		if err != nil {
			derr := device.Classify(err)
			c.log.Warn().Err(err).Str("kind", derr.Kind.String()).Msg("device acquisition failed")
			c.dispatch(DeviceFailed{Err: derr})
			return
		}
		c.log.Debug().Uint64("handle", h.ID()).Msg("device acquired")
		c.handle = h
		if err := c.apply(DeviceAcquired{}); err != nil {
			c.log.Warn().Err(err).Msg("device acquired in unexpected state")
			c.releaseDevice()
		}
	}()
}

func (c *Controller) identify() {
	a := c.sess
	if a.identifying {
		return
	}
	a.identifying = true

	frame, err := c.handle.CaptureFrame()
	if err != nil {
		a.log.Error().Err(err).Msg("frame capture failed")
		c.dispatch(IdentifyResolved{Err: err})
		return
	}
	frame.TraceID = a.trace

	go func() {
		res, err := c.client.Identify(a.ctx, frame)

		c.mu.Lock()
		if !c.current(a) {
			c.mu.Unlock()
			a.log.Debug().Msg("discarding stale identification result")
			return
		}
		if err != nil {
			a.log.Error().Err(err).Msg("identification request failed")
		}
		c.dispatch(IdentifyResolved{Result: res, Err: err})

		var matched *biometric.MatchedProfile
		confidence, at := c.state.Confidence, c.clock.Now()
		if c.state.Phase == PhaseMatched {
			matched = c.state.clone().Profile
			a.log.Info().Str("profile", matched.ID).Float64("confidence", confidence).Msg("identity verified")
		}
		c.mu.Unlock()

		if matched != nil && c.opts.Recorder != nil {
			if err := c.opts.Recorder.RecordAttendance(context.WithoutCancel(a.ctx), *matched, confidence, at); err != nil {
				a.log.Error().Err(err).Str("profile", matched.ID).Msg("recording attendance failed")
			}
		}
	}()
}
