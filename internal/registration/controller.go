// Package registration drives the enrollment screen: form validation, device
// acquisition, countdown and recording, a single frame capture and the
// enrollment call.
package registration

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
	Departments []string
	Timing      Timing
	Constraints device.Constraints
	Clock       clock.Clock
	Handoff     Handoff
	Logger      *zerolog.Logger
}

// Controller owns one registration screen. All events (user intents, timer
// ticks, device and service completions) are applied under a single lock.
// Completions belonging to an earlier session are discarded.
type Controller struct {
	devices *device.Manager
	client  biometric.Client
	opts    Options
	clock   clock.Clock
	log     zerolog.Logger
	gens    session.Counter
	updates session.Broadcaster[State]

	mu     sync.Mutex
	state  State
	sess   *sessionContext
	closed bool
}

// sessionContext is everything owned by one session. close always stops the
// timers, cancels pending calls and releases the device.
type sessionContext struct {
	id     uint64
	trace  string
	ctx    context.Context
	cancel context.CancelFunc
	sched  *clock.Scheduler
	log    zerolog.Logger

	handle    *device.Handle
	ticker    *clock.Task
	elapsed   time.Duration
	frame     *device.Frame
	enrolling bool
}

func (s *sessionContext) releaseDevice() {
	if s.handle == nil {
		return
	}
	if err := s.handle.Release(); err != nil {
		s.log.Warn().Err(err).Msg("releasing capture device")
	}
	s.handle = nil
}

func (s *sessionContext) captureAndRelease() (device.Frame, error) {
	defer s.releaseDevice()
	frame, err := s.handle.CaptureFrame()
	if err != nil {
		return device.Frame{}, err
	}
	frame.TraceID = s.trace
	return frame, nil
}

func (s *sessionContext) close() {
	s.sched.Stop()
	s.cancel()
	s.releaseDevice()
	s.frame = nil
}

// New creates a controller in PhaseForm.
func New(devices *device.Manager, client biometric.Client, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Timing.RecordingDuration <= 0 {
		messages := opts.Timing.ProcessingMessages
		opts.Timing = DefaultTiming()
		opts.Timing.ProcessingMessages = messages
	}
	if opts.Constraints.Width == 0 {
		opts.Constraints = device.Constraints{
			Width:      constants.DefaultFrameWidth,
			Height:     constants.DefaultFrameHeight,
			FacingMode: "user",
		}
	}
	logger := logging.Component("registration")
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	c := &Controller{
		devices: devices,
		client:  client,
		opts:    opts,
		clock:   opts.Clock,
		log:     logger,
	}
	c.mu.Lock()
	c.beginSession(State{Phase: PhaseForm})
	c.mu.Unlock()
	return c
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe streams every published snapshot until Close.
func (c *Controller) Subscribe() (<-chan State, func()) {
	return c.updates.Subscribe()
}

// Submit validates form and, when valid, starts capturing. A rejected form
// returns *ValidationError and keeps PhaseForm with the field errors.
func (c *Controller) Submit(form biometric.FormData) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return session.ErrClosed
	}
	if c.state.Phase != PhaseForm {
		return invalid(c.state, FormSubmitted{})
	}

	form = Normalize(form)
	errs := Validate(form, c.opts.Departments)
	if err := c.apply(FormSubmitted{Form: form, Errors: errs}); err != nil {
		return err
	}
	if errs != nil {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// StartRecording is the user gesture that starts the countdown.
func (c *Controller) StartRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return session.ErrClosed
	}
	return c.apply(GestureReceived{From: c.opts.Timing.CountdownFrom})
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

// Retry starts a new session from PhaseFailure, keeping the submitted form.
func (c *Controller) Retry() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return session.ErrClosed
	}
	next, err := Transition(c.state, Retried{})
	if err != nil {
		return err
	}
	c.beginSession(next)
	return nil
}

// Reset abandons the current session from any phase and shows an empty form.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return session.ErrClosed
	}
	c.beginSession(State{Phase: PhaseForm})
	return nil
}

// Close ends the screen. Pending completions are discarded and the device,
// if held, is released. Safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.sess.close()
	c.sess.log.Debug().Msg("registration closed")
	c.updates.Close()
}

func (c *Controller) beginSession(initial State) {
	if c.sess != nil {
		c.sess.close()
	}
	ctx, cancel := context.WithCancel(context.Background())
	id := c.gens.Next()
	trace := session.NewTraceID()
	c.sess = &sessionContext{
		id:     id,
		trace:  trace,
		ctx:    ctx,
		cancel: cancel,
		sched:  clock.NewScheduler(c.clock),
		log:    c.log.With().Uint64("session", id).Str("trace", trace).Logger(),
	}
	initial.Session = id
	c.state = initial
	c.sess.log.Debug().Str("phase", initial.Phase.String()).Msg("session started")
	c.publish()
}

func (c *Controller) publish() {
	c.updates.Publish(c.state.clone())
}

// current reports whether sess is still the live session. Callers hold c.mu.
func (c *Controller) current(sess *sessionContext) bool {
	return !c.closed && sess.id == c.sess.id
}

// guard wraps a timer callback so it runs under the lock and only while its
// session is current.
func (c *Controller) guard(sess *sessionContext, fn func()) func() {
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.current(sess) {
			return
		}
		fn()
	}
}

// apply runs the transition and its entry effects. Callers hold c.mu.
// A panic in a transition or effect tears the session down before it
// propagates, so the device is never left acquired.
func (c *Controller) apply(ev Event) error {
	defer func() {
		if r := recover(); r != nil {
			c.sess.close()
			panic(r)
		}
	}()

	prev := c.state
	next, err := Transition(prev, ev)
	if err != nil {
		return err
	}
	c.state = next
	if prev.Phase != next.Phase || prev.Step != next.Step {
		c.sess.log.Debug().
			Str("event", ev.eventName()).
			Str("from", prev.Phase.String()+"/"+prev.Step.String()).
			Str("to", next.Phase.String()+"/"+next.Step.String()).
			Msg("transition")
	}
	c.publish()
	c.enter(ev)
	return nil
}

// dispatch applies an internally generated event.
func (c *Controller) dispatch(ev Event) {
	if err := c.apply(ev); err != nil {
		c.sess.log.Warn().Err(err).Msg("dropping event")
	}
}

func (c *Controller) enter(ev Event) {
	s := c.state
	switch ev.(type) {
	case FormSubmitted, DeviceRetried:
		if capturing(s, StepAcquiring) {
			c.acquire()
		}
	case GestureReceived:
		c.startCountdown()
	case CountdownTicked:
		if s.Step == StepRecording {
			c.sess.ticker.Cancel()
			c.startRecording()
		}
	case RecordingTicked:
		if s.Progress >= 100 {
			c.sess.ticker.Cancel()
			c.capture()
		}
	case CaptureCompleted:
		if s.Phase == PhaseProcessing {
			c.showProcessing(0)
		}
	case EnrollResolved:
		c.sess.frame = nil
		c.sess.sched.Stop()
	}
}

func (c *Controller) acquire() {
	sess := c.sess
	constraints := c.opts.Constraints
	go func() {
		h, err := c.devices.Acquire(sess.ctx, constraints)

		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.current(sess) {
			if h != nil {
				sess.log.Debug().Uint64("handle", h.ID()).Msg("releasing device acquired by stale session")
				if err := c.devices.Release(h); err != nil {
					sess.log.Warn().Err(err).Msg("releasing capture device")
				}
			}
			return
		}
		if err != nil {
			derr := device.Classify(err)
			sess.log.Warn().Err(err).Str("kind", derr.Kind.String()).Msg("device acquisition failed")
			c.dispatch(DeviceFailed{Err: derr})
			return
		}
		sess.log.Debug().Uint64("handle", h.ID()).Msg("device acquired")
		sess.handle = h
		if err := c.apply(DeviceAcquired{}); err != nil {
			sess.log.Warn().Err(err).Msg("device acquired in unexpected state")
			sess.releaseDevice()
		}
	}()
}

func (c *Controller) startCountdown() {
	sess := c.sess
	sess.ticker = sess.sched.Every(c.opts.Timing.CountdownInterval, c.guard(sess, func() {
		c.dispatch(CountdownTicked{})
	}))
}

func (c *Controller) startRecording() {
	sess := c.sess
	tick, total := c.opts.Timing.RecordingTick, c.opts.Timing.RecordingDuration
	sess.elapsed = 0
	sess.ticker = sess.sched.Every(tick, c.guard(sess, func() {
		sess.elapsed += tick
		c.dispatch(RecordingTicked{Elapsed: sess.elapsed, Total: total})
	}))
}

func (c *Controller) capture() {
	frame, err := c.sess.captureAndRelease()
	if err != nil {
		c.sess.log.Error().Err(err).Msg("frame capture failed")
	} else {
		c.sess.frame = &frame
	}
	c.dispatch(CaptureCompleted{Err: err})
}

func (c *Controller) showProcessing(i int) {
	messages := c.opts.Timing.ProcessingMessages
	if i >= len(messages) {
		c.enroll()
		return
	}
	c.dispatch(ProcessingAdvanced{Message: messages[i]})
	sess := c.sess
	sess.sched.After(c.opts.Timing.ProcessingInterval, c.guard(sess, func() {
		c.showProcessing(i + 1)
	}))
}

func (c *Controller) enroll() {
	sess := c.sess
	if sess.enrolling || sess.frame == nil {
		return
	}
	sess.enrolling = true
	form, frame := c.state.Form, *sess.frame
	sess.log.Info().Str("employee_id", form.EmployeeID).Msg("submitting enrollment")

	go func() {
		res, err := c.client.Enroll(sess.ctx, form, frame)

		c.mu.Lock()
		if !c.current(sess) {
			c.mu.Unlock()
			sess.log.Debug().Msg("discarding stale enrollment result")
			return
		}
		if err != nil {
			sess.log.Error().Err(err).Msg("enrollment request failed")
		}
		c.dispatch(EnrollResolved{Result: res, Err: err})
		var profile *biometric.EnrolledProfile
		if c.state.Phase == PhaseSuccess {
			profile = c.state.clone().Profile
			sess.log.Info().Str("profile", profile.ID).Msg("enrollment succeeded")
		}
		c.mu.Unlock()

		if profile != nil && c.opts.Handoff != nil {
			if err := c.opts.Handoff.PersistAndNavigate(context.WithoutCancel(sess.ctx), *profile); err != nil {
				sess.log.Error().Err(err).Str("profile", profile.ID).Msg("handoff failed")
			}
		}
	}()
}
