package clock

import (
	"sync"
	"time"
)

// Scheduler owns every timer of one session. Stop cancels all of them and
// makes later scheduling calls no-ops.
//
// A callback that was already dequeued when Stop ran may still complete, so
// owners must additionally guard callbacks with their session generation.
type Scheduler struct {
	clock   Clock
	mu      sync.Mutex
	timers  map[*entry]struct{}
	stopped bool
}

type entry struct {
	timer Timer
}

// Task is a handle to a scheduled one-shot or repeating callback.
type Task struct {
	s     *Scheduler
	mu    sync.Mutex
	entry *entry
	done  bool
}

// NewScheduler creates a scheduler on top of c.
func NewScheduler(c Clock) *Scheduler {
	return &Scheduler{
		clock:  c,
		timers: make(map[*entry]struct{}),
	}
}

func (s *Scheduler) arm(d time.Duration, fn func()) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}

	e := &entry{}
	s.timers[e] = struct{}{}
	e.timer = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		_, live := s.timers[e]
		delete(s.timers, e)
		s.mu.Unlock()
		if live {
			fn()
		}
	})
	return e
}

func (s *Scheduler) cancel(e *entry) {
	if e == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.timers[e]; ok {
		delete(s.timers, e)
		e.timer.Stop()
	}
}

// After runs fn once after d.
func (s *Scheduler) After(d time.Duration, fn func()) *Task {
	t := &Task{s: s}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entry = s.arm(d, func() {
		t.mu.Lock()
		done := t.done
		t.done = true
		t.mu.Unlock()
		if !done {
			fn()
		}
	})
	return t
}

// Every runs fn every d until the task is cancelled or the scheduler stops.
// The next tick is armed after fn returns, relative to the tick that fired.
func (s *Scheduler) Every(d time.Duration, fn func()) *Task {
	t := &Task{s: s}

	var fire func()
	fire = func() {
		t.mu.Lock()
		if t.done {
			t.mu.Unlock()
			return
		}
		t.mu.Unlock()

		fn()

		t.mu.Lock()
		defer t.mu.Unlock()
		if !t.done {
			t.entry = s.arm(d, fire)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entry = s.arm(d, fire)
	return t
}

// Cancel stops the task. Safe to call multiple times and on a nil task.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.done = true
	e := t.entry
	t.entry = nil
	t.mu.Unlock()
	t.s.cancel(e)
}

// Stop cancels every pending timer. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for e := range s.timers {
		e.timer.Stop()
	}
	clear(s.timers)
}
