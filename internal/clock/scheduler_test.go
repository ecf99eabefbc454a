package clock

import (
	"testing"
	"time"
)

func TestScheduler_After(t *testing.T) {
	f := NewFake(epoch)
	s := NewScheduler(f)
	fired := 0

	s.After(time.Second, func() { fired++ })

	f.Advance(999 * time.Millisecond)
	if fired != 0 {
		t.Fatalf("fired early")
	}
	f.Advance(time.Millisecond)
	if fired != 1 {
		t.Fatalf("expected 1 fire, got %d", fired)
	}
	f.Advance(time.Hour)
	if fired != 1 {
		t.Errorf("one-shot fired %d times", fired)
	}
	if f.Pending() != 0 {
		t.Errorf("expected no pending timers, got %d", f.Pending())
	}
}

func TestScheduler_Every(t *testing.T) {
	f := NewFake(epoch)
	s := NewScheduler(f)
	var at []time.Duration

	s.Every(100*time.Millisecond, func() { at = append(at, f.Now().Sub(epoch)) })
	f.Advance(500 * time.Millisecond)

	if len(at) != 5 {
		t.Fatalf("expected 5 ticks, got %d", len(at))
	}
	for i, d := range at {
		if want := time.Duration(i+1) * 100 * time.Millisecond; d != want {
			t.Errorf("tick %d at %v; want %v", i, d, want)
		}
	}
}

func TestScheduler_EveryCancelFromCallback(t *testing.T) {
	f := NewFake(epoch)
	s := NewScheduler(f)
	count := 0

	var task *Task
	task = s.Every(time.Second, func() {
		count++
		if count == 3 {
			task.Cancel()
		}
	})
	f.Advance(10 * time.Second)

	if count != 3 {
		t.Errorf("expected 3 ticks, got %d", count)
	}
	if f.Pending() != 0 {
		t.Errorf("expected no pending timers, got %d", f.Pending())
	}
}

func TestScheduler_StopCancelsEverything(t *testing.T) {
	f := NewFake(epoch)
	s := NewScheduler(f)
	fired := 0

	s.After(time.Second, func() { fired++ })
	s.Every(100*time.Millisecond, func() { fired++ })
	s.Stop()
	s.Stop()

	f.Advance(time.Minute)
	if fired != 0 {
		t.Errorf("expected no callbacks after Stop, got %d", fired)
	}

	s.After(time.Millisecond, func() { fired++ })
	f.Advance(time.Second)
	if fired != 0 {
		t.Error("callback scheduled after Stop must not run")
	}
	if f.Pending() != 0 {
		t.Errorf("expected fake clock to have no pending timers, got %d", f.Pending())
	}
}

func TestScheduler_StopFromCallback(t *testing.T) {
	f := NewFake(epoch)
	s := NewScheduler(f)
	count := 0

	s.Every(time.Second, func() {
		count++
		s.Stop()
	})
	f.Advance(5 * time.Second)

	if count != 1 {
		t.Errorf("expected 1 tick, got %d", count)
	}
}

func TestTask_CancelNil(t *testing.T) {
	var task *Task
	task.Cancel()
}
