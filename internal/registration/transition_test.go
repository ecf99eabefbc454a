package registration

import (
	"errors"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/biometric"
	"github.com/kozaktomas/face-attendance/internal/device"
	"github.com/kozaktomas/face-attendance/internal/session"
)

func mustTransition(t *testing.T, s State, ev Event) State {
	t.Helper()
	next, err := Transition(s, ev)
	if err != nil {
		t.Fatalf("Transition(%s, %s) failed: %v", s.Phase, ev.eventName(), err)
	}
	return next
}

func recordingState() State {
	return State{Session: 1, Phase: PhaseCapturing, Step: StepRecording}
}

func TestTransition_HappyPath(t *testing.T) {
	form := biometric.FormData{Name: "Al", EmployeeID: "E-1", Department: "Engineering"}
	s := State{Session: 7, Phase: PhaseForm}

	s = mustTransition(t, s, FormSubmitted{Form: form})
	if s.Phase != PhaseCapturing || s.Step != StepAcquiring {
		t.Fatalf("expected capturing/acquiring, got %s/%s", s.Phase, s.Step)
	}
	s = mustTransition(t, s, DeviceAcquired{})
	if s.Step != StepAwaitingGesture {
		t.Fatalf("expected awaiting_gesture, got %s", s.Step)
	}
	s = mustTransition(t, s, GestureReceived{From: 3})
	for want := 2; want >= 0; want-- {
		s = mustTransition(t, s, CountdownTicked{})
		if s.Countdown != want {
			t.Fatalf("expected countdown %d, got %d", want, s.Countdown)
		}
	}
	if s.Step != StepRecording {
		t.Fatalf("expected recording once countdown hits zero, got %s", s.Step)
	}

	total := 500 * time.Millisecond
	for elapsed := 100 * time.Millisecond; elapsed <= total; elapsed += 100 * time.Millisecond {
		s = mustTransition(t, s, RecordingTicked{Elapsed: elapsed, Total: total})
	}
	if s.Progress != 100 {
		t.Fatalf("expected progress 100, got %v", s.Progress)
	}

	s = mustTransition(t, s, CaptureCompleted{})
	if s.Phase != PhaseProcessing {
		t.Fatalf("expected processing, got %s", s.Phase)
	}
	s = mustTransition(t, s, ProcessingAdvanced{Message: "Analyzing..."})
	if s.ProcessingMessage != "Analyzing..." {
		t.Errorf("unexpected processing message %q", s.ProcessingMessage)
	}

	profile := &biometric.EnrolledProfile{ID: "USR-AB12", Name: "Al"}
	s = mustTransition(t, s, EnrollResolved{Result: &biometric.EnrollResult{Success: true, Profile: profile, Message: "ok"}})
	if s.Phase != PhaseSuccess || s.Profile == nil || s.Profile.ID != "USR-AB12" {
		t.Fatalf("expected success with profile, got %+v", s)
	}
	if s.Session != 7 {
		t.Errorf("session must not change within a run, got %d", s.Session)
	}
	profile.ID = "changed"
	if s.Profile.ID != "USR-AB12" {
		t.Error("state must not alias the result profile")
	}
}

func TestTransition_InvalidForm(t *testing.T) {
	s := State{Phase: PhaseForm}
	errs := FieldErrors{FieldName: "Full name is required"}

	next := mustTransition(t, s, FormSubmitted{Form: biometric.FormData{EmployeeID: "E-1"}, Errors: errs})
	if next.Phase != PhaseForm {
		t.Fatalf("expected form, got %s", next.Phase)
	}
	if next.FormErrors[FieldName] == "" {
		t.Error("expected name error")
	}
	if next.Form.EmployeeID != "E-1" {
		t.Error("expected form values kept")
	}
}

func TestTransition_DeviceError(t *testing.T) {
	s := State{Phase: PhaseCapturing, Step: StepAcquiring}

	s = mustTransition(t, s, DeviceFailed{Err: &device.Error{Kind: device.KindPermissionDenied, Err: device.ErrPermissionDenied}})
	if s.Step != StepDeviceError {
		t.Fatalf("expected device_error, got %s", s.Step)
	}
	if s.DeviceError == "" {
		t.Error("expected device error message")
	}
	if _, err := Transition(s, GestureReceived{From: 3}); !errors.Is(err, session.ErrInvalidTransition) {
		t.Errorf("gesture must be rejected in device_error, got %v", err)
	}

	s = mustTransition(t, s, DeviceRetried{})
	if s.Step != StepAcquiring || s.DeviceError != "" {
		t.Errorf("expected acquiring with cleared error, got %s %q", s.Step, s.DeviceError)
	}
}

func TestTransition_ProgressMonotonic(t *testing.T) {
	total := time.Second
	s := recordingState()

	s = mustTransition(t, s, RecordingTicked{Elapsed: 500 * time.Millisecond, Total: total})
	if s.Progress != 50 {
		t.Fatalf("expected 50, got %v", s.Progress)
	}
	s = mustTransition(t, s, RecordingTicked{Elapsed: 200 * time.Millisecond, Total: total})
	if s.Progress != 50 {
		t.Errorf("progress went backwards to %v", s.Progress)
	}
	s = mustTransition(t, s, RecordingTicked{Elapsed: 2 * total, Total: total})
	if s.Progress != 100 {
		t.Errorf("expected progress clamped to 100, got %v", s.Progress)
	}
	if _, err := Transition(s, RecordingTicked{Elapsed: 3 * total, Total: total}); !errors.Is(err, session.ErrInvalidTransition) {
		t.Errorf("ticks after 100%% must be rejected, got %v", err)
	}
}

func TestTransition_CaptureFailure(t *testing.T) {
	s := recordingState()
	s.Progress = 100

	s = mustTransition(t, s, CaptureCompleted{Err: device.ErrReleased})
	if s.Phase != PhaseFailure || s.Message != MessageCaptureFailed {
		t.Errorf("expected capture failure, got %s %q", s.Phase, s.Message)
	}
}

func TestTransition_EnrollOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		event   EnrollResolved
		phase   Phase
		message string
	}{
		{
			name:    "service failure message",
			event:   EnrollResolved{Result: &biometric.EnrollResult{Success: false, Message: "no gesture"}},
			phase:   PhaseFailure,
			message: "no gesture",
		},
		{
			name:    "transport error",
			event:   EnrollResolved{Err: errors.New("connection reset")},
			phase:   PhaseFailure,
			message: MessageFailed,
		},
		{
			name:    "success without profile",
			event:   EnrollResolved{Result: &biometric.EnrollResult{Success: true}},
			phase:   PhaseFailure,
			message: MessageFailed,
		},
		{
			name:    "failure without message",
			event:   EnrollResolved{Result: &biometric.EnrollResult{}},
			phase:   PhaseFailure,
			message: MessageFailed,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := mustTransition(t, State{Phase: PhaseProcessing, ProcessingMessage: "x"}, tc.event)
			if s.Phase != tc.phase {
				t.Errorf("expected %s, got %s", tc.phase, s.Phase)
			}
			if s.Message != tc.message {
				t.Errorf("expected message %q, got %q", tc.message, s.Message)
			}
			if s.ProcessingMessage != "" {
				t.Error("expected processing message cleared")
			}
		})
	}
}

func TestTransition_Retried(t *testing.T) {
	form := biometric.FormData{Name: "Al", EmployeeID: "E-1", Department: "Legal"}
	s := State{Session: 3, Phase: PhaseFailure, Form: form, Message: "no gesture", Progress: 100}

	next := mustTransition(t, s, Retried{})
	if next.Phase != PhaseForm || next.Form != form {
		t.Errorf("expected form with kept values, got %+v", next)
	}
	if next.Message != "" || next.Progress != 0 {
		t.Errorf("expected cleared session data, got %+v", next)
	}
}

func TestTransition_RejectsNonAdjacentEdges(t *testing.T) {
	tests := []struct {
		name  string
		state State
		event Event
	}{
		{"submit while capturing", State{Phase: PhaseCapturing, Step: StepAcquiring}, FormSubmitted{}},
		{"acquired in form", State{Phase: PhaseForm}, DeviceAcquired{}},
		{"gesture while acquiring", State{Phase: PhaseCapturing, Step: StepAcquiring}, GestureReceived{From: 3}},
		{"zero countdown gesture", State{Phase: PhaseCapturing, Step: StepAwaitingGesture}, GestureReceived{}},
		{"tick while awaiting", State{Phase: PhaseCapturing, Step: StepAwaitingGesture}, CountdownTicked{}},
		{"capture before 100", State{Phase: PhaseCapturing, Step: StepRecording, Progress: 40}, CaptureCompleted{}},
		{"enroll in form", State{Phase: PhaseForm}, EnrollResolved{}},
		{"processing in success", State{Phase: PhaseSuccess}, ProcessingAdvanced{}},
		{"retry from success", State{Phase: PhaseSuccess}, Retried{}},
		{"retry from processing", State{Phase: PhaseProcessing}, Retried{}},
		{"device retry while recording", State{Phase: PhaseCapturing, Step: StepRecording}, DeviceRetried{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			if !errors.Is(err, session.ErrInvalidTransition) {
				t.Fatalf("expected ErrInvalidTransition, got %v", err)
			}
			if next.Phase != tc.state.Phase || next.Step != tc.state.Step {
				t.Errorf("state changed on rejected transition: %+v", next)
			}
		})
	}
}
