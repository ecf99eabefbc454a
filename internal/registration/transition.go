package registration

import (
	"github.com/kozaktomas/face-attendance/internal/session"
)

// Failure messages.
const (
	MessageFailed        = "No gesture detected. Please wave clearly in front of the camera and ensure proper lighting."
	MessageCaptureFailed = "Failed to capture image from camera. Please try again."
)

func invalid(s State, ev Event) error {
	if s.Phase == PhaseCapturing {
		return session.InvalidTransition(ev.eventName(), s.Step)
	}
	return session.InvalidTransition(ev.eventName(), s.Phase)
}

func capturing(s State, step CaptureStep) bool {
	return s.Phase == PhaseCapturing && s.Step == step
}

// Transition applies ev to s. It has no side effects; events that are not
// allowed in the current phase return an error wrapping
// session.ErrInvalidTransition and leave s unchanged.
func Transition(s State, ev Event) (State, error) {
	next := s.clone()

	switch e := ev.(type) {
	case FormSubmitted:
		if s.Phase != PhaseForm {
			return s, invalid(s, ev)
		}
		next.Form = e.Form
		next.FormErrors = e.Errors
		if len(e.Errors) == 0 {
			next.FormErrors = nil
			next.Phase = PhaseCapturing
			next.Step = StepAcquiring
		}

	case DeviceAcquired:
		if !capturing(s, StepAcquiring) {
			return s, invalid(s, ev)
		}
		next.Step = StepAwaitingGesture

	case DeviceFailed:
		if !capturing(s, StepAcquiring) {
			return s, invalid(s, ev)
		}
		next.Step = StepDeviceError
		if e.Err != nil {
			next.DeviceError = e.Err.Message()
		}

	case DeviceRetried:
		if !capturing(s, StepDeviceError) {
			return s, invalid(s, ev)
		}
		next.Step = StepAcquiring
		next.DeviceError = ""

	case GestureReceived:
		if !capturing(s, StepAwaitingGesture) || e.From <= 0 {
			return s, invalid(s, ev)
		}
		next.Step = StepCountdown
		next.Countdown = e.From

	case CountdownTicked:
		if !capturing(s, StepCountdown) || s.Countdown <= 0 {
			return s, invalid(s, ev)
		}
		next.Countdown--
		if next.Countdown == 0 {
			next.Step = StepRecording
			next.Progress = 0
		}

	case RecordingTicked:
		if !capturing(s, StepRecording) || s.Progress >= 100 || e.Total <= 0 {
			return s, invalid(s, ev)
		}
		progress := 100.0
		if e.Elapsed < e.Total {
			progress = float64(e.Elapsed) * 100 / float64(e.Total)
		}
		next.Progress = max(s.Progress, progress)

	case CaptureCompleted:
		if !capturing(s, StepRecording) || s.Progress < 100 {
			return s, invalid(s, ev)
		}
		next.Step = StepNone
		if e.Err != nil {
			next.Phase = PhaseFailure
			next.Message = MessageCaptureFailed
		} else {
			next.Phase = PhaseProcessing
		}

	case ProcessingAdvanced:
		if s.Phase != PhaseProcessing {
			return s, invalid(s, ev)
		}
		next.ProcessingMessage = e.Message

	case EnrollResolved:
		if s.Phase != PhaseProcessing {
			return s, invalid(s, ev)
		}
		next.ProcessingMessage = ""
		switch {
		case e.Err == nil && e.Result != nil && e.Result.Success && e.Result.Profile != nil:
			next.Phase = PhaseSuccess
			profile := *e.Result.Profile
			next.Profile = &profile
			next.Message = e.Result.Message
		case e.Err == nil && e.Result != nil && !e.Result.Success && e.Result.Message != "":
			next.Phase = PhaseFailure
			next.Message = e.Result.Message
		default:
			next.Phase = PhaseFailure
			next.Message = MessageFailed
		}

	case Retried:
		if s.Phase != PhaseFailure {
			return s, invalid(s, ev)
		}
		next = State{Session: s.Session, Phase: PhaseForm, Form: s.Form}

	default:
		return s, invalid(s, ev)
	}

	return next, nil
}
