package recognition

import (
	"errors"

	"github.com/kozaktomas/face-attendance/internal/biometric"
	"github.com/kozaktomas/face-attendance/internal/session"
)

// MessageSystemError is shown when identification fails without a result.
const MessageSystemError = "RECOGNITION SYSTEM ERROR"

// ErrDeviceNotReady rejects a scan while the device is acquiring or failed.
var ErrDeviceNotReady = errors.New("capture device not ready")

func invalid(s State, ev Event) error {
	return session.InvalidTransition(ev.eventName(), s.Phase)
}

// Transition applies ev to s without side effects.
func Transition(s State, ev Event) (State, error) {
	next := s.clone()

	switch e := ev.(type) {
	case DeviceAcquired:
		if s.Device != DeviceAcquiring {
			return s, invalid(s, ev)
		}
		next.Device = DeviceReady

	case DeviceFailed:
		if s.Device != DeviceAcquiring {
			return s, invalid(s, ev)
		}
		next.Device = DeviceError
		if e.Err != nil {
			next.DeviceError = e.Err.ScanMessage()
		}

	case DeviceRetried:
		if s.Device != DeviceError {
			return s, invalid(s, ev)
		}
		next.Device = DeviceAcquiring
		next.DeviceError = ""

	case ScanRequested:
		if s.Phase != PhaseIdle {
			return s, invalid(s, ev)
		}
		if s.Device != DeviceReady {
			return s, ErrDeviceNotReady
		}
		next.Phase = PhaseScanning

	case FaceDetected:
		if s.Phase != PhaseScanning {
			return s, invalid(s, ev)
		}
		next.Phase = PhaseDetected

	case VerificationStarted:
		if s.Phase != PhaseDetected {
			return s, invalid(s, ev)
		}
		next.Phase = PhaseVerifying

	case IdentifyResolved:
		if s.Phase != PhaseVerifying {
			return s, invalid(s, ev)
		}
		resolve(&next, e)

	case ResetRequested:
		next.Phase = PhaseIdle
		next.Profile = nil
		next.Confidence = 0
		next.Message = ""

	case ClockTicked:
		next.Now = e.Now

	default:
		return s, invalid(s, ev)
	}

	next.Label = next.Phase.Label()
	return next, nil
}

func resolve(s *State, e IdentifyResolved) {
	switch {
	case e.Err != nil || e.Result == nil:
		s.Phase = PhaseMismatch
		s.Message = MessageSystemError
	case e.Result.Success && e.Result.Profile != nil:
		s.Phase = PhaseMatched
		profile := *e.Result.Profile
		s.Profile = &profile
		s.Confidence = e.Result.Confidence
	case e.Result.Success:
		s.Phase = PhaseMismatch
		s.Message = MessageSystemError
	case e.Result.Message != "":
		s.Phase = PhaseMismatch
		s.Message = e.Result.Message
	default:
		s.Phase = PhaseMismatch
		s.Message = biometric.MessageNotRecognized
	}
}
