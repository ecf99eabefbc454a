package registration

import (
	"maps"
	"time"

	"github.com/kozaktomas/face-attendance/internal/biometric"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
)

// Phase is the top-level screen state.
type Phase int

const (
	PhaseForm Phase = iota
	PhaseCapturing
	PhaseProcessing
	PhaseSuccess
	PhaseFailure
)

var phaseNames = [...]string{"form", "capturing", "processing", "success", "failure"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// CaptureStep is the sub-state of PhaseCapturing.
type CaptureStep int

const (
	StepNone CaptureStep = iota
	StepAcquiring
	StepDeviceError
	StepAwaitingGesture
	StepCountdown
	StepRecording
)

var stepNames = [...]string{"none", "acquiring", "device_error", "awaiting_gesture", "countdown", "recording"}

func (s CaptureStep) String() string {
	if int(s) < len(stepNames) {
		return stepNames[s]
	}
	return "unknown"
}

func (s CaptureStep) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State is an immutable snapshot of the registration screen.
type State struct {
	Session           uint64                     `json:"session"`
	Phase             Phase                      `json:"phase"`
	Form              biometric.FormData         `json:"form"`
	FormErrors        FieldErrors                `json:"form_errors,omitempty"`
	Step              CaptureStep                `json:"step"`
	DeviceError       string                     `json:"device_error,omitempty"`
	Countdown         int                        `json:"countdown"`
	Progress          float64                    `json:"progress"`
	ProcessingMessage string                     `json:"processing_message,omitempty"`
	Profile           *biometric.EnrolledProfile `json:"profile,omitempty"`
	Message           string                     `json:"message,omitempty"`
}

func (s State) clone() State {
	s.FormErrors = maps.Clone(s.FormErrors)
	if s.Profile != nil {
		p := *s.Profile
		s.Profile = &p
	}
	return s
}

// Timing holds the durations and texts of one registration session.
type Timing struct {
	CountdownFrom      int
	CountdownInterval  time.Duration
	RecordingDuration  time.Duration
	RecordingTick      time.Duration
	ProcessingInterval time.Duration
	ProcessingMessages []string
}

// DefaultTiming returns the standard timings without processing messages.
func DefaultTiming() Timing {
	return Timing{
		CountdownFrom:      constants.CountdownSeconds,
		CountdownInterval:  constants.CountdownInterval,
		RecordingDuration:  constants.RecordingDuration,
		RecordingTick:      constants.RecordingTick,
		ProcessingInterval: constants.ProcessingStepInterval,
	}
}

// TimingFromConfig builds the timing from the session configuration.
func TimingFromConfig(cfg *config.SessionConfig) Timing {
	return Timing{
		CountdownFrom:      cfg.CountdownSeconds,
		CountdownInterval:  cfg.CountdownInterval,
		RecordingDuration:  cfg.RecordingDuration,
		RecordingTick:      cfg.RecordingTick,
		ProcessingInterval: cfg.ProcessingInterval,
		ProcessingMessages: cfg.ProcessingMessages,
	}
}
