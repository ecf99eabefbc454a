package recognition

import (
	"time"

	"github.com/kozaktomas/face-attendance/internal/biometric"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
)

// Phase is the state of one scan attempt.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseScanning
	PhaseDetected
	PhaseVerifying
	PhaseMatched
	PhaseMismatch
)

var phaseNames = [...]string{"idle", "scanning", "detected", "verifying", "matched", "mismatch"}

var phaseLabels = [...]string{
	"AWAITING SCAN",
	"SCANNING...",
	"FACE DETECTED",
	"VERIFYING IDENTITY",
	"IDENTITY VERIFIED",
	"NOT RECOGNIZED",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// Label is the status line shown on the scan screen.
func (p Phase) Label() string {
	if int(p) < len(phaseLabels) {
		return phaseLabels[p]
	}
	return phaseLabels[PhaseIdle]
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Terminal reports whether the attempt has resolved.
func (p Phase) Terminal() bool {
	return p == PhaseMatched || p == PhaseMismatch
}

// DeviceStatus tracks the screen-wide capture device.
type DeviceStatus int

const (
	DeviceAcquiring DeviceStatus = iota
	DeviceReady
	DeviceError
)

var deviceNames = [...]string{"acquiring", "ready", "error"}

func (d DeviceStatus) String() string {
	if int(d) < len(deviceNames) {
		return deviceNames[d]
	}
	return "unknown"
}

func (d DeviceStatus) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// State is a snapshot of the scan screen.
type State struct {
	Session     uint64                    `json:"session"`
	Phase       Phase                     `json:"phase"`
	Label       string                    `json:"label"`
	Device      DeviceStatus              `json:"device"`
	DeviceError string                    `json:"device_error,omitempty"`
	Profile     *biometric.MatchedProfile `json:"profile,omitempty"`
	Confidence  float64                   `json:"confidence,omitempty"`
	Message     string                    `json:"message,omitempty"`
	Now         time.Time                 `json:"now"`
}

// CanScan reports whether Scan would be accepted.
func (s State) CanScan() bool {
	return s.Phase == PhaseIdle && s.Device == DeviceReady
}

func (s State) clone() State {
	if s.Profile != nil {
		p := *s.Profile
		s.Profile = &p
	}
	return s
}

// Timing holds the delays of the scan screen.
type Timing struct {
	DetectionDelay    time.Duration
	VerificationDelay time.Duration
	ClockInterval     time.Duration
}

// DefaultTiming returns the standard scan delays.
func DefaultTiming() Timing {
	return Timing{
		DetectionDelay:    constants.DetectionDelay,
		VerificationDelay: constants.VerificationDelay,
		ClockInterval:     constants.WallClockInterval,
	}
}

// TimingFromConfig builds the timing from the session configuration.
func TimingFromConfig(cfg *config.SessionConfig) Timing {
	return Timing{
		DetectionDelay:    cfg.DetectionDelay,
		VerificationDelay: cfg.VerificationDelay,
		ClockInterval:     constants.WallClockInterval,
	}
}
