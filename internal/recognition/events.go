package recognition

import (
	"time"

	"github.com/kozaktomas/face-attendance/internal/biometric"
	"github.com/kozaktomas/face-attendance/internal/device"
)

// Event is an input to Transition.
type Event interface {
	eventName() string
}

type DeviceAcquired struct{}

type DeviceFailed struct {
	Err *device.Error
}

type DeviceRetried struct{}

// ScanRequested is the user starting a scan.
type ScanRequested struct{}

// FaceDetected ends the detection delay.
type FaceDetected struct{}

// VerificationStarted ends the verification delay.
type VerificationStarted struct{}

// IdentifyResolved carries the outcome of the identification call.
type IdentifyResolved struct {
	Result *biometric.IdentifyResult
	Err    error
}

// ResetRequested returns the screen to idle.
type ResetRequested struct{}

// ClockTicked refreshes the displayed wall clock.
type ClockTicked struct {
	Now time.Time
}

func (DeviceAcquired) eventName() string      { return "device_acquired" }
func (DeviceFailed) eventName() string        { return "device_failed" }
func (DeviceRetried) eventName() string       { return "device_retried" }
func (ScanRequested) eventName() string       { return "scan_requested" }
func (FaceDetected) eventName() string        { return "face_detected" }
func (VerificationStarted) eventName() string { return "verification_started" }
func (IdentifyResolved) eventName() string    { return "identify_resolved" }
func (ResetRequested) eventName() string      { return "reset_requested" }
func (ClockTicked) eventName() string         { return "clock_ticked" }
