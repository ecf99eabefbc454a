package registration

import (
	"time"

	"github.com/kozaktomas/face-attendance/internal/biometric"
	"github.com/kozaktomas/face-attendance/internal/device"
)

// Event is an input to Transition.
type Event interface {
	eventName() string
}

// FormSubmitted carries a normalized form and its validation result.
type FormSubmitted struct {
	Form   biometric.FormData
	Errors FieldErrors
}

// DeviceAcquired reports a successful device acquisition.
type DeviceAcquired struct{}

// DeviceFailed reports a failed device acquisition.
type DeviceFailed struct {
	Err *device.Error
}

// DeviceRetried restarts acquisition after a device error.
type DeviceRetried struct{}

// GestureReceived starts the countdown at From.
type GestureReceived struct {
	From int
}

// CountdownTicked decrements the countdown.
type CountdownTicked struct{}

// RecordingTicked reports Elapsed of Total recording time.
type RecordingTicked struct {
	Elapsed time.Duration
	Total   time.Duration
}

// CaptureCompleted reports the single frame capture at the end of recording.
type CaptureCompleted struct {
	Err error
}

// ProcessingAdvanced shows the next processing status message.
type ProcessingAdvanced struct {
	Message string
}

// EnrollResolved carries the outcome of the enrollment call.
type EnrollResolved struct {
	Result *biometric.EnrollResult
	Err    error
}

// Retried returns from a failure to the form.
type Retried struct{}

func (FormSubmitted) eventName() string      { return "form_submitted" }
func (DeviceAcquired) eventName() string     { return "device_acquired" }
func (DeviceFailed) eventName() string       { return "device_failed" }
func (DeviceRetried) eventName() string      { return "device_retried" }
func (GestureReceived) eventName() string    { return "gesture_received" }
func (CountdownTicked) eventName() string    { return "countdown_ticked" }
func (RecordingTicked) eventName() string    { return "recording_ticked" }
func (CaptureCompleted) eventName() string   { return "capture_completed" }
func (ProcessingAdvanced) eventName() string { return "processing_advanced" }
func (EnrollResolved) eventName() string     { return "enroll_resolved" }
func (Retried) eventName() string            { return "retried" }
