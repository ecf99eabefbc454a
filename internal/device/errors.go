package device

import (
	"errors"
	"fmt"
)

// Kind classifies device acquisition failures.
type Kind int

const (
	KindOther Kind = iota
	KindPermissionDenied
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindPermissionDenied:
		return "permission_denied"
	case KindNotFound:
		return "not_found"
	default:
		return "other"
	}
}

// MarshalText renders the kind as its name in JSON.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

var (
	// ErrPermissionDenied is returned by drivers when access to the device is refused.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned by drivers when no capture device is present.
	ErrNotFound = errors.New("no capture device found")

	// ErrInUse is returned when another handle is still live.
	ErrInUse = errors.New("capture device already in use")

	// ErrReleased is returned when capturing from a released handle.
	ErrReleased = errors.New("device handle released")
)

// Error is a classified acquisition failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "device: " + e.Kind.String()
	}
	return fmt.Sprintf("device: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is the wording shown on the registration screen.
func (e *Error) Message() string {
	switch e.Kind {
	case KindPermissionDenied:
		return "Camera access denied. Please allow camera permissions to continue."
	case KindNotFound:
		return "No camera found. Please connect a camera and try again."
	default:
		return "Failed to access camera. Please check your device settings."
	}
}

// ScanMessage is the wording shown on the recognition screen.
func (e *Error) ScanMessage() string {
	switch e.Kind {
	case KindPermissionDenied:
		return "CAMERA ACCESS DENIED"
	case KindNotFound:
		return "NO CAMERA DETECTED"
	default:
		return "CAMERA INITIALIZATION FAILED"
	}
}

// Classify converts a driver error into an *Error. Errors that already are
// an *Error are returned unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var derr *Error
	if errors.As(err, &derr) {
		return derr
	}
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return &Error{Kind: KindPermissionDenied, Err: err}
	case errors.Is(err, ErrNotFound):
		return &Error{Kind: KindNotFound, Err: err}
	default:
		return &Error{Kind: KindOther, Err: err}
	}
}
