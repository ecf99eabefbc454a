package registration

import (
	"context"

	"github.com/kozaktomas/face-attendance/internal/biometric"
)

// Handoff receives the enrolled profile once a session succeeds: it persists
// the profile for the success screen and moves the user there.
type Handoff interface {
	PersistAndNavigate(ctx context.Context, profile biometric.EnrolledProfile) error
}

// HandoffFunc adapts a function to Handoff.
type HandoffFunc func(ctx context.Context, profile biometric.EnrolledProfile) error

func (f HandoffFunc) PersistAndNavigate(ctx context.Context, profile biometric.EnrolledProfile) error {
	return f(ctx, profile)
}
