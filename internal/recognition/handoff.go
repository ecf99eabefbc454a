package recognition

import (
	"context"
	"time"

	"github.com/kozaktomas/face-attendance/internal/biometric"
)

// AttendanceRecorder is told about every successful identification.
type AttendanceRecorder interface {
	RecordAttendance(ctx context.Context, profile biometric.MatchedProfile, confidence float64, at time.Time) error
}

// RecorderFunc adapts a function to AttendanceRecorder.
type RecorderFunc func(ctx context.Context, profile biometric.MatchedProfile, confidence float64, at time.Time) error

func (f RecorderFunc) RecordAttendance(ctx context.Context, profile biometric.MatchedProfile, confidence float64, at time.Time) error {
	return f(ctx, profile, confidence, at)
}
