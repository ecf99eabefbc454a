// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Registration capture constants
const (
	// CountdownSeconds is the number of countdown ticks shown before recording starts
	CountdownSeconds = 3

	// CountdownInterval is the time between countdown ticks
	CountdownInterval = time.Second

	// RecordingDuration is the total length of the enrollment recording
	RecordingDuration = 5000 * time.Millisecond

	// RecordingTick is the progress update interval during recording
	RecordingTick = 100 * time.Millisecond

	// ProcessingStepInterval is how long each processing status message is shown
	ProcessingStepInterval = 400 * time.Millisecond
)

// Recognition constants
const (
	// DetectionDelay is the time spent in the scanning phase before a face is reported
	DetectionDelay = 800 * time.Millisecond

	// VerificationDelay is the time spent in the detected phase before verification starts
	VerificationDelay = 600 * time.Millisecond

	// WallClockInterval is the refresh interval of the scan screen clock
	WallClockInterval = time.Second
)

// Face matching constants
const (
	// DefaultDistanceThreshold is the default maximum cosine distance for a positive identification.
	// Lower values = stricter matching
	DefaultDistanceThreshold = 0.5

	// DefaultSearchLimit is the number of nearest profiles fetched per identification
	DefaultSearchLimit = 5
)

// Device constants
const (
	// DefaultFrameWidth is the ideal capture width requested from the device
	DefaultFrameWidth = 640

	// DefaultFrameHeight is the ideal capture height requested from the device
	DefaultFrameHeight = 480

	// ScanFrameWidth is the default ideal capture width of scan screens
	ScanFrameWidth = 1280

	// ScanFrameHeight is the default ideal capture height of scan screens
	ScanFrameHeight = 720

	// JPEGQuality is the quality used when encoding captured frames
	JPEGQuality = 90
)

// Web constants
const (
	// EventChannelBuffer is the buffer size of state subscriber channels
	EventChannelBuffer = 16

	// DefaultAttendanceLimit is the default number of attendance records returned
	DefaultAttendanceLimit = 25

	// ScreenIdleTimeout is how long an unwatched screen stays open
	ScreenIdleTimeout = 2 * time.Minute

	// ScreenSweepInterval is how often idle screens are looked for
	ScreenSweepInterval = 15 * time.Second
)
